package mirror

import (
	"net/url"
	"sync"
)

// LinkInfo is the value stored in the session store for every
// processed page and asset.
type LinkInfo struct {
	RelativeLink     string
	FilePath         string
	ElementAttribute string
}

// Session is the in-memory registry of processed pages and assets for
// one mirroring run, keyed by absolute URL. It is read far more often
// than it is written (existence checks from the coordinator and its
// asset workers against one write per successful download), so reads
// and writes are guarded separately with a sync.RWMutex.
type Session struct {
	Seed      *url.URL
	SessionID string

	mu     sync.RWMutex
	pages  map[string]LinkInfo
	assets map[string]LinkInfo
}

// NewSession creates an empty session for seed.
func NewSession(sessionID string, seed *url.URL) *Session {
	return &Session{
		Seed:      seed,
		SessionID: sessionID,
		pages:     make(map[string]LinkInfo),
		assets:    make(map[string]LinkInfo),
	}
}

// HasPage reports whether url has already been recorded as a page.
func (s *Session) HasPage(u string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pages[u]
	return ok
}

// HasAsset reports whether url has already been recorded as an asset.
func (s *Session) HasAsset(u string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assets[u]
	return ok
}

// RecordPage inserts info under u if no page is recorded there yet.
// The first recorded path wins; a later call for the same key is a
// no-op, which is what guarantees invariant I1 given callers check
// HasPage/HasAsset before downloading.
func (s *Session) RecordPage(u string, info LinkInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[u]; ok {
		return
	}
	s.pages[u] = info
}

// RecordAsset inserts info under u if no asset is recorded there yet.
func (s *Session) RecordAsset(u string, info LinkInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[u]; ok {
		return
	}
	s.assets[u] = info
}

// Snapshot returns copies of both maps, safe for the caller (the Link
// Rewriter) to iterate without holding the session lock.
func (s *Session) Snapshot() (pages, assets map[string]LinkInfo) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pages = make(map[string]LinkInfo, len(s.pages))
	for k, v := range s.pages {
		pages[k] = v
	}
	assets = make(map[string]LinkInfo, len(s.assets))
	for k, v := range s.assets {
		assets[k] = v
	}
	return pages, assets
}
