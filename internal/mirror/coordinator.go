package mirror

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

// Run fetches seedURL and its in-host pages and assets into destDir,
// then rewrites local links once every download is done, and is the engine's sole library
// entry point. It fetches the seed first with stricter overrides,
// then walks anchor links breadth-first up to rule.MaxDepth hops,
// fanning out each page's asset downloads across a bounded worker
// pool (github.com/panjf2000/ants/v2) and waiting for the whole page's
// workers to finish via a plain golang.org/x/sync/errgroup.Group
// (not WithContext, so a failing asset doesn't cancel its siblings
// before the abort policy gets a chance to run on all of them).
func Run(ctx context.Context, sessionID, seedURL, destDir string, rule DownloadRule, updateSink chan<- Update) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	seed, err := url.Parse(seedURL)
	if err != nil || !seed.IsAbs() {
		return &InvalidURLError{URL: seedURL}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &DestinationCreationFailedError{Path: destDir, err: err}
	}

	sess := NewSession(sessionID, seed)
	fetcher := NewFetcher()
	sk := newSink(updateSink, rule.progressInterval())

	c := &coordinator{
		sessionID: sessionID,
		destDir:   destDir,
		rule:      rule,
		seed:      seed,
		session:   sess,
		fetcher:   fetcher,
		sink:      sk,
	}

	// The seed is always downloaded regardless of size and any
	// failure aborts the run outright, even if the caller's rule is
	// more permissive for the rest of the mirror.
	seedRule := rule
	seedRule.DownloadStaticResourceWithUnknownSize = true
	seedRule.AbortOnDownloadError = true

	anchors, err := c.processPage(ctx, seed, "", "index.html", seedRule, true, rule.MaxDepth > 0)
	if err != nil {
		return err
	}

	depthRemaining := rule.MaxDepth
	frontier := anchors
	for depthRemaining > 0 {
		var next []AnchorLink
		for _, a := range frontier {
			if !sameHost(a.AbsoluteURL, seed) {
				continue
			}
			if sess.HasPage(a.AbsoluteURL.String()) {
				continue
			}
			more, err := c.processPage(ctx, a.AbsoluteURL, a.RelativeLink, "", rule, false, depthRemaining-1 > 0)
			if err != nil {
				return err
			}
			next = append(next, more...)
		}
		frontier = next
		depthRemaining--
	}

	return rewriteSession(sess)
}

type coordinator struct {
	sessionID string
	destDir   string
	rule      DownloadRule
	seed      *url.URL
	session   *Session
	fetcher   *Fetcher
	sink      *sink
}

// processPage fetches one page, records it in the session, extracts
// its anchor and asset links, and downloads its assets. It is shared
// by the seed and every subsequent page. Anchor links are returned
// only when collectAnchors is true (more depth remains). isSeed
// controls whether a read/parse failure on this page is fatal or is
// instead reported as a non-fatal message and treated as a page with
// no links. rule governs only the fetch of the page itself; its assets
// are always fetched under the session's own rule.
func (c *coordinator) processPage(ctx context.Context, pageURL *url.URL, relativeLink, forcedName string, rule DownloadRule, isSeed bool, collectAnchors bool) ([]AnchorLink, error) {
	resourceName := pageURL.String()

	outcome := c.fetcher.Fetch(ctx, pageURL, c.destDir, rule, c.sink, resourceName, forcedName)
	switch outcome.Kind {
	case FetchSkipped:
		return nil, nil
	case FetchFailed:
		if isSeed {
			return nil, outcome.Err
		}
		_ = c.sink.message(Message{
			SessionIDValue:    c.sessionID,
			ResourceNameValue: resourceName,
			Content:           outcome.Err.Error(),
			IsError:           true,
		})
		return nil, nil
	}

	attr := ""
	if relativeLink != "" {
		attr = "href"
	}
	c.session.RecordPage(resourceName, LinkInfo{
		RelativeLink:     relativeLink,
		FilePath:         outcome.FilePath,
		ElementAttribute: attr,
	})

	f, err := os.Open(outcome.FilePath)
	if err != nil {
		if isSeed {
			return nil, &FileIOError{Path: outcome.FilePath, Message: "reading saved page", err: err}
		}
		_ = c.sink.message(Message{
			SessionIDValue:    c.sessionID,
			ResourceNameValue: resourceName,
			Content:           fmt.Sprintf("reading saved page %s: %v", outcome.FilePath, err),
			IsError:           true,
		})
		return nil, nil
	}
	defer f.Close()

	anchors, assets, err := extractLinks(f, pageURL)
	if err != nil {
		if isSeed {
			return nil, &InvalidHTMLError{Path: outcome.FilePath}
		}
		_ = c.sink.message(Message{
			SessionIDValue:    c.sessionID,
			ResourceNameValue: resourceName,
			Content:           fmt.Sprintf("parsing saved page %s: %v", outcome.FilePath, err),
			IsError:           true,
		})
		return nil, nil
	}

	if err := c.downloadAssets(ctx, assets, c.rule); err != nil {
		return nil, err
	}

	if !collectAnchors {
		return nil, nil
	}

	var keep []AnchorLink
	for _, a := range anchors {
		if strings.Contains(a.RelativeLink, c.destDir) {
			continue
		}
		key := a.AbsoluteURL.String()
		if c.session.HasPage(key) || c.session.HasAsset(key) {
			continue
		}
		keep = append(keep, a)
	}
	return keep, nil
}

// downloadAssets spawns one worker per asset, bounded by an ants pool
// sized from rule.workers(), waits for all of them (plain
// errgroup.Group, not WithContext), and returns the first fatal error
// errgroup surfaces. Each worker applies the abort policy to its own
// failure (see downloadOneAsset) before errgroup sees it.
func (c *coordinator) downloadAssets(ctx context.Context, assets []AssetLink, rule DownloadRule) error {
	var pending []AssetLink
	for _, a := range assets {
		if strings.Contains(a.RelativeLink, c.destDir) {
			continue
		}
		key := a.AbsoluteURL.String()
		if c.session.HasPage(key) || c.session.HasAsset(key) {
			continue
		}
		pending = append(pending, a)
	}
	if len(pending) == 0 {
		return nil
	}

	pool, err := ants.NewPool(rule.workers())
	if err != nil {
		return &InternalError{Message: "creating worker pool", err: err}
	}
	defer pool.Release()

	var g errgroup.Group
	for _, a := range pending {
		a := a
		g.Go(func() error {
			done := make(chan error, 1)
			submitErr := pool.Submit(func() {
				done <- c.downloadOneAsset(ctx, a, rule)
			})
			if submitErr != nil {
				return &InternalError{Message: "submitting asset download", err: submitErr}
			}
			return <-done
		})
	}

	return g.Wait()
}

// downloadOneAsset fetches a single asset and, per step 6, classifies
// any failure against the abort policy: a non-fatal error is reported
// as a Message and swallowed (returns nil to errgroup); a fatal error
// is returned so g.Wait() surfaces it.
func (c *coordinator) downloadOneAsset(ctx context.Context, a AssetLink, rule DownloadRule) error {
	resourceName := a.AbsoluteURL.String()

	outcome := c.fetcher.Fetch(ctx, a.AbsoluteURL, c.destDir, rule, c.sink, resourceName, "")
	switch outcome.Kind {
	case FetchSkipped:
		return nil
	case FetchSaved:
		c.session.RecordAsset(resourceName, LinkInfo{
			RelativeLink:     a.RelativeLink,
			FilePath:         outcome.FilePath,
			ElementAttribute: a.Attribute,
		})
		return nil
	}

	if fatalForAssetError(outcome.Err, rule.AbortOnDownloadError) {
		return outcome.Err
	}

	_ = c.sink.message(Message{
		SessionIDValue:    c.sessionID,
		ResourceNameValue: resourceName,
		Content:           outcome.Err.Error(),
		IsError:           true,
	})
	return nil
}
