// Package mirror implements the recursive fetch/extract/link-rewrite
// pipeline that mirrors a website to a local directory for offline
// browsing.
package mirror

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultWorkers bounds the number of concurrent asset downloads
// fanned out per page when DownloadRule.MaxConcurrentFetches is zero.
const DefaultWorkers = 6

// DefaultUserAgent is sent on every request. Many origins reject
// requests that don't look like they came from a desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultUpdateChannelCapacity is the reference buffer size for the
// Update sink a caller passes to Run.
const DefaultUpdateChannelCapacity = 100

// DownloadRule configures one mirroring session.
type DownloadRule struct {
	// MaxStaticFileSize is the upper bound, in bytes, for any asset
	// whose size is known up front via Content-Length.
	MaxStaticFileSize int64 `validate:"gt=0"`

	// DownloadStaticResourceWithUnknownSize controls what happens when
	// Content-Length is absent: true downloads anyway, false skips.
	DownloadStaticResourceWithUnknownSize bool

	// ProgressUpdateInterval is the minimum gap, in milliseconds,
	// between two Progress events for the same resource.
	ProgressUpdateInterval int64 `validate:"gte=0"`

	// MaxDepth is how many anchor-link hops beyond the seed to follow.
	// 0 mirrors the seed and its assets only.
	MaxDepth int `validate:"gte=0"`

	// BlackList holds substrings; any URL containing one is skipped.
	BlackList []string

	// AbortOnDownloadError controls whether a BadStatus (or other
	// policy-governed) asset error aborts the whole session. Network,
	// missing-destination and closed-sink errors abort regardless.
	AbortOnDownloadError bool

	// MaxConcurrentFetches bounds the worker pool used to fan out
	// asset downloads for one page. Zero means DefaultWorkers.
	MaxConcurrentFetches int `validate:"gte=0"`

	// UpdateChannelCapacity documents the buffer size the caller should
	// use for the sink passed to Run; Run itself does not allocate the
	// channel. Zero means DefaultUpdateChannelCapacity.
	UpdateChannelCapacity int `validate:"gte=0"`
}

func (r DownloadRule) progressInterval() time.Duration {
	return time.Duration(r.ProgressUpdateInterval) * time.Millisecond
}

func (r DownloadRule) workers() int {
	if r.MaxConcurrentFetches > 0 {
		return r.MaxConcurrentFetches
	}
	return DefaultWorkers
}

var ruleValidator = validator.New()

// Validate checks DownloadRule's structural invariants. It does not
// check semantic reachability of the seed URL or destination
// directory; those are checked by Run.
func (r DownloadRule) Validate() error {
	if err := ruleValidator.Struct(r); err != nil {
		return newInvalidRuleError(err)
	}
	return nil
}

// Update is a tagged variant emitted to the consumer: either a
// Progress event for an in-flight download, or a terminal/error
// Message.
type Update interface {
	isUpdate()
	ResourceName() string
	SessionID() string
}

// Progress reports streamed bytes for one resource. FileSize is 0
// when the server did not report Content-Length.
type Progress struct {
	SessionIDValue    string
	ResourceNameValue string
	BytesWritten      uint64
	FileSize          uint64
}

func (Progress) isUpdate()              {}
func (p Progress) ResourceName() string { return p.ResourceNameValue }
func (p Progress) SessionID() string    { return p.SessionIDValue }

// Message reports a terminal, human-readable event for one resource:
// either informational or an error.
type Message struct {
	SessionIDValue    string
	ResourceNameValue string
	Content           string
	IsError           bool
}

func (Message) isUpdate()              {}
func (m Message) ResourceName() string { return m.ResourceNameValue }
func (m Message) SessionID() string    { return m.SessionIDValue }
