package mirror

import (
	"github.com/cockroachdb/errors"
)

// ErrChannelClosed is returned when the Update sink has stopped
// accepting values mid-download. It is always fatal.
var ErrChannelClosed = errors.New("mirror: update sink closed")

// InvalidURLError means the seed URL could not be parsed.
type InvalidURLError struct {
	URL string
}

func (e *InvalidURLError) Error() string {
	return "invalid seed url: " + e.URL
}

// DestinationCreationFailedError means mkdir -p of dest_dir failed.
type DestinationCreationFailedError struct {
	Path string
	err  error
}

func (e *DestinationCreationFailedError) Error() string {
	return "failed to create destination directory " + e.Path
}

func (e *DestinationCreationFailedError) Unwrap() error { return e.err }

// DestinationMissingError means a fetch target's directory vanished
// mid-run.
type DestinationMissingError struct {
	Path string
}

func (e *DestinationMissingError) Error() string {
	return "destination directory does not exist: " + e.Path
}

// FileIOError wraps an open/read/write/truncate failure.
type FileIOError struct {
	Path    string
	Message string
	err     error
}

func (e *FileIOError) Error() string {
	return e.Message + ": " + e.Path
}

func (e *FileIOError) Unwrap() error { return e.err }

// NetworkError wraps a transport-level failure during a request or
// mid-stream read.
type NetworkError struct {
	URL string
	err error
}

func (e *NetworkError) Error() string {
	return "network error fetching " + e.URL
}

func (e *NetworkError) Unwrap() error { return e.err }

// BadStatusError means the server returned a non-2xx response.
type BadStatusError struct {
	Code string
	URL  string
}

func (e *BadStatusError) Error() string {
	return "server returned " + e.Code + " for " + e.URL
}

// InvalidHTMLError is returned by Run when the saved seed page cannot
// be parsed at all; the extractor itself is lenient and never returns
// it.
type InvalidHTMLError struct {
	Path string
}

func (e *InvalidHTMLError) Error() string {
	return "invalid html in " + e.Path
}

// InternalError wraps a worker-task failure or other unexpected
// condition that isn't one of the named kinds above.
type InternalError struct {
	Message string
	err     error
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}

func (e *InternalError) Unwrap() error { return e.err }

// InvalidRuleError wraps a DownloadRule validation failure.
type InvalidRuleError struct {
	err error
}

func (e *InvalidRuleError) Error() string {
	return "invalid download rule: " + e.err.Error()
}

func (e *InvalidRuleError) Unwrap() error { return e.err }

func newInvalidRuleError(err error) error {
	return &InvalidRuleError{err: errors.Wrap(err, "validating download rule")}
}

// fatalForAssetError decides whether an asset download error should
// abort the whole session. Network and missing-destination errors are
// always fatal; everything else is fatal only if the caller opted
// into aborting on download errors. It never receives nil.
func fatalForAssetError(err error, abortOnDownloadError bool) bool {
	var destMissing *DestinationMissingError
	var netErr *NetworkError
	if errors.As(err, &destMissing) || errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, ErrChannelClosed) {
		return true
	}
	// BadStatus and every other remaining kind follow the same policy:
	// fatal only when the caller opted into aborting on asset errors.
	return abortOnDownloadError
}
