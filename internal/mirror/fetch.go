package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	sanitize "github.com/mrz1836/go-sanitize"
)

// FetchOutcomeKind distinguishes the three shapes a fetch can end in.
type FetchOutcomeKind int

const (
	// FetchSkipped means the target was never requested (blacklist)
	// or was requested but rejected on size policy.
	FetchSkipped FetchOutcomeKind = iota
	// FetchSaved means bytes were fully written to FilePath.
	FetchSaved
	// FetchFailed means Err names the reason.
	FetchFailed
)

// FetchOutcome is the result of one Fetcher.Fetch call.
type FetchOutcome struct {
	Kind     FetchOutcomeKind
	FilePath string
	Err      error
}

// Fetcher performs a single GET, streams the body to disk, and emits
// Progress updates as it goes. Filenames it derives are passed
// through go-sanitize before anything touches disk.
type Fetcher struct {
	client *http.Client

	namesMu sync.Mutex
	names   map[string]string // derived filename -> owning URL, for collision detection
}

// NewFetcher builds the one HTTP client shared read-only by every
// worker in a session, so all concurrent downloads reuse the same
// connection pool.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		names: make(map[string]string),
	}
}

// claimName resolves filename collisions in the flat destination
// directory: the first URL to derive a given name keeps it; any other
// URL that derives the same name gets an 8-hex-char prefix of
// sha256(url) so two distinct resources never overwrite each other.
func (f *Fetcher) claimName(name, rawURL string) string {
	f.namesMu.Lock()
	defer f.namesMu.Unlock()

	if owner, ok := f.names[name]; !ok || owner == rawURL {
		f.names[name] = rawURL
		return name
	}

	sum := sha256.Sum256([]byte(rawURL))
	prefixed := hex.EncodeToString(sum[:])[:8] + "-" + name
	f.names[prefixed] = rawURL
	return prefixed
}

// Fetch downloads target into destDir and returns the outcome.
// forcedName, when non-empty, is used verbatim as the on-disk
// filename (the seed is always "index.html").
func (f *Fetcher) Fetch(ctx context.Context, target *url.URL, destDir string, rule DownloadRule, s *sink, resourceName, forcedName string) FetchOutcome {
	raw := target.String()

	for _, substr := range rule.BlackList {
		if substr != "" && strings.Contains(raw, substr) {
			return FetchOutcome{Kind: FetchSkipped}
		}
	}

	if info, err := os.Stat(destDir); err != nil || !info.IsDir() {
		return FetchOutcome{Kind: FetchFailed, Err: &DestinationMissingError{Path: destDir}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return FetchOutcome{Kind: FetchFailed, Err: &NetworkError{URL: raw, err: err}}
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchOutcome{Kind: FetchFailed, Err: &NetworkError{URL: raw, err: err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FetchOutcome{Kind: FetchFailed, Err: &BadStatusError{Code: strconv.Itoa(resp.StatusCode), URL: raw}}
	}

	name := forcedName
	if name == "" {
		name = sanitize.FileName(deriveFilename(target, resp))
		name = f.claimName(name, raw)
	}
	destPath := path.Join(destDir, name)

	contentLength := int64(0)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > 0 {
			contentLength = n
		}
	}

	if contentLength > 0 && contentLength > rule.MaxStaticFileSize {
		return FetchOutcome{Kind: FetchSkipped}
	}
	if contentLength == 0 && !rule.DownloadStaticResourceWithUnknownSize {
		return FetchOutcome{Kind: FetchSkipped}
	}

	if contentLength > 0 {
		if existing, err := os.Stat(destPath); err == nil && existing.Size() >= contentLength {
			_ = s.progress(resourceName, Progress{
				ResourceNameValue: resourceName,
				BytesWritten:      uint64(contentLength),
				FileSize:          uint64(contentLength),
			}, true)
			return FetchOutcome{Kind: FetchSaved, FilePath: destPath}
		}
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return FetchOutcome{Kind: FetchFailed, Err: &FileIOError{Path: destPath, Message: "creating destination file", err: err}}
	}
	defer out.Close()

	var written uint64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return FetchOutcome{Kind: FetchFailed, Err: &FileIOError{Path: destPath, Message: "writing destination file", err: writeErr}}
			}
			written += uint64(n)

			if sendErr := s.progress(resourceName, Progress{
				ResourceNameValue: resourceName,
				BytesWritten:      written,
				FileSize:          uint64(contentLength),
			}, false); sendErr != nil {
				return FetchOutcome{Kind: FetchFailed, Err: errors.Wrap(sendErr, "sending progress")}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return FetchOutcome{Kind: FetchFailed, Err: &NetworkError{URL: raw, err: readErr}}
		}
	}

	finalSize := uint64(contentLength)
	if finalSize == 0 {
		finalSize = written
	}
	if sendErr := s.progress(resourceName, Progress{
		ResourceNameValue: resourceName,
		BytesWritten:      written,
		FileSize:          finalSize,
	}, true); sendErr != nil {
		return FetchOutcome{Kind: FetchFailed, Err: errors.Wrap(sendErr, "sending final progress")}
	}

	return FetchOutcome{Kind: FetchSaved, FilePath: destPath}
}

// deriveFilename picks a filename for a non-forced download: the
// last path segment of the URL, falling back to the Content-Disposition
// header, falling back to a timestamped name with an extension guessed
// from Content-Type.
func deriveFilename(target *url.URL, resp *http.Response) string {
	if name := lastPathSegment(target); name != "" {
		return name
	}

	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if name := filenameFromContentDisposition(cd); name != "" {
			return name
		}
	}

	ext := extensionForContentType(resp.Header.Get("Content-Type"))
	return "file-" + strconv.FormatInt(time.Now().UnixNano(), 10) + ext
}

func lastPathSegment(u *url.URL) string {
	p := u.Path
	if idx := strings.LastIndex(p, "/"); idx != -1 {
		p = p[idx+1:]
	}
	return p
}

// filenameFromContentDisposition supports both the plain filename=
// parameter and the RFC 5987 filename*= form, stripping surrounding
// quotes from the former.
func filenameFromContentDisposition(cd string) string {
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	if name, ok := params["filename*"]; ok && name != "" {
		return stripCharsetEncoding(name)
	}
	if name, ok := params["filename"]; ok {
		return strings.Trim(name, `"`)
	}
	return ""
}

// stripCharsetEncoding strips a leading RFC 5987 charset''... prefix,
// e.g. "UTF-8''report.pdf" -> "report.pdf".
func stripCharsetEncoding(v string) string {
	if idx := strings.Index(v, "''"); idx != -1 {
		return v[idx+2:]
	}
	return v
}
