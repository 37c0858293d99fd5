package mirror

import (
	"log/slog"
	"net/url"
)

// resolveLink turns a possibly-relative link, plus the page it was
// found on, into an absolute URL. It returns false when the link is
// empty or fails to parse even relative to base. An absolute parse
// wins outright; otherwise the link is resolved against base per
// RFC 3986 reference resolution, and a failure there is dropped and
// logged rather than treated as fatal.
func resolveLink(link string, base *url.URL) (*url.URL, bool) {
	if link == "" {
		return nil, false
	}

	if u, err := url.Parse(link); err == nil && u.IsAbs() {
		return u, true
	}

	resolved, err := base.Parse(link)
	if err != nil {
		slog.Debug("failed to resolve link", "link", link, "base", base.String(), "error", err)
		return nil, false
	}
	return resolved, true
}

// sameHost compares two URLs by host only, ignoring port and scheme.
func sameHost(a, b *url.URL) bool {
	return a.Hostname() == b.Hostname()
}
