package mirror

import "strings"

// mimeExtensions maps a Content-Type value (case-folded, charset
// stripped) to a file extension, for the case where a download has
// neither a usable URL path segment nor a Content-Disposition header.
var mimeExtensions = map[string]string{
	"text/html":                     ".html",
	"image/jpeg":                    ".jpg",
	"text/javascript":               ".js",
	"application/javascript":        ".js",
	"application/json":              ".json",
	"audio/mpeg":                    ".mp3",
	"video/mp4":                     ".mp4",
	"video/mpeg":                    ".mpeg",
	"audio/ogg":                     ".oga",
	"video/ogg":                     ".ogv",
	"font/otf":                      ".otf",
	"image/png":                     ".png",
	"application/pdf":               ".pdf",
	"application/vnd.ms-powerpoint": ".ppt",
	"application/xhtml+xml":         ".xhtml",
	"text/css":                      ".css",
	"image/gif":                     ".gif",
}

// extensionForContentType derives a file extension from a raw
// Content-Type header value, case-folding and stripping any
// parameters (e.g. "; charset=utf-8") first.
func extensionForContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return mimeExtensions[ct]
}
