package mirror

import (
	"os"
	"strings"
)

// rewriteSession runs after every download is done: it rewrites every
// recorded page file so each attribute="relative_link" occurrence
// points at its local file_path instead. It builds one
// strings.NewReplacer from every recorded page and asset and applies
// it to each page file in a single pass, so a replacement's own
// output is never rescanned.
func rewriteSession(s *Session) error {
	pages, assets := s.Snapshot()

	var oldnew []string
	appendEntry := func(info LinkInfo) {
		if info.RelativeLink == "" || info.ElementAttribute == "" {
			return
		}
		pattern := info.ElementAttribute + `="` + info.RelativeLink + `"`
		replacement := info.ElementAttribute + `="` + info.FilePath + `"`
		oldnew = append(oldnew, pattern, replacement)
	}
	for _, info := range pages {
		appendEntry(info)
	}
	for _, info := range assets {
		appendEntry(info)
	}

	if len(oldnew) == 0 {
		return nil
	}
	replacer := strings.NewReplacer(oldnew...)

	for _, info := range pages {
		if err := rewriteFile(info.FilePath, replacer); err != nil {
			return err
		}
	}
	return nil
}

func rewriteFile(path string, replacer *strings.Replacer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &FileIOError{Path: path, Message: "reading page for rewrite", err: err}
	}

	rewritten := replacer.Replace(string(content))

	if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
		return &FileIOError{Path: path, Message: "writing rewritten page", err: err}
	}
	return nil
}
