package mirror

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRewriteSessionReplacesAttributeQualifiedPatterns(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.html")

	original := `<html><head><link rel="stylesheet" href="a.css"></head>` +
		`<body><script src="b.js"></script><a href="/p2.html">next</a></body></html>`
	if err := os.WriteFile(indexPath, []byte(original), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	s := NewSession("sess-1", mustParse(t, "http://h/"))
	s.RecordPage("http://h/", LinkInfo{FilePath: indexPath})
	s.RecordPage("http://h/p2.html", LinkInfo{RelativeLink: "/p2.html", FilePath: filepath.Join(dir, "p2.html"), ElementAttribute: "href"})
	s.RecordAsset("http://h/a.css", LinkInfo{RelativeLink: "a.css", FilePath: filepath.Join(dir, "a.css"), ElementAttribute: "href"})
	s.RecordAsset("http://h/b.js", LinkInfo{RelativeLink: "b.js", FilePath: filepath.Join(dir, "b.js"), ElementAttribute: "src"})

	if err := rewriteSession(s); err != nil {
		t.Fatalf("rewriteSession: %v", err)
	}

	rewritten, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("reading rewritten file: %v", err)
	}
	got := string(rewritten)

	for _, want := range []string{
		`href="` + filepath.Join(dir, "a.css") + `"`,
		`src="` + filepath.Join(dir, "b.js") + `"`,
		`href="` + filepath.Join(dir, "p2.html") + `"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rewritten file missing %q, got: %s", want, got)
		}
	}
}
