package main

import (
	"os"
	"path/filepath"
	"testing"

	"wsmirror/internal/mirror"
)

func TestApplyRuleFileOverlaysSetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rule.toml")
	contents := `
max_depth = 3
abort_on_download_error = true
blacklist = ["tracker/", "ads/"]
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	base := mirror.DownloadRule{MaxStaticFileSize: 1024, MaxDepth: 0}
	got, err := applyRuleFile(path, base)
	if err != nil {
		t.Fatalf("applyRuleFile: %v", err)
	}

	if got.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", got.MaxDepth)
	}
	if !got.AbortOnDownloadError {
		t.Error("AbortOnDownloadError = false, want true")
	}
	if len(got.BlackList) != 2 {
		t.Errorf("BlackList = %v, want 2 entries", got.BlackList)
	}
	if got.MaxStaticFileSize != 1024 {
		t.Errorf("MaxStaticFileSize = %d, want unchanged 1024", got.MaxStaticFileSize)
	}
}

func TestApplyRuleFileMissingPathIsNotAnError(t *testing.T) {
	base := mirror.DownloadRule{MaxDepth: 2}
	got, err := applyRuleFile(filepath.Join(t.TempDir(), "absent.toml"), base)
	if err != nil {
		t.Fatalf("expected no error for a missing rule file, got %v", err)
	}
	if got.MaxDepth != base.MaxDepth {
		t.Errorf("expected base rule unchanged, got %+v", got)
	}
}

func TestApplyRuleFileEmptyPathIsNotAnError(t *testing.T) {
	base := mirror.DownloadRule{MaxDepth: 2}
	got, err := applyRuleFile("", base)
	if err != nil {
		t.Fatalf("expected no error for an empty path, got %v", err)
	}
	if got.MaxDepth != base.MaxDepth {
		t.Errorf("expected base rule unchanged, got %+v", got)
	}
}

func TestApplyRuleFileRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rule.toml")
	if err := os.WriteFile(path, []byte("not_a_real_field = 1\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	_, err := applyRuleFile(path, mirror.DownloadRule{})
	if err == nil {
		t.Fatal("expected an error for an unrecognized rule file key")
	}
}
