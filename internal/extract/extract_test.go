package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTitleMissingFileFallsBack(t *testing.T) {
	got := Title(filepath.Join(t.TempDir(), "absent.pdf"), "report.pdf")
	if got != "report.pdf" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestTitleUnreadablePDFFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := Title(path, "broken.pdf")
	if got != "broken.pdf" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestTextRejectsGarbage(t *testing.T) {
	if _, err := Text([]byte("garbage")); err == nil {
		t.Fatal("expected error for non-PDF payload")
	}
}
