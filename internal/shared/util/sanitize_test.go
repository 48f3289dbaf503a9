package util

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "report.pdf", want: "report.pdf"},
		{name: "slashes replaced", in: "a/b\\c.pdf", want: "a_b_c.pdf"},
		{name: "trimmed", in: "  doc.pdf  ", want: "doc.pdf"},
		{name: "traversal neutralized", in: "../etc/passwd", want: "__etc_passwd"},
		{name: "empty falls back", in: "   ", want: "upload"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFileName(tc.in); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestVectorStoreNameTruncates(t *testing.T) {
	name := VectorStoreName("session-1", strings.Repeat("x", 200)+".pdf")
	if len(name) != 100 {
		t.Fatalf("expected 100 chars, got %d", len(name))
	}
	if !strings.HasPrefix(name, "vs_session-1_") {
		t.Fatalf("unexpected prefix: %q", name)
	}
}

func TestVectorStoreNameReplacesSpaces(t *testing.T) {
	name := VectorStoreName("s1", "my report.pdf")
	if strings.Contains(name, " ") {
		t.Fatalf("expected no spaces, got %q", name)
	}
}
