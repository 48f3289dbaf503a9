// Package extract reads display metadata out of uploaded PDF documents.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"equity-backend/internal/shared/telemetry"
)

// Title returns the document title from the PDF's Info dictionary, falling
// back to the given name when the file has no usable title metadata. A
// broken or unreadable PDF degrades to the fallback rather than failing:
// the title is presentation only.
func Title(path, fallback string) string {
	f, err := os.Open(path)
	if err != nil {
		telemetry.Warn("extract.title.open_failed", map[string]any{"path": path, "err": err.Error()})
		return fallback
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fallback
	}
	title, err := readTitle(f, info.Size())
	if err != nil {
		telemetry.Warn("extract.title.failed", map[string]any{"path": path, "err": err.Error()})
		return fallback
	}
	if title == "" {
		return fallback
	}
	return title
}

// readTitle isolates the metadata walk; the pdf library panics on some
// malformed value structures.
func readTitle(r io.ReaderAt, size int64) (title string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf metadata: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	v := reader.Trailer().Key("Info").Key("Title")
	if v.Kind() != pdf.String {
		return "", nil
	}
	return strings.TrimSpace(v.Text()), nil
}

// Text extracts the plain text of a PDF. The batch analyzer uses it to
// reject unreadable files before spending an upload on them.
func Text(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
