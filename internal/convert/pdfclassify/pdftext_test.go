package pdfclassify

import (
	"bytes"
	"compress/zlib"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMinimalPDF(t *testing.T, content string) string {
	t.Helper()
	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	_, err := w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var pdf bytes.Buffer
	pdf.WriteString("%PDF-1.4\n")
	pdf.WriteString("1 0 obj\n<< /Type /Page /Filter /FlateDecode /Length ")
	pdf.WriteString("0")
	pdf.WriteString(" >>\nstream\n")
	pdf.Write(compressed.Bytes())
	pdf.WriteString("\nendstream\nendobj\n")

	dir := t.TempDir()
	path := filepath.Join(dir, "test.pdf")
	require.NoError(t, os.WriteFile(path, pdf.Bytes(), 0o644))
	return path
}

func TestStdlibPageTextExtractorExtractsTj(t *testing.T) {
	path := buildMinimalPDF(t, "BT /F1 12 Tf (Hello World) Tj ET")

	pages, err := NewStdlibPageTextExtractor().PageTexts(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0], "Hello World")
}

func TestStdlibPageTextExtractorDetectsEncryption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.pdf")
	content := []byte("%PDF-1.4\ntrailer\n<< /Encrypt 5 0 R >>\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	_, err := NewStdlibPageTextExtractor().PageTexts(path)
	require.Error(t, err)
	var pwErr *PasswordProtectedError
	assert.ErrorAs(t, err, &pwErr)
}

func TestStdlibPageTextExtractorSkipsNonContentStreams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.pdf")
	content := []byte("%PDF-1.4\n1 0 obj\n<< /Type /XObject >>\nstream\nnotcontent\nendstream\nendobj\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	pages, err := NewStdlibPageTextExtractor().PageTexts(path)
	require.NoError(t, err)
	assert.Empty(t, pages)
}
