package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySelectsFirstMatchByExtension(t *testing.T) {
	registry := NewRegistry(
		NewPDFAdapter(nil, nil, nil, nil),
		NewAudioAdapter(nil, nil),
		NewVisionAdapter(nil, nil),
		NewPassthroughAdapter(),
	)

	adapter, ok := registry.Select("report.pdf")
	require.True(t, ok)
	assert.Equal(t, "pdf", adapter.Name())

	adapter, ok = registry.Select("notes.txt")
	require.True(t, ok)
	assert.Equal(t, "passthrough", adapter.Name())
}

func TestRegistryUnsupportedExtensionFallsBackToSniffing(t *testing.T) {
	registry := NewRegistry(
		NewPDFAdapter(nil, nil, nil, nil),
		NewAudioAdapter(nil, nil),
		NewVisionAdapter(nil, nil),
		NewPassthroughAdapter(),
	)

	dir := t.TempDir()
	path := filepath.Join(dir, "no-extension")
	require.NoError(t, os.WriteFile(path, []byte("plain text content"), 0o644))

	_, ok := registry.Select(path)
	assert.True(t, ok)
}

func TestPassthroughAdapterReadsFileVerbatim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	a := NewPassthroughAdapter()
	result := a.Convert(context.Background(), path)
	assert.True(t, result.OK)
	assert.Equal(t, "hello world", result.Markdown)
}
