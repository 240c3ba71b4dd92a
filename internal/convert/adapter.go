// Package convert implements the Converter Adapters (C2) and the
// Parallel Converter (C5): file-to-Markdown normalization across
// modalities, run across a bounded worker pool with completion-order
// streaming and original-index reordering.
package convert

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/model"
)

// Adapter is the capability set every converter implements: decide
// whether it accepts a filename, and convert the file to Markdown.
type Adapter interface {
	Name() string
	Supports(filename string) bool
	Convert(ctx context.Context, path string) model.ConversionResult
}

// Registry holds adapters in fixed selection order: pdf, audio,
// vision, passthrough (spec.md §4.2's "first match wins" rule).
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds the fixed-order adapter chain.
func NewRegistry(pdf, audio, vision, passthrough Adapter) *Registry {
	return &Registry{adapters: []Adapter{pdf, audio, vision, passthrough}}
}

// Select returns the first adapter (in fixed order) that accepts
// filename, falling back to magic-byte sniffing when the extension is
// absent or unrecognized by any adapter.
func (r *Registry) Select(path string) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.Supports(path) {
			return a, true
		}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, false
	}
	mime := mt.String()
	for _, a := range r.adapters {
		if adapterAcceptsMIME(a.Name(), mime) {
			return a, true
		}
	}
	return nil, false
}

// adapterAcceptsMIME maps a sniffed MIME type onto one of the four
// fixed adapter names, used only when extension-based Supports misses.
func adapterAcceptsMIME(adapterName, mime string) bool {
	switch adapterName {
	case "pdf":
		return mime == "application/pdf"
	case "audio":
		return strings.HasPrefix(mime, "audio/")
	case "vision":
		return strings.HasPrefix(mime, "image/")
	case "passthrough":
		return strings.HasPrefix(mime, "text/")
	}
	return false
}

// Convert runs adapter selection then conversion, coercing both an
// unsupported extension and an adapter panic/error into a
// ConversionResult — conversion never raises past this boundary.
func (r *Registry) Convert(ctx context.Context, entry model.FileEntry) (result model.ConversionResult) {
	result = model.ConversionResult{FileEntry: entry}
	defer func() {
		if rec := recover(); rec != nil {
			result.OK = false
			result.Err = apperrors.Internal("adapter panicked", nil).WithDetail("recovered", rec)
		}
	}()

	adapter, ok := r.Select(entry.Path)
	if !ok {
		result.OK = false
		result.Err = apperrors.Unsupported("no adapter accepts this file extension")
		return result
	}

	converted := adapter.Convert(ctx, entry.Path)
	converted.FileEntry = entry
	return converted
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
