package convert

import (
	"context"
	"fmt"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/model"
)

var visionExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".tiff": true, ".bmp": true, ".docx": true, ".pptx": true, ".xlsx": true,
}

// Captioner is the out-of-scope collaborator that turns image bytes
// into Markdown (OCR text plus, where available, an LLM image
// caption). The concrete provider SDK lives outside this module; the
// engine only depends on this narrow interface (spec.md §1).
type Captioner interface {
	Caption(ctx context.Context, imageData []byte) (markdown string, confidence float64, err error)
}

// VisionAdapter handles images and office formats that need a
// Markdown-conversion library plus LLM image-captioning.
type VisionAdapter struct {
	captioner Captioner
	read      func(path string) ([]byte, error)
}

func NewVisionAdapter(captioner Captioner, read func(path string) ([]byte, error)) *VisionAdapter {
	return &VisionAdapter{captioner: captioner, read: read}
}

func (a *VisionAdapter) Name() string { return "vision" }

func (a *VisionAdapter) Supports(filename string) bool {
	return visionExts[extOf(filename)]
}

func (a *VisionAdapter) Convert(ctx context.Context, path string) model.ConversionResult {
	if a.captioner == nil {
		return model.ConversionResult{OK: false, Err: apperrors.OCRUnavailable("no vision captioner configured")}
	}

	data, err := a.read(path)
	if err != nil {
		return model.ConversionResult{OK: false, Err: apperrors.Internal("failed to read image", err)}
	}

	markdown, _, err := a.captioner.Caption(ctx, data)
	if err != nil {
		return model.ConversionResult{OK: false, Err: apperrors.Internal(fmt.Sprintf("captioning failed: %v", err), err)}
	}
	return model.ConversionResult{OK: true, Markdown: markdown}
}
