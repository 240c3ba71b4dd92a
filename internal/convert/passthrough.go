package convert

import (
	"context"
	"os"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/model"
)

var passthroughExts = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".json": true,
}

// PassthroughAdapter handles files that are already text/Markdown.
// It is the fixed-order adapter of last resort.
type PassthroughAdapter struct{}

func NewPassthroughAdapter() *PassthroughAdapter { return &PassthroughAdapter{} }

func (a *PassthroughAdapter) Name() string { return "passthrough" }

func (a *PassthroughAdapter) Supports(filename string) bool {
	return passthroughExts[extOf(filename)]
}

func (a *PassthroughAdapter) Convert(ctx context.Context, path string) model.ConversionResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ConversionResult{OK: false, Err: apperrors.Internal("failed to read file", err)}
	}
	return model.ConversionResult{OK: true, Markdown: string(data)}
}
