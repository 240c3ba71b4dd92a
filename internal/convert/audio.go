package convert

import (
	"context"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/model"
)

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true, ".ogg": true,
}

// Transcriber is the out-of-scope speech-to-text provider.
type Transcriber interface {
	Transcribe(ctx context.Context, audioData []byte) (text string, err error)
}

// AudioAdapter converts speech audio to Markdown via a transcriber.
type AudioAdapter struct {
	transcriber Transcriber
	read        func(path string) ([]byte, error)
}

func NewAudioAdapter(transcriber Transcriber, read func(path string) ([]byte, error)) *AudioAdapter {
	return &AudioAdapter{transcriber: transcriber, read: read}
}

func (a *AudioAdapter) Name() string { return "audio" }

func (a *AudioAdapter) Supports(filename string) bool {
	return audioExts[extOf(filename)]
}

func (a *AudioAdapter) Convert(ctx context.Context, path string) model.ConversionResult {
	if a.transcriber == nil {
		return model.ConversionResult{OK: false, Err: apperrors.Unsupported("no audio transcriber configured")}
	}
	data, err := a.read(path)
	if err != nil {
		return model.ConversionResult{OK: false, Err: apperrors.Internal("failed to read audio file", err)}
	}
	text, err := a.transcriber.Transcribe(ctx, data)
	if err != nil {
		return model.ConversionResult{OK: false, Err: apperrors.Internal("transcription failed", err)}
	}
	return model.ConversionResult{OK: true, Markdown: text}
}
