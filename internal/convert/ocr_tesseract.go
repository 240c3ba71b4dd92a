package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractCaptioner implements Captioner with local, offline Tesseract
// OCR. Adapted from the teacher's internal/processor/tesseract_ocr.go:
// same confidence heuristic, generalized from the teacher's OCRResult
// struct to this adapter's (markdown, confidence, error) contract.
type TesseractCaptioner struct {
	tesseractPath string
}

func NewTesseractCaptioner(tesseractPath string) *TesseractCaptioner {
	if tesseractPath == "" {
		tesseractPath = "/usr/bin/tesseract"
	}
	return &TesseractCaptioner{tesseractPath: tesseractPath}
}

func (t *TesseractCaptioner) Caption(ctx context.Context, imageData []byte) (string, float64, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	return text, tesseractConfidence(text), nil
}

func tesseractConfidence(text string) float64 {
	confidence := 0.5
	if len(text) > 1000 {
		confidence += 0.1
	}
	if len(text) > 5000 {
		confidence += 0.1
	}
	if words := strings.Fields(text); len(words) > 100 {
		confidence += 0.1
	}

	alphaCount := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alphaCount++
		}
	}
	if len(text) > 0 {
		ratio := float64(alphaCount) / float64(len(text))
		if ratio > 0.5 && ratio < 0.9 {
			confidence += 0.1
		}
	}

	if confidence > 0.85 {
		confidence = 0.85
	}
	return confidence
}
