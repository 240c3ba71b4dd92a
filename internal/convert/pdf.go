package convert

import (
	"context"
	"errors"
	"strings"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/convert/pdfclassify"
	"github.com/owenffff/infotransform-engine/internal/model"
)

var pdfExts = map[string]bool{".pdf": true}

// PDFAdapter delegates routing to the PDF Classifier (C3): cheap text
// extraction for text-dense PDFs, OCR for scanned ones.
type PDFAdapter struct {
	classifier *pdfclassify.Classifier
	extractor  pdfclassify.PageTextExtractor
	ocr        Captioner // nil means OCR is configured-disabled
	read       func(path string) ([]byte, error)
}

func NewPDFAdapter(classifier *pdfclassify.Classifier, extractor pdfclassify.PageTextExtractor, ocr Captioner, read func(string) ([]byte, error)) *PDFAdapter {
	return &PDFAdapter{classifier: classifier, extractor: extractor, ocr: ocr, read: read}
}

func (a *PDFAdapter) Name() string { return "pdf" }

func (a *PDFAdapter) Supports(filename string) bool {
	return pdfExts[extOf(filename)]
}

func (a *PDFAdapter) Convert(ctx context.Context, path string) model.ConversionResult {
	decision, err := a.classifier.Classify(path)
	if err != nil {
		var pwErr *pdfclassify.PasswordProtectedError
		if errors.As(err, &pwErr) {
			return model.ConversionResult{OK: false, Err: apperrors.PasswordRequired("PDF requires a password to open")}
		}
		return model.ConversionResult{OK: false, Err: apperrors.Internal("PDF analysis failed", err)}
	}

	if !decision.NeedsOCR {
		pages, err := a.extractor.PageTexts(path)
		if err != nil {
			return model.ConversionResult{OK: false, Err: apperrors.Internal("PDF text extraction failed", err)}
		}
		return model.ConversionResult{OK: true, Markdown: strings.Join(pages, "\n\n")}
	}

	if a.ocr == nil {
		return model.ConversionResult{OK: false, Err: apperrors.OCRUnavailable(decision.Reason)}
	}

	data, err := a.read(path)
	if err != nil {
		return model.ConversionResult{OK: false, Err: apperrors.Internal("failed to read PDF for OCR", err)}
	}
	markdown, _, err := a.ocr.Caption(ctx, data)
	if err != nil {
		return model.ConversionResult{OK: false, Err: apperrors.Internal("OCR failed", err)}
	}
	return model.ConversionResult{OK: true, Markdown: markdown}
}
