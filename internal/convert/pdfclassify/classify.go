// Package pdfclassify implements the PDF Classifier (C3): per-page
// text-density routing between cheap text extraction and OCR, grounded
// on original_source/backend/infotransform/processors/pdf_processor.py's
// PdfAnalyzer (pdfminer page-by-page text extraction, a
// min_chars_per_page threshold, then a text_page_threshold_percent
// share-of-pages decision).
package pdfclassify

import "fmt"

// PageTextExtractor extracts the raw text of a single PDF page. The
// concrete PDF library is left to the caller (no single PDF text
// library dominates the example corpus); tests supply a fake.
type PageTextExtractor interface {
	// PageTexts returns one string per page, in page order, or an
	// error if the PDF could not be opened (including when it is
	// password-protected).
	PageTexts(path string) ([]string, error)
}

// PasswordProtectedError is returned by a PageTextExtractor when a PDF
// requires a password to open.
type PasswordProtectedError struct{ Path string }

func (e *PasswordProtectedError) Error() string {
	return fmt.Sprintf("pdf requires a password: %s", e.Path)
}

// Decision is the classifier's routing outcome for one PDF.
type Decision struct {
	NeedsOCR            bool
	TotalPages          int
	TextPages           int
	ScannedPages        int
	TextPagePercentage  float64
	Reason              string
}

// Classifier decides, per PDF, between cheap text extraction and OCR.
type Classifier struct {
	extractor            PageTextExtractor
	minCharsPerPage       int
	textPageThresholdPct  float64
}

func New(extractor PageTextExtractor, minCharsPerPage int, textPageThresholdPercent float64) *Classifier {
	return &Classifier{
		extractor:           extractor,
		minCharsPerPage:      minCharsPerPage,
		textPageThresholdPct: textPageThresholdPercent,
	}
}

// Classify analyzes a PDF's per-page text density and decides routing.
// A *PasswordProtectedError from the extractor is surfaced as-is so
// the caller can map it to apperrors.KindPasswordRequired.
func (c *Classifier) Classify(path string) (Decision, error) {
	pages, err := c.extractor.PageTexts(path)
	if err != nil {
		return Decision{}, err
	}

	total := len(pages)
	if total == 0 {
		return Decision{
			NeedsOCR: true,
			Reason:   "could not read PDF pages",
		}, nil
	}

	textPages := 0
	for _, text := range pages {
		if countNonWhitespace(text) >= c.minCharsPerPage {
			textPages++
		}
	}
	scannedPages := total - textPages
	pct := (float64(textPages) / float64(total)) * 100
	needsOCR := pct < c.textPageThresholdPct

	reason := fmt.Sprintf("%.1f%% of pages have sufficient text (threshold %.1f%%)", pct, c.textPageThresholdPct)
	if needsOCR {
		reason = "routing to OCR: " + reason
	} else {
		reason = fmt.Sprintf("using text extraction, skipping %d scanned pages: %s", scannedPages, reason)
	}

	return Decision{
		NeedsOCR:           needsOCR,
		TotalPages:         total,
		TextPages:          textPages,
		ScannedPages:       scannedPages,
		TextPagePercentage: pct,
		Reason:             reason,
	}, nil
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			n++
		}
	}
	return n
}
