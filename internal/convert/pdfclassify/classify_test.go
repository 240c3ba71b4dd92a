package pdfclassify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExtractor struct {
	pages []string
	err   error
}

func (f *fakeExtractor) PageTexts(path string) ([]string, error) {
	return f.pages, f.err
}

func TestClassifyRoutesToOCRBelowThreshold(t *testing.T) {
	extractor := &fakeExtractor{pages: []string{"", "a few words here"}}
	c := New(extractor, 50, 70)

	decision, err := c.Classify("doc.pdf")
	assert.NoError(t, err)
	assert.True(t, decision.NeedsOCR)
	assert.Equal(t, 2, decision.TotalPages)
	assert.Equal(t, 0, decision.TextPages)
}

func TestClassifySkipsOCRAboveThreshold(t *testing.T) {
	longText := make([]byte, 200)
	for i := range longText {
		longText[i] = 'a'
	}
	extractor := &fakeExtractor{pages: []string{string(longText), string(longText)}}
	c := New(extractor, 50, 70)

	decision, err := c.Classify("doc.pdf")
	assert.NoError(t, err)
	assert.False(t, decision.NeedsOCR)
	assert.Equal(t, 2, decision.TextPages)
}

func TestClassifyEmptyDocumentNeedsOCR(t *testing.T) {
	extractor := &fakeExtractor{pages: nil}
	c := New(extractor, 50, 70)

	decision, err := c.Classify("doc.pdf")
	assert.NoError(t, err)
	assert.True(t, decision.NeedsOCR)
	assert.Equal(t, "could not read PDF pages", decision.Reason)
}

func TestClassifyPropagatesPasswordError(t *testing.T) {
	extractor := &fakeExtractor{err: &PasswordProtectedError{Path: "secret.pdf"}}
	c := New(extractor, 50, 70)

	_, err := c.Classify("secret.pdf")
	assert.Error(t, err)
	var pwErr *PasswordProtectedError
	assert.ErrorAs(t, err, &pwErr)
}
