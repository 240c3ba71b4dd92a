package summarize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/owenffff/infotransform-engine/internal/logging"
)

type fakeSummarizer struct {
	out string
	err error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	return f.out, f.err
}

type fakeEstimator struct{ tokensPerChar float64 }

func (f *fakeEstimator) Estimate(text string) int { return len(text) }

func TestShouldSummarizeThreshold(t *testing.T) {
	svc := NewService(&fakeSummarizer{}, &fakeEstimator{}, 10, logging.NewDevelopment("summarize-test"))

	assert.False(t, svc.ShouldSummarize("short"))
	assert.True(t, svc.ShouldSummarize("this text is definitely longer than ten characters"))
}

func TestSummarizeSuccess(t *testing.T) {
	svc := NewService(&fakeSummarizer{out: "short summary"}, &fakeEstimator{}, 10, logging.NewDevelopment("summarize-test"))

	res := svc.Summarize(context.Background(), "a very long original document body", []string{"title", "summary"}, "doc.txt")
	assert.True(t, res.OK)
	assert.Equal(t, "short summary", res.Summary)
	assert.Greater(t, res.CompressionRatio, 1.0)
}

func TestSummarizeFailureNeverReturnsOriginalContent(t *testing.T) {
	svc := NewService(&fakeSummarizer{err: errors.New("provider down")}, &fakeEstimator{}, 10, logging.NewDevelopment("summarize-test"))

	res := svc.Summarize(context.Background(), "original content", nil, "doc.txt")
	assert.False(t, res.OK)
	assert.Empty(t, res.Summary)
	assert.Error(t, res.Err)
}
