package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
)

func TestEstimateIsDeterministic(t *testing.T) {
	e := NewEstimator("cl100k_base", logging.NewDevelopment("tokens-test"))
	a := e.Estimate("the quick brown fox jumps over the lazy dog")
	b := e.Estimate("the quick brown fox jumps over the lazy dog")
	assert.Equal(t, a, b)
	assert.Greater(t, a, 0)
}

func TestEstimateFallsBackWithBadEncoding(t *testing.T) {
	e := NewEstimator("not-a-real-encoding", logging.NewDevelopment("tokens-test"))
	assert.Equal(t, len("abcdefgh")/4, e.Estimate("abcdefgh"))
}

func TestUsageAccumulatesAdditively(t *testing.T) {
	e := NewEstimator("cl100k_base", logging.NewDevelopment("tokens-test"))
	e.AddUsage(model.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, Requests: 1})
	e.AddUsage(model.Usage{InputTokens: 20, OutputTokens: 5, TotalTokens: 25, Requests: 1})

	usage := e.Usage()
	assert.EqualValues(t, 30, usage.InputTokens)
	assert.EqualValues(t, 10, usage.OutputTokens)
	assert.EqualValues(t, 40, usage.TotalTokens)
	assert.EqualValues(t, 2, usage.Requests)
}
