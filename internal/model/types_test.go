package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageAddCountsCacheHitsWithZeroTokens(t *testing.T) {
	var total Usage
	total.Add(Usage{InputTokens: 10, TotalTokens: 10, Requests: 1})
	total.Add(Usage{Cached: true})
	total.Add(Usage{Cached: true})

	assert.EqualValues(t, 10, total.InputTokens, "a cache hit must not contribute tokens")
	assert.EqualValues(t, 1, total.Requests)
	assert.EqualValues(t, 2, total.CacheHits)
}

func TestUsageAddPropagatesExistingCacheHitCounts(t *testing.T) {
	var total Usage
	total.Add(Usage{CacheHits: 3})
	total.Add(Usage{Cached: true})

	assert.EqualValues(t, 4, total.CacheHits)
}
