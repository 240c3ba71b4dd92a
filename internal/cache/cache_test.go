package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenffff/infotransform-engine/internal/logging"
)

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(t.TempDir(), "cache.db")
	}
	if cfg.HashAlgorithm == "" {
		cfg.HashAlgorithm = "sha256"
	}
	cfg.Enabled = true
	c := New(cfg, logging.NewDevelopment("cache-test"))
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Stop)
	return c
}

func TestCacheSetThenGetHit(t *testing.T) {
	c := newTestCache(t, Config{TTLHours: 1, MaxEntries: 100})
	ctx := context.Background()

	ok := c.Set(ctx, "document body", "document_metadata", "gpt-4o", map[string]interface{}{"title": "x"}, 1.5)
	assert.True(t, ok)

	value, hit := c.Get(ctx, "document body", "document_metadata", "gpt-4o")
	assert.True(t, hit)
	assert.Equal(t, map[string]interface{}{"title": "x"}, value)
}

func TestCacheMissOnDifferentSchemaKey(t *testing.T) {
	c := newTestCache(t, Config{TTLHours: 1, MaxEntries: 100})
	ctx := context.Background()

	c.Set(ctx, "document body", "document_metadata", "gpt-4o", map[string]interface{}{"title": "x"}, 1)
	_, hit := c.Get(ctx, "document body", "report_summary", "gpt-4o")
	assert.False(t, hit)
}

func TestCacheRejectsOversizedEntry(t *testing.T) {
	c := newTestCache(t, Config{TTLHours: 1, MaxEntries: 100, MaxEntrySizeBytes: 8})
	ctx := context.Background()

	ok := c.Set(ctx, "doc", "document_metadata", "gpt-4o", map[string]interface{}{"title": "a very long value that exceeds the limit"}, 1)
	assert.False(t, ok)

	_, hit := c.Get(ctx, "doc", "document_metadata", "gpt-4o")
	assert.False(t, hit)
}

func TestCacheDisabledIsNoop(t *testing.T) {
	cfg := Config{TTLHours: 1, MaxEntries: 100, DBPath: filepath.Join(t.TempDir(), "cache.db"), HashAlgorithm: "sha256"}
	c := New(cfg, logging.NewDevelopment("cache-test"))
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	ok := c.Set(context.Background(), "doc", "document_metadata", "gpt-4o", map[string]interface{}{"a": 1}, 1)
	assert.False(t, ok)
}

func TestCacheTTLZeroMeansFarFutureNotDisabled(t *testing.T) {
	c := newTestCache(t, Config{TTLHours: 0, MaxEntries: 100})
	ctx := context.Background()

	c.Set(ctx, "doc", "document_metadata", "gpt-4o", map[string]interface{}{"a": 1}, 1)
	_, hit := c.Get(ctx, "doc", "document_metadata", "gpt-4o")
	assert.True(t, hit)
}

func TestCacheEvictsOldestOverflow(t *testing.T) {
	c := newTestCache(t, Config{TTLHours: 1, MaxEntries: 2})
	ctx := context.Background()

	c.Set(ctx, "doc-1", "document_metadata", "gpt-4o", map[string]interface{}{"n": 1}, 1)
	time.Sleep(5 * time.Millisecond)
	c.Set(ctx, "doc-2", "document_metadata", "gpt-4o", map[string]interface{}{"n": 2}, 1)
	time.Sleep(5 * time.Millisecond)
	c.Set(ctx, "doc-3", "document_metadata", "gpt-4o", map[string]interface{}{"n": 3}, 1)

	_, hit1 := c.Get(ctx, "doc-1", "document_metadata", "gpt-4o")
	_, hit3 := c.Get(ctx, "doc-3", "document_metadata", "gpt-4o")
	assert.False(t, hit1)
	assert.True(t, hit3)
}
