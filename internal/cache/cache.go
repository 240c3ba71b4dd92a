// Package cache implements the Result Cache (C8): a content-addressed
// cache of extraction results backed by a single-file, WAL-mode
// embedded relational store, grounded on
// original_source/backend/infotransform/utils/result_cache.py (hash
// composition, TTL semantics, size-check eviction, background
// sweeper), wired to modernc.org/sqlite — a pure-Go SQLite driver — in
// place of the teacher's client-server lib/pq, since spec.md §4.8
// calls for single-file WAL-style concurrency, which is SQLite
// semantics, not Postgres's.
package cache

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"

	"github.com/owenffff/infotransform-engine/internal/logging"
)

// Config is the Result Cache's configuration surface (result_cache.*
// in spec.md §6).
type Config struct {
	Enabled             bool
	TTLHours            float64
	MaxEntries          int
	HashAlgorithm       string // "sha256" | "sha1" | "md5"
	MaxEntrySizeBytes   int64
	CleanupIntervalHours float64
	DBPath              string
}

// Cache is the Result Cache (C8). Disabled mode makes every operation
// a no-op, per spec.md §4.8.
type Cache struct {
	cfg Config
	log *logging.Logger

	mu  sync.Mutex
	db  *sql.DB
	cron *cron.Cron
}

func New(cfg Config, log *logging.Logger) *Cache {
	return &Cache{cfg: cfg, log: log}
}

// Start opens the database, ensures the schema exists, and launches
// the background sweeper. A no-op when the cache is disabled.
func (c *Cache) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("result cache disabled")
		return nil
	}

	db, err := sql.Open("sqlite", c.cfg.DBPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return fmt.Errorf("opening cache db: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; one conn avoids SQLITE_BUSY

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return fmt.Errorf("creating cache schema: %w", err)
	}

	c.mu.Lock()
	c.db = db
	c.mu.Unlock()

	interval := time.Duration(c.cfg.CleanupIntervalHours * float64(time.Hour))
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	c.cron = cron.New()
	_, err = c.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if n, err := c.sweepExpired(context.Background()); err != nil {
			c.log.Warn("cache sweep failed", "err", err)
		} else if n > 0 {
			c.log.Info("cache sweep removed expired entries", "count", n)
		}
	})
	if err != nil {
		c.log.Warn("failed to schedule cache sweeper", "err", err)
	} else {
		c.cron.Start()
	}

	c.log.Info("result cache started", "db", c.cfg.DBPath, "ttl_hours", c.cfg.TTLHours, "max_entries", c.cfg.MaxEntries)
	return nil
}

// Stop halts the sweeper and closes the database.
func (c *Cache) Stop() {
	if c.cron != nil {
		c.cron.Stop()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS result_cache (
	cache_key TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	schema_key TEXT NOT NULL,
	model_id TEXT NOT NULL,
	structured_data TEXT NOT NULL,
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	hit_count INTEGER DEFAULT 0,
	content_size_bytes INTEGER,
	processing_time REAL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON result_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_cache_content_hash ON result_cache(content_hash);
`

// Get looks up a cached value by content, schema key, and model id.
// Returns (value, true) on hit, (nil, false) on miss or when the
// cache is disabled. Expired rows are dropped lazily on read.
func (c *Cache) Get(ctx context.Context, content, schemaKey, modelID string) (interface{}, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}
	db := c.dbHandle()
	if db == nil {
		return nil, false
	}

	contentHash := c.hashContent(content)
	cacheKey := makeCacheKey(contentHash, schemaKey, modelID)

	var (
		dataJSON     string
		expiresAtStr string
		hitCount     int64
	)
	row := db.QueryRowContext(ctx, `SELECT structured_data, expires_at, hit_count FROM result_cache WHERE cache_key = ?`, cacheKey)
	if err := row.Scan(&dataJSON, &expiresAtStr, &hitCount); err != nil {
		return nil, false
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, expiresAtStr)
	if err != nil {
		c.log.Warn("cache entry has unparseable expiry, treating as miss", "cache_key", cacheKey, "err", err)
		return nil, false
	}
	if time.Now().UTC().After(expiresAt) {
		_, _ = db.ExecContext(ctx, `DELETE FROM result_cache WHERE cache_key = ?`, cacheKey)
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal([]byte(dataJSON), &value); err != nil {
		c.log.Warn("cache entry failed to deserialize, treating as miss", "cache_key", cacheKey, "err", err)
		return nil, false
	}

	_, _ = db.ExecContext(ctx, `UPDATE result_cache SET hit_count = ? WHERE cache_key = ?`, hitCount+1, cacheKey)
	return value, true
}

// Set stores a result. Returns false (without error) when the cache
// is disabled or the serialized entry exceeds MaxEntrySizeBytes — the
// caller still uses the freshly computed result, it is simply not
// cached, matching spec.md §4.8.
func (c *Cache) Set(ctx context.Context, content, schemaKey, modelID string, value interface{}, processingTime float64) bool {
	if !c.cfg.Enabled {
		return false
	}
	db := c.dbHandle()
	if db == nil {
		return false
	}

	dataJSON, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache set: failed to serialize value", "err", err)
		return false
	}
	if c.cfg.MaxEntrySizeBytes > 0 && int64(len(dataJSON)) > c.cfg.MaxEntrySizeBytes {
		c.log.Warn("cache entry too large, skipping cache", "bytes", len(dataJSON), "max", c.cfg.MaxEntrySizeBytes)
		return false
	}

	contentHash := c.hashContent(content)
	cacheKey := makeCacheKey(contentHash, schemaKey, modelID)

	now := time.Now().UTC()
	var expiresAt time.Time
	if c.cfg.TTLHours > 0 {
		expiresAt = now.Add(time.Duration(c.cfg.TTLHours * float64(time.Hour)))
	} else {
		expiresAt = now.AddDate(10, 0, 0) // TTL=0: far-future expiry, not disabled
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO result_cache
			(cache_key, content_hash, schema_key, model_id, structured_data, created_at, expires_at, hit_count, content_size_bytes, processing_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			structured_data = excluded.structured_data,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			content_size_bytes = excluded.content_size_bytes,
			processing_time = excluded.processing_time
	`, cacheKey, contentHash, schemaKey, modelID, string(dataJSON), now.Format(time.RFC3339Nano), expiresAt.Format(time.RFC3339Nano), len(content), processingTime)
	if err != nil {
		c.log.Warn("cache set failed", "err", err)
		return false
	}

	c.evictOverflow(ctx)
	return true
}

// evictOverflow removes the oldest rows (by created_at) until the
// table has at most MaxEntries rows.
func (c *Cache) evictOverflow(ctx context.Context) {
	if c.cfg.MaxEntries <= 0 {
		return
	}
	db := c.dbHandle()
	if db == nil {
		return
	}
	_, err := db.ExecContext(ctx, `
		DELETE FROM result_cache WHERE cache_key IN (
			SELECT cache_key FROM result_cache
			ORDER BY created_at ASC
			LIMIT MAX(0, (SELECT COUNT(*) FROM result_cache) - ?)
		)
	`, c.cfg.MaxEntries)
	if err != nil {
		c.log.Warn("cache eviction failed", "err", err)
	}
}

func (c *Cache) sweepExpired(ctx context.Context) (int64, error) {
	db := c.dbHandle()
	if db == nil {
		return 0, nil
	}
	res, err := db.ExecContext(ctx, `DELETE FROM result_cache WHERE expires_at < ?`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Cache) dbHandle() *sql.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

func (c *Cache) hashContent(content string) string {
	switch c.cfg.HashAlgorithm {
	case "sha1":
		sum := sha1.Sum([]byte(content))
		return hex.EncodeToString(sum[:])
	case "md5":
		sum := md5.Sum([]byte(content))
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256([]byte(content))
		return hex.EncodeToString(sum[:])
	}
}

func makeCacheKey(contentHash, schemaKey, modelID string) string {
	sum := sha256.Sum256([]byte(contentHash + ":" + schemaKey + ":" + modelID))
	return hex.EncodeToString(sum[:])
}
