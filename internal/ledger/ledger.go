// Package ledger implements the Run Ledger (C12): an append-only
// record of every processing run in a single embedded table, WAL
// concurrency, grounded on
// original_source/backend/infotransform/db/processing_logs_db.py
// (single-table design, insert-at-start/update-at-completion,
// swallow-all-errors policy so ledger I/O can never disrupt the
// pipeline).
package ledger

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
)

// Config is the Run Ledger's configuration surface
// (database.processing_logs.* in spec.md §6).
type Config struct {
	Enabled bool
	DBPath  string
}

// Ledger is the Run Ledger (C12). Every public method swallows its
// own errors (logs and returns) — ledger failures must never surface
// to a caller mid-pipeline.
type Ledger struct {
	cfg Config
	log *logging.Logger
	db  *sql.DB
}

func New(cfg Config, log *logging.Logger) *Ledger {
	return &Ledger{cfg: cfg, log: log}
}

// Start opens the database and ensures the schema exists. A no-op
// when the ledger is disabled.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.cfg.Enabled {
		l.log.Info("run ledger disabled")
		return nil
	}
	db, err := sql.Open("sqlite", l.cfg.DBPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		l.log.Error("failed to open ledger db, ledger disabled", "err", err)
		return nil
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		l.log.Error("failed to initialize ledger schema, ledger disabled", "err", err)
		db.Close()
		return nil
	}
	l.db = db
	l.log.Info("run ledger started", "db", l.cfg.DBPath)
	return nil
}

func (l *Ledger) Stop() {
	if l.db != nil {
		l.db.Close()
		l.db = nil
	}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS processing_runs (
	run_id TEXT PRIMARY KEY,
	start_timestamp TEXT NOT NULL,
	end_timestamp TEXT,
	duration_seconds REAL,
	total_files INTEGER NOT NULL,
	successful_files INTEGER DEFAULT 0,
	failed_files INTEGER DEFAULT 0,
	schema_key TEXT NOT NULL,
	schema_name TEXT,
	model_id TEXT,
	custom_instructions TEXT,
	input_tokens INTEGER DEFAULT 0,
	output_tokens INTEGER DEFAULT 0,
	total_tokens INTEGER DEFAULT 0,
	cache_read_tokens INTEGER DEFAULT 0,
	cache_write_tokens INTEGER DEFAULT 0,
	cache_hits INTEGER DEFAULT 0,
	api_requests INTEGER DEFAULT 0,
	status TEXT DEFAULT 'running',
	created_at TEXT DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_runs_start_timestamp ON processing_runs(start_timestamp);
CREATE INDEX IF NOT EXISTS idx_runs_status ON processing_runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_schema_key ON processing_runs(schema_key);
`

// InsertRunStart records a run's start. Idempotent: a second call for
// the same run_id is a no-op (per spec.md §4.12), implemented via
// INSERT OR IGNORE on the primary key.
func (l *Ledger) InsertRunStart(ctx context.Context, r model.RunRecord) {
	if l.db == nil {
		return
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO processing_runs
			(run_id, start_timestamp, total_files, schema_key, schema_name, model_id, custom_instructions, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'running')
	`, r.RunID, r.StartTS.UTC().Format(time.RFC3339Nano), r.TotalFiles, r.SchemaKey, r.SchemaName, r.ModelID, r.Instructions)
	if err != nil {
		l.log.Error("ledger insert_run_start failed", "run_id", r.RunID, "err", err)
	}
}

// UpdateRunComplete records a run's terminal state. A completion for
// an unknown run_id affects zero rows, is logged, and is otherwise
// treated as a success (spec.md §4.12).
func (l *Ledger) UpdateRunComplete(ctx context.Context, runID string, endTS time.Time, successful, failed int, usage model.Usage, status model.RunStatus) {
	if l.db == nil {
		return
	}
	res, err := l.db.ExecContext(ctx, `
		UPDATE processing_runs
		SET end_timestamp = ?,
		    duration_seconds = (julianday(?) - julianday(start_timestamp)) * 86400.0,
		    successful_files = ?,
		    failed_files = ?,
		    input_tokens = ?,
		    output_tokens = ?,
		    total_tokens = ?,
		    cache_read_tokens = ?,
		    cache_write_tokens = ?,
		    cache_hits = ?,
		    api_requests = ?,
		    status = ?
		WHERE run_id = ?
	`, endTS.UTC().Format(time.RFC3339Nano), endTS.UTC().Format(time.RFC3339Nano), successful, failed,
		usage.InputTokens, usage.OutputTokens, usage.TotalTokens, usage.CacheReadTokens, usage.CacheWriteTokens, usage.CacheHits, usage.Requests,
		string(status), runID)
	if err != nil {
		l.log.Error("ledger update_run_complete failed", "run_id", runID, "err", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		l.log.Warn("ledger update_run_complete: unknown run_id, dropped", "run_id", runID)
	}
}

// RecentRuns returns the most recently started runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if l.db == nil {
		return nil, nil
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, start_timestamp, total_files, successful_files, failed_files, schema_key, status
		FROM processing_runs ORDER BY start_timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		var startStr string
		var status string
		if err := rows.Scan(&r.RunID, &startStr, &r.TotalFiles, &r.Successful, &r.Failed, &r.SchemaKey, &status); err != nil {
			return nil, err
		}
		r.StartTS, _ = time.Parse(time.RFC3339Nano, startStr)
		r.Status = model.RunStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates run counts and token usage over the last `days`
// days, for operational dashboards.
type Stats struct {
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	TotalTokens    int64
	TotalFiles     int64
	TotalCacheHits int64
}

func (l *Ledger) Stats(ctx context.Context, days int) (Stats, error) {
	var s Stats
	if l.db == nil {
		return s, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)
	row := l.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(total_files), 0),
			COALESCE(SUM(cache_hits), 0)
		FROM processing_runs WHERE start_timestamp >= ?
	`, cutoff)
	err := row.Scan(&s.TotalRuns, &s.SuccessfulRuns, &s.FailedRuns, &s.TotalTokens, &s.TotalFiles, &s.TotalCacheHits)
	return s, err
}
