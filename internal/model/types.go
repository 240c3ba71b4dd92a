// Package model holds the data-model types shared across every
// component boundary (spec.md §3): FileEntry, ConversionResult,
// ExtractionTask, ExtractionResult, RunRecord, CacheEntry. Keeping
// these in one package avoids every component importing every other
// component just to pass a value through.
package model

import (
	"time"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
)

// Origin describes where a FileEntry came from.
type Origin struct {
	Kind        string // "direct" | "archive"
	ArchiveName string // set when Kind == "archive"
	RelPath     string // set when Kind == "archive"
}

func DirectOrigin() Origin { return Origin{Kind: "direct"} }

func ArchiveOrigin(archiveName, relPath string) Origin {
	return Origin{Kind: "archive", ArchiveName: archiveName, RelPath: relPath}
}

// FileEntry is one input file, direct or expanded from an archive.
type FileEntry struct {
	Path        string
	DisplayName string
	Origin      Origin
}

// Usage is additive per-call/per-run token accounting.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	TotalTokens      int64
	Requests         int64
	Cached           bool  // this Usage reflects a single result cache hit
	CacheHits        int64 // aggregate count of cache hits folded in via Add
}

// Add accumulates another Usage into this one in place. A cache hit
// contributes zero tokens but still increments CacheHits, per
// invariant 5 ("cache hits contribute zero tokens but increment a
// cached counter").
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.CacheWriteTokens += other.CacheWriteTokens
	u.TotalTokens += other.TotalTokens
	u.Requests += other.Requests
	u.CacheHits += other.CacheHits
	if other.Cached {
		u.CacheHits++
	}
}

// ConversionResult is the output of a Converter Adapter / the Parallel
// Converter's per-file outcome.
type ConversionResult struct {
	FileEntry FileEntry
	OK        bool
	Markdown  string
	Err       *apperrors.Error
}

// ExtractionTask binds a converted file to the extraction parameters
// needed to dispatch it.
type ExtractionTask struct {
	Conversion   ConversionResult
	SchemaKey    string
	Instructions string
	ModelID      string
	EnqueueTS    time.Time
}

// ExtractionResult is a (possibly partial) outcome of an extraction.
// When OK and the schema is nested, Structured is a []interface{};
// callers expand it into N per-item events.
type ExtractionResult struct {
	FileEntry     FileEntry
	OK            bool
	Structured    interface{}
	Err           *apperrors.Error
	ProcessingSec float64
	Usage         Usage
	Final         bool
	Cached        bool
}

// RunStatus is a RunRecord's lifecycle status.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one append-only ledger row (C12).
type RunRecord struct {
	RunID               string
	StartTS             time.Time
	EndTS               *time.Time
	TotalFiles          int
	Successful          int
	Failed              int
	SchemaKey           string
	SchemaName          string
	ModelID             string
	Instructions        string
	Usage               Usage
	Status              RunStatus
}

// CacheEntry is one Result Cache row (C8).
type CacheEntry struct {
	CacheKey       string
	ContentHash    string
	SchemaKey      string
	ModelID        string
	Value          string // serialized structured value
	CreatedTS      time.Time
	ExpiresTS      time.Time
	HitCount       int64
	ContentSize    int64
	ProcessingTime float64
}
