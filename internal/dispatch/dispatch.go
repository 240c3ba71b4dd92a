// Package dispatch implements the Direct Item Dispatcher (C9): a
// semaphore-bounded fan-out over per-file extraction tasks, grounded
// on
// original_source/backend/infotransform/processors/ai_batch_processor.py's
// process_item_directly (semaphore-gated cache-check →
// token-estimate → extractor-call → cache-set → emit sequence).
package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/extract"
	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
	"github.com/owenffff/infotransform-engine/internal/schema"
	"github.com/owenffff/infotransform-engine/internal/tokens"
)

// Cache is the narrow slice of the Result Cache (C8) the dispatcher
// needs.
type Cache interface {
	Get(ctx context.Context, content, schemaKey, modelID string) (interface{}, bool)
	Set(ctx context.Context, content, schemaKey, modelID string, value interface{}, processingTime float64) bool
}

// Dispatcher is the Direct Item Dispatcher (C9). The semaphore it
// holds bounds outstanding extractor calls, not worker goroutines —
// any number of goroutines may call Dispatch concurrently; only
// maxConcurrentItems of them will be inside an extractor call at once.
type Dispatcher struct {
	extractor        *extract.Extractor
	cache            Cache
	estimator        *tokens.Estimator
	sem              *semaphore.Weighted
	enablePartial    bool
	log              *logging.Logger
}

func New(extractor *extract.Extractor, cache Cache, estimator *tokens.Estimator, maxConcurrentItems int, enablePartial bool, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		extractor:     extractor,
		cache:         cache,
		estimator:     estimator,
		sem:           semaphore.NewWeighted(int64(maxConcurrentItems)),
		enablePartial: enablePartial,
		log:           log,
	}
}

// Dispatch runs one extraction task end to end, emitting every
// partial and the terminal result onto out. out is never closed by
// Dispatch — the caller (the orchestrator, fanning out many tasks
// onto a shared channel) owns its lifecycle.
func (d *Dispatcher) Dispatch(ctx context.Context, task model.ExtractionTask, sch *schema.Schema, out chan<- model.ExtractionResult) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		out <- terminal(task, false, apperrors.Internal("dispatch cancelled before acquiring a slot", err), 0, model.Usage{})
		return
	}
	defer d.sem.Release(1)

	start := time.Now()
	filename := task.Conversion.FileEntry.DisplayName
	content := task.Conversion.Markdown

	if cached, hit := d.cache.Get(ctx, content, task.SchemaKey, task.ModelID); hit {
		d.log.Info("cache hit", "filename", filename, "elapsed", time.Since(start))
		out <- model.ExtractionResult{
			FileEntry:     task.Conversion.FileEntry,
			OK:            true,
			Structured:    cached,
			ProcessingSec: time.Since(start).Seconds(),
			Usage:         model.Usage{Cached: true},
			Final:         true,
			Cached:        true,
		}
		return
	}

	d.estimator.LogEstimate(filename, content)

	params := extract.ModelParams{ModelID: task.ModelID}

	defer func() {
		if rec := recover(); rec != nil {
			out <- terminal(task, false, apperrors.Internal("dispatcher panicked", nil).WithDetail("recovered", rec), time.Since(start).Seconds(), model.Usage{})
		}
	}()

	if !d.enablePartial {
		result := d.extractor.Extract(ctx, sch, content, task.Instructions, params)
		d.finalize(ctx, task, content, start, result, out)
		return
	}

	for result := range d.extractor.ExtractStream(ctx, sch, content, task.Instructions, params) {
		result.FileEntry = task.Conversion.FileEntry
		result.ProcessingSec = time.Since(start).Seconds()
		if !result.Final {
			out <- result
			continue
		}
		d.finalize(ctx, task, content, start, result, out)
		return
	}
}

func (d *Dispatcher) finalize(ctx context.Context, task model.ExtractionTask, content string, start time.Time, result model.ExtractionResult, out chan<- model.ExtractionResult) {
	result.FileEntry = task.Conversion.FileEntry
	result.Final = true
	result.ProcessingSec = time.Since(start).Seconds()

	if result.OK {
		d.cache.Set(ctx, content, task.SchemaKey, task.ModelID, result.Structured, result.ProcessingSec)
		d.estimator.AddUsage(result.Usage)
	}
	out <- result
}

func terminal(task model.ExtractionTask, ok bool, err *apperrors.Error, elapsed float64, usage model.Usage) model.ExtractionResult {
	return model.ExtractionResult{
		FileEntry:     task.Conversion.FileEntry,
		OK:            ok,
		Err:           err,
		ProcessingSec: elapsed,
		Usage:         usage,
		Final:         true,
	}
}
