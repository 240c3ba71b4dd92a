package convert

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/semaphore"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/model"
)

// IndexedResult pairs a ConversionResult with its original input
// index, so a completion-ordered stream can be reordered later.
type IndexedResult struct {
	Index  int
	Result model.ConversionResult
}

// Pool is the Parallel Converter (C5): runs the Converter Adapters
// across a worker pool, preserving ordering metadata. "thread-like"
// uses a bounded goroutine pool (github.com/panjf2000/ants/v2);
// "process-like" uses a semaphore-bounded set of plain goroutines —
// both run in-process, since the adapters behind the Registry are Go
// interfaces rather than external executables; "process-like" exists
// as a distinct knob for deployments that later swap in an
// out-of-process adapter.
type Pool struct {
	registry       *Registry
	maxWorkers     int
	workerKind     string
	perFileTimeout time.Duration
}

func NewPool(registry *Registry, maxWorkers int, workerKind string, perFileTimeout time.Duration) *Pool {
	return &Pool{registry: registry, maxWorkers: maxWorkers, workerKind: workerKind, perFileTimeout: perFileTimeout}
}

// ConvertStream runs conversions across the pool and returns a channel
// delivering results in completion order; each delivered result doubles
// as the progress signal for that conversion. The channel is closed
// when every entry has been converted.
func (p *Pool) ConvertStream(ctx context.Context, entries []model.FileEntry) <-chan IndexedResult {
	out := make(chan IndexedResult, len(entries))
	if len(entries) == 0 {
		close(out)
		return out
	}

	work := func(i int, entry model.FileEntry) {
		result := p.convertOne(ctx, entry)
		out <- IndexedResult{Index: i, Result: result}
	}

	go func() {
		defer close(out)
		if p.workerKind == "thread-like" {
			p.runWithAntsPool(entries, work)
		} else {
			p.runWithSemaphore(ctx, entries, work)
		}
	}()

	return out
}

// ConvertAll is the convenience form: blocks until every entry has
// been converted, reordered back to original input index.
func (p *Pool) ConvertAll(ctx context.Context, entries []model.FileEntry) []model.ConversionResult {
	results := make([]model.ConversionResult, len(entries))
	for ir := range p.ConvertStream(ctx, entries) {
		results[ir.Index] = ir.Result
	}
	return results
}

func (p *Pool) convertOne(ctx context.Context, entry model.FileEntry) (result model.ConversionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = model.ConversionResult{
				FileEntry: entry,
				OK:        false,
				Err:       apperrors.Internal("adapter panicked", nil).WithDetail("recovered", rec),
			}
		}
	}()

	taskCtx := ctx
	var cancel context.CancelFunc
	if p.perFileTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, p.perFileTimeout)
		defer cancel()
	}

	done := make(chan model.ConversionResult, 1)
	go func() {
		done <- p.registry.Convert(taskCtx, entry)
	}()

	select {
	case res := <-done:
		return res
	case <-taskCtx.Done():
		return model.ConversionResult{
			FileEntry: entry,
			OK:        false,
			Err:       apperrors.Timeout("conversion exceeded per-file timeout"),
		}
	}
}

func (p *Pool) runWithAntsPool(entries []model.FileEntry, work func(int, model.FileEntry)) {
	pool, err := ants.NewPool(p.maxWorkers)
	if err != nil {
		// Fall back to an unbounded goroutine-per-entry submission;
		// ants.NewPool only fails on invalid pool options.
		fallbackDone := make(chan struct{}, len(entries))
		for i, e := range entries {
			i, e := i, e
			go func() {
				work(i, e)
				fallbackDone <- struct{}{}
			}()
		}
		for range entries {
			<-fallbackDone
		}
		return
	}
	defer pool.Release()

	var pending = len(entries)
	doneCh := make(chan struct{}, pending)
	for i, e := range entries {
		i, e := i, e
		_ = pool.Submit(func() {
			work(i, e)
			doneCh <- struct{}{}
		})
	}
	for range entries {
		<-doneCh
	}
}

func (p *Pool) runWithSemaphore(ctx context.Context, entries []model.FileEntry, work func(int, model.FileEntry)) {
	sem := semaphore.NewWeighted(int64(p.maxWorkers))
	doneCh := make(chan struct{}, len(entries))
	for i, e := range entries {
		i, e := i, e
		if err := sem.Acquire(ctx, 1); err != nil {
			work(i, e) // context already done; still produce a terminal result
			doneCh <- struct{}{}
			continue
		}
		go func() {
			defer sem.Release(1)
			work(i, e)
			doneCh <- struct{}{}
		}()
	}
	for range entries {
		<-doneCh
	}
}
