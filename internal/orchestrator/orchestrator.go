// Package orchestrator implements the Streaming Orchestrator (C13):
// the top-level `process()` coordinator that drives conversion,
// optional summarization, and extraction, emitting the ordered SSE
// event sequence, grounded on
// original_source/backend/infotransform/api/streaming_v2.py's
// OptimizedStreamingProcessor.process_files_optimized.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/convert"
	"github.com/owenffff/infotransform-engine/internal/dispatch"
	"github.com/owenffff/infotransform-engine/internal/ledger"
	"github.com/owenffff/infotransform-engine/internal/lifecycle"
	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
	"github.com/owenffff/infotransform-engine/internal/schema"
	"github.com/owenffff/infotransform-engine/internal/sse"
	"github.com/owenffff/infotransform-engine/internal/summarize"
	"github.com/owenffff/infotransform-engine/internal/tokens"
)

// Request is one process() invocation's parameters.
type Request struct {
	Files        []model.FileEntry
	SchemaKey    string
	Instructions string
	ModelID      string
	RunID        string
}

// Orchestrator wires the Parallel Converter, Summarizer, Direct Item
// Dispatcher, Result Cache, Run Ledger, and File Lifecycle Manager
// into one coordinated run.
type Orchestrator struct {
	converter  *convert.Pool
	summarizer *summarize.Service
	dispatcher *dispatch.Dispatcher
	registry   *schema.Registry
	ledger     *ledger.Ledger
	lifecycle  *lifecycle.Manager
	estimator  *tokens.Estimator
	log        *logging.Logger
}

func New(
	converter *convert.Pool,
	summarizer *summarize.Service,
	dispatcher *dispatch.Dispatcher,
	registry *schema.Registry,
	led *ledger.Ledger,
	lifecycleMgr *lifecycle.Manager,
	estimator *tokens.Estimator,
	log *logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		converter:  converter,
		summarizer: summarizer,
		dispatcher: dispatcher,
		registry:   registry,
		ledger:     led,
		lifecycle:  lifecycleMgr,
		estimator:  estimator,
		log:        log,
	}
}

// Process runs a request to completion, emitting every event onto
// emit in the exact order spec.md §4.13 requires. Process returns once
// `complete` has been emitted and the ledger completion recorded. An
// unknown schema key is the exception: Process emits a single `init`
// event carrying the error and returns, with no `complete` event and
// no ledger row.
func (o *Orchestrator) Process(ctx context.Context, req Request, emit func(sse.Event)) {
	runStart := time.Now()
	totalFiles := len(req.Files)

	sch, schemaErr := o.registry.Get(req.SchemaKey)
	if schemaErr != nil {
		emit(sse.Event{Kind: "init", Payload: map[string]interface{}{
			"total_files": totalFiles,
			"schema_key":  req.SchemaKey,
			"error":       schemaErr.ToMap(),
		}})
		return
	}

	o.ledger.InsertRunStart(ctx, model.RunRecord{
		RunID:        req.RunID,
		StartTS:      runStart,
		TotalFiles:   totalFiles,
		SchemaKey:    sch.Key,
		SchemaName:   sch.Name,
		ModelID:      req.ModelID,
		Instructions: req.Instructions,
		Status:       model.RunRunning,
	})

	emit(sse.Event{Kind: "init", Payload: map[string]interface{}{
		"run_id":      req.RunID,
		"total_files": totalFiles,
		"schema":      descriptorOf(sch),
		"model_id":    req.ModelID,
	}})

	paths := make([]string, len(req.Files))
	for i, f := range req.Files {
		paths[i] = f.Path
	}

	var (
		successful, failed int
		usage              model.Usage
	)

	batchErr := o.lifecycle.BatchContext(paths, func() error {
		// Phase 1: markdown conversion.
		emit(sse.Event{Kind: "phase", Payload: phasePayload("markdown_conversion", "started", 0)})
		conversionStart := time.Now()

		results := make([]model.ConversionResult, 0, totalFiles)
		count := 0
		for ir := range o.converter.ConvertStream(ctx, req.Files) {
			count++
			results = append(results, ir.Result)
			emit(sse.Event{Kind: "conversion_progress", Payload: map[string]interface{}{
				"filename":   ir.Result.FileEntry.DisplayName,
				"ok":         ir.Result.OK,
				"completed":  count,
				"total":      totalFiles,
				"throughput": float64(count) / max(time.Since(conversionStart).Seconds(), 0.001),
			}})
		}
		conversionDuration := time.Since(conversionStart)
		emit(sse.Event{Kind: "phase", Payload: phasePayload("markdown_conversion", "completed", conversionDuration.Seconds())})

		var okResults []model.ConversionResult
		var failedNames, passwordRequiredNames []string
		for _, r := range results {
			if r.OK {
				okResults = append(okResults, r)
			} else {
				failedNames = append(failedNames, r.FileEntry.DisplayName)
				if r.Err != nil && r.Err.Kind == apperrors.KindPasswordRequired {
					passwordRequiredNames = append(passwordRequiredNames, r.FileEntry.DisplayName)
				}
			}
		}
		failed += len(failedNames)

		emit(sse.Event{Kind: "conversion_summary", Payload: map[string]interface{}{
			"successful":         len(okResults),
			"failed":             len(failedNames),
			"failed_files":       failedNames,
			"password_required":  passwordRequiredNames,
		}})

		// Phase 2: summarization, only for files crossing the threshold.
		var toSummarize []int
		for i, r := range okResults {
			if o.summarizer.ShouldSummarize(r.Markdown) {
				toSummarize = append(toSummarize, i)
			}
		}
		summarizedCount := 0
		var summarizationDuration time.Duration
		if len(toSummarize) > 0 {
			emit(sse.Event{Kind: "phase", Payload: phasePayload("summarization", "started", 0)})
			summarizationStart := time.Now()
			for _, i := range toSummarize {
				res := o.summarizer.Summarize(ctx, okResults[i].Markdown, fieldNames(sch), okResults[i].FileEntry.DisplayName)
				if res.OK {
					okResults[i].Markdown = res.Summary
					summarizedCount++
				}
				// on failure, the original markdown is left untouched: the
				// fallback the summarizer itself never performs.
			}
			summarizationDuration = time.Since(summarizationStart)
			emit(sse.Event{Kind: "phase", Payload: phasePayload("summarization", "completed", summarizationDuration.Seconds())})
		}

		// Phase 3: AI extraction.
		emit(sse.Event{Kind: "phase", Payload: phasePayload("ai_processing", "started", 0)})
		aiStart := time.Now()

		resultsCh := make(chan model.ExtractionResult, len(okResults))
		go func() {
			defer close(resultsCh)
			var wg sync.WaitGroup
			for _, conv := range okResults {
				task := model.ExtractionTask{
					Conversion:   conv,
					SchemaKey:    sch.Key,
					Instructions: req.Instructions,
					ModelID:      req.ModelID,
					EnqueueTS:    time.Now(),
				}
				wg.Add(1)
				go func(task model.ExtractionTask) {
					defer wg.Done()
					o.dispatcher.Dispatch(ctx, task, sch, resultsCh)
				}(task)
			}
			wg.Wait()
		}()

		processed := len(failedNames)
		for res := range resultsCh {
			if !res.Final {
				emit(sse.Event{Kind: "partial", Payload: map[string]interface{}{
					"filename":   res.FileEntry.DisplayName,
					"structured": res.Structured,
				}})
				continue
			}

			processed++
			if res.OK {
				o.emitTerminalResult(emit, sch, res, processed, totalFiles, &successful, &failed)
			} else {
				failed++
				emit(sse.Event{Kind: "result", Payload: map[string]interface{}{
					"filename":          res.FileEntry.DisplayName,
					"status":            "error",
					"error":             res.Err.ToMap(),
					"is_primary_result": true,
					"progress":          progressPayload(processed, totalFiles, successful, failed),
				}})
			}
			usage.Add(res.Usage)
		}

		aiDuration := time.Since(aiStart)
		emit(sse.Event{Kind: "phase", Payload: phasePayload("ai_processing", "completed", aiDuration.Seconds())})

		// Terminal results for conversion failures, flushed after the AI phase.
		for idx, name := range failedNames {
			emit(sse.Event{Kind: "result", Payload: map[string]interface{}{
				"filename":          name,
				"status":            "error",
				"is_primary_result": true,
				"progress":          progressPayload(len(okResults)+idx+1, totalFiles, successful, failed),
			}})
		}

		emit(sse.Event{Kind: "complete", Payload: map[string]interface{}{
			"total_files": totalFiles,
			"successful":  successful,
			"failed":      failed,
			"model_id":    req.ModelID,
			"summarization": map[string]interface{}{
				"files_summarized": summarizedCount,
				"duration":         summarizationDuration.Seconds(),
			},
			"usage":           usage,
			"total_duration":  time.Since(runStart).Seconds(),
			"conversion_time": conversionDuration.Seconds(),
			"ai_time":         aiDuration.Seconds(),
		}})

		o.lifecycle.MarkStreamComplete(paths)
		return nil
	})

	// failed is never sufficient by itself to mark the run failed — a
	// batch of entirely unsupported files still completes normally
	// (spec.md §7); only an orchestrator-level abort (context cancelled,
	// e.g. a client disconnect, or the batch callback returning an
	// error) marks the run failed.
	status := model.RunCompleted
	if batchErr != nil || ctx.Err() != nil {
		status = model.RunFailed
	}
	o.ledger.UpdateRunComplete(ctx, req.RunID, time.Now(), successful, failed, usage, status)
}

// emitTerminalResult handles nested-schema expansion: a successful
// nested extraction returning N records emits N `result` events
// sharing source_file/display_name, the first with
// is_primary_result=true. Progress counters increment once per source
// file regardless of how many rows it expanded into.
func (o *Orchestrator) emitTerminalResult(emit func(sse.Event), sch *schema.Schema, res model.ExtractionResult, processed, total, successful, failed *int) {
	if sch.Shape() != schema.ShapeNested {
		*successful++
		emit(sse.Event{Kind: "result", Payload: map[string]interface{}{
			"filename":          res.FileEntry.DisplayName,
			"status":            "success",
			"structured_data":   res.Structured,
			"is_primary_result": true,
			"cached":            res.Cached,
			"progress":          progressPayload(processed, total, *successful, *failed),
		}})
		return
	}

	items, ok := res.Structured.([]interface{})
	if !ok {
		*successful++
		emit(sse.Event{Kind: "result", Payload: map[string]interface{}{
			"filename":          res.FileEntry.DisplayName,
			"status":            "success",
			"structured_data":   res.Structured,
			"is_primary_result": true,
			"cached":            res.Cached,
			"progress":          progressPayload(processed, total, *successful, *failed),
		}})
		return
	}

	*successful++
	for i, item := range items {
		emit(sse.Event{Kind: "result", Payload: map[string]interface{}{
			"filename":          res.FileEntry.DisplayName,
			"status":            "success",
			"structured_data":   item,
			"is_primary_result": i == 0,
			"cached":            res.Cached,
			"progress":          progressPayload(processed, total, *successful, *failed),
		}})
	}
}

func progressPayload(current, total, successful, failed int) map[string]interface{} {
	return map[string]interface{}{
		"current":    current,
		"total":      total,
		"successful": successful,
		"failed":     failed,
	}
}

func phasePayload(phase, status string, duration float64) map[string]interface{} {
	p := map[string]interface{}{"phase": phase, "status": status}
	if status == "completed" {
		p["duration"] = duration
	}
	return p
}

func descriptorOf(sch *schema.Schema) schema.Descriptor {
	fields := make(map[string]schema.FieldDescriptor, len(sch.Fields))
	for _, f := range sch.Fields {
		fields[f.Name] = schema.FieldDescriptor{
			Type:        string(f.Kind),
			Description: f.Description,
			Required:    f.Required,
		}
	}
	return schema.Descriptor{Key: sch.Key, Name: sch.Name, Description: sch.Description, Fields: fields}
}

func fieldNames(sch *schema.Schema) []string {
	fields := sch.Fields
	if sch.Shape() == schema.ShapeNested {
		fields = sch.ItemFields()
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
