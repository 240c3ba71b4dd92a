// Package extract implements the LLM Extractor (C7): prompt assembly,
// one-shot and streaming structured extraction against a schema, and
// the sole provider-retry policy in the pipeline (bounded exponential
// backoff with jitter), grounded on the teacher's retry shape in
// internal/processor/processor.go's downloadFileFromURL and
// internal/queue/consumer.go's asynq RetryDelayFunc — neither adds
// jitter, so jitter here is a deliberate enrichment to avoid
// synchronized retry storms across concurrently dispatched items.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
	"github.com/owenffff/infotransform-engine/internal/schema"
)

// Provider is the out-of-scope collaborator that actually talks to an
// LLM API; the concrete SDK lives outside this module (spec.md §1).
// CompleteStream must send at least one chunk; the final chunk has
// Done==true and carries the full accumulated text so far.
type Provider interface {
	CompleteStream(ctx context.Context, prompt string, params ModelParams) (<-chan Chunk, error)
}

// ModelParams is the restricted set of model parameters the extractor
// is allowed to pass through, per spec.md §4.7.
type ModelParams struct {
	ModelID     string
	Temperature float64
	Seed        int64
}

// Chunk is one increment of a streamed completion.
type Chunk struct {
	Text string // cumulative text so far, not a delta
	Done bool
	Err  error
}

// Template renders a prompt from the bound variables. The default
// Template (see defaultTemplate) is used when none is configured.
type Template func(schemaDescription, schemaName, instructions, content string) string

// RetryPolicy configures the extractor's bounded exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 32 * time.Second}
}

// Extractor is the LLM Extractor (C7).
type Extractor struct {
	provider Provider
	template Template
	retry    RetryPolicy
	log      *logging.Logger
}

func New(provider Provider, template Template, retry RetryPolicy, log *logging.Logger) *Extractor {
	if template == nil {
		template = defaultTemplate
	}
	return &Extractor{provider: provider, template: template, retry: retry, log: log}
}

func defaultTemplate(schemaDescription, schemaName, instructions, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are extracting structured data from a document into the %q schema.\n", schemaName)
	fmt.Fprintf(&b, "Schema: %s\n\n", schemaDescription)
	if instructions != "" {
		fmt.Fprintf(&b, "Additional instructions: %s\n\n", instructions)
	}
	b.WriteString("Return only a single JSON object matching the schema, no prose.\n\n")
	b.WriteString("Document content:\n\n")
	b.WriteString(content)
	return b.String()
}

// Extract runs one-shot extraction: collects the full stream and
// returns only the final, fully-validated ExtractionResult.
func (e *Extractor) Extract(ctx context.Context, sch *schema.Schema, content, instructions string, params ModelParams) model.ExtractionResult {
	var last model.ExtractionResult
	for res := range e.ExtractStream(ctx, sch, content, instructions, params) {
		last = res
	}
	return last
}

// ExtractStream runs streaming extraction. Every event but the last
// has Final=false; partial events that fail to even JSON-decode are
// dropped (spec.md §4.7). The final event is always emitted, and
// always has Final=true, fully schema-validated or a humanized
// extraction_failed error.
func (e *Extractor) ExtractStream(ctx context.Context, sch *schema.Schema, content, instructions string, params ModelParams) <-chan model.ExtractionResult {
	out := make(chan model.ExtractionResult, 4)

	go func() {
		defer close(out)

		prompt := e.template(sch.Description, sch.Name, instructions, content)

		chunks, err := e.callWithRetry(ctx, prompt, params)
		if err != nil {
			out <- model.ExtractionResult{OK: false, Err: apperrors.ExtractionFailed("provider call failed after retries", err), Final: true}
			return
		}

		var lastText string
		for chunk := range chunks {
			if chunk.Err != nil {
				out <- model.ExtractionResult{OK: false, Err: apperrors.ExtractionFailed("provider stream error", chunk.Err), Final: true}
				return
			}
			lastText = chunk.Text

			if !chunk.Done {
				partial, ok := tryDecode(lastText)
				if !ok {
					continue // partial that doesn't parse at all: dropped per spec.md §4.7
				}
				out <- model.ExtractionResult{OK: true, Structured: partial, Final: false}
				continue
			}

			final, ok := tryDecode(lastText)
			if !ok {
				out <- model.ExtractionResult{OK: false, Err: apperrors.ExtractionFailed("final output is not valid JSON", nil), Final: true}
				return
			}
			if issues := schema.Validate(sch, final); len(issues) > 0 {
				human, tips := apperrors.Humanize(issues)
				out <- model.ExtractionResult{
					OK:    false,
					Err:   apperrors.ExtractionFailed("output failed schema validation", nil).WithDetail("issues", human).WithDetail("tips", tips),
					Final: true,
				}
				return
			}
			out <- model.ExtractionResult{OK: true, Structured: unwrapStructured(sch, final), Final: true}
		}
	}()

	return out
}

// unwrapStructured pulls the row list out of a nested schema's wrapper
// object ({"item": [...]}), since model.ExtractionResult.Structured is
// documented to be a []interface{} for nested schemas; a malformed
// wrapper (missing or mistyped "item") falls back to the raw decoded
// value rather than failing the extraction outright.
func unwrapStructured(sch *schema.Schema, decoded interface{}) interface{} {
	if sch.Shape() != schema.ShapeNested {
		return decoded
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return decoded
	}
	items, ok := obj["item"].([]interface{})
	if !ok {
		return decoded
	}
	return items
}

func tryDecode(text string) (interface{}, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, false
	}
	return v, true
}

// callWithRetry retries the provider call with exponential backoff and
// full jitter, up to retry.MaxAttempts. Only the initial call failing
// is retried; a mid-stream error is surfaced to the caller directly,
// since replaying a partially-consumed stream would duplicate partial
// events downstream.
func (e *Extractor) callWithRetry(ctx context.Context, prompt string, params ModelParams) (<-chan Chunk, error) {
	var lastErr error
	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		chunks, err := e.provider.CompleteStream(ctx, prompt, params)
		if err == nil {
			return chunks, nil
		}
		lastErr = err

		if attempt == e.retry.MaxAttempts {
			break
		}

		delay := backoffWithJitter(e.retry.InitialDelay, e.retry.MaxDelay, attempt)
		e.log.Warn("extractor provider call failed, retrying", "attempt", attempt, "delay", delay, "err", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func backoffWithJitter(initial, max time.Duration, attempt int) time.Duration {
	exp := float64(initial) * math.Pow(2, float64(attempt-1))
	if exp > float64(max) {
		exp = float64(max)
	}
	// full jitter: uniform in [0, exp]
	return time.Duration(rand.Float64() * exp)
}
