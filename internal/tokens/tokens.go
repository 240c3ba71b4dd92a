// Package tokens implements Token Accounting (C10): deterministic
// token estimation via a tokenizer appropriate to the target model
// family, plus per-run aggregate usage, grounded on
// original_source/backend/infotransform/utils/token_counter.py and
// wired to github.com/pkoukk/tiktoken-go (the pack's own LLM-facing
// tokenizer choice, Tangerg-lynx/ai's go.mod).
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
)

// Estimator estimates token counts for a text and accumulates the usage
// of every call recorded through it; the aggregate is never reset, so
// an Estimator shared across runs sums all of them. It is constructed
// explicitly and held by the caller — not a package-level singleton.
type Estimator struct {
	encoding *tiktoken.Tiktoken
	log      *logging.Logger

	mu    sync.Mutex
	usage model.Usage
}

// NewEstimator builds an Estimator for the given model family's
// tokenizer encoding (e.g. "cl100k_base", "o200k_base"). Falls back to
// a length/4 heuristic if the encoding cannot be loaded, so estimation
// remains available even without a cached BPE file.
func NewEstimator(encodingName string, log *logging.Logger) *Estimator {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		log.Warn("failed to load tokenizer encoding, falling back to heuristic", "encoding", encodingName, "err", err)
		enc = nil
	}
	return &Estimator{encoding: enc, log: log}
}

// Estimate returns a deterministic token count for text.
func (e *Estimator) Estimate(text string) int {
	if e.encoding == nil {
		return len(text) / 4
	}
	return len(e.encoding.Encode(text, nil, nil))
}

// LogEstimate records a per-file token estimate for operational
// visibility, mirroring the original's log_token_count calls before
// every extractor dispatch.
func (e *Estimator) LogEstimate(filename, text string) {
	e.log.Info("token estimate", "filename", filename, "tokens", e.Estimate(text), "chars", len(text))
}

// AddUsage accumulates a call's usage into this Estimator's aggregate.
// Additive per spec.md invariant 5; a cache-hit Usage (Cached=true)
// contributes zero tokens and increments CacheHits via model.Usage.Add.
func (e *Estimator) AddUsage(u model.Usage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.usage.Add(u)
}

// Usage returns the aggregate usage recorded so far.
func (e *Estimator) Usage() model.Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}
