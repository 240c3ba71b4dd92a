// Package summarize implements the Summarizer (C6): condenses
// Markdown that exceeds a token threshold while preserving the target
// fields, grounded on
// original_source/backend/infotransform/processors/summarization_agent.py
// (should_summarize token-threshold check, summarize_content prompt
// shape, graceful fallback to the original content on failure).
package summarize

import (
	"context"
	"fmt"

	"github.com/owenffff/infotransform-engine/internal/logging"
)

// Summarizer is the out-of-scope collaborator that actually calls an
// LLM to condense text; the concrete provider SDK lives outside this
// module (spec.md §1).
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (summary string, err error)
}

// Result is the Summarizer (C6)'s output contract.
type Result struct {
	OK               bool
	Summary          string
	OriginalLength   int
	SummaryLength    int
	CompressionRatio float64
	Err              error
}

// Estimator is the narrow slice of Token Accounting (C10) the
// Summarizer needs: a deterministic token count.
type Estimator interface {
	Estimate(text string) int
}

// Service decides whether content needs summarizing and, if so, runs
// it. Never mutates the caller's original content.
type Service struct {
	summarizer     Summarizer
	estimator      Estimator
	tokenThreshold int
	log            *logging.Logger
}

func NewService(summarizer Summarizer, estimator Estimator, tokenThreshold int, log *logging.Logger) *Service {
	return &Service{summarizer: summarizer, estimator: estimator, tokenThreshold: tokenThreshold, log: log}
}

// ShouldSummarize reports whether markdown's estimated token count
// exceeds the configured threshold.
func (s *Service) ShouldSummarize(markdown string) bool {
	return s.estimator.Estimate(markdown) > s.tokenThreshold
}

// Summarize condenses markdown, preserving information relevant to
// fields. On failure it returns OK=false and Summary=="" — the caller
// (the orchestrator) is responsible for falling back to the original
// content with a logged warning; the Summarizer itself never returns
// the original content in place of a summary.
func (s *Service) Summarize(ctx context.Context, markdown string, fields []string, filename string) Result {
	prompt := buildPrompt(markdown, fields)

	summary, err := s.summarizer.Summarize(ctx, prompt)
	if err != nil {
		s.log.Warn("summarization failed, caller will fall back to original content", "filename", filename, "err", err)
		return Result{OK: false, Err: err}
	}

	ratio := 0.0
	if len(summary) > 0 {
		ratio = float64(len(markdown)) / float64(len(summary))
	}

	return Result{
		OK:               true,
		Summary:          summary,
		OriginalLength:   len(markdown),
		SummaryLength:    len(summary),
		CompressionRatio: ratio,
	}
}

func buildPrompt(markdown string, fields []string) string {
	fieldList := ""
	for i, f := range fields {
		if i > 0 {
			fieldList += ", "
		}
		fieldList += f
	}
	return fmt.Sprintf(
		"Please summarize the following document content.\n"+
			"Focus on preserving all information relevant to these fields: %s.\n\n"+
			"Document content:\n\n%s\n",
		fieldList, markdown,
	)
}
