// Package providers holds the concrete, swappable out-of-scope
// collaborators the engine wires into the Converter Adapters'
// Captioner/Transcriber and the LLM Extractor's Provider interfaces —
// spec.md §1 calls the concrete SDKs out of scope, treated as adapter
// interfaces, but the engine still needs one real wiring to run.
// Grounded on internal/clients/mageagent_client.go's shape: a thin
// JSON-over-HTTP client against a configurable base URL, delegating
// all model selection to the downstream service.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/owenffff/infotransform-engine/internal/extract"
	"github.com/owenffff/infotransform-engine/internal/logging"
)

// HTTPExtractorProvider calls an HTTP completion endpoint that speaks
// a simple `{prompt, model, temperature, seed} -> {text}` contract.
// It does not attempt true token-level streaming: it delivers the
// full response as a single Done chunk, which is a legitimate
// implementation of the Provider interface (spec.md §4.7 only
// requires the dispatcher to be able to consume a stream; a one-shot
// backend is free to produce a one-chunk stream).
type HTTPExtractorProvider struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

func NewHTTPExtractorProvider(baseURL string, log *logging.Logger) *HTTPExtractorProvider {
	return &HTTPExtractorProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log,
	}
}

type completionRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Seed        int64   `json:"seed,omitempty"`
}

type completionResponse struct {
	Text string `json:"text"`
}

func (p *HTTPExtractorProvider) CompleteStream(ctx context.Context, prompt string, params extract.ModelParams) (<-chan extract.Chunk, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:      prompt,
		Model:       params.ModelID,
		Temperature: params.Temperature,
		Seed:        params.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	out := make(chan extract.Chunk, 1)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			out <- extract.Chunk{Err: fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, string(data))}
			return
		}

		var parsed completionResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			out <- extract.Chunk{Err: fmt.Errorf("decoding completion response: %w", err)}
			return
		}
		out <- extract.Chunk{Text: parsed.Text, Done: true}
	}()

	return out, nil
}
