package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/owenffff/infotransform-engine/internal/logging"
)

// HTTPTranscriber implements convert.Transcriber against a speech-to-
// text service reached over HTTP, in the same request/response shape
// as HTTPCaptioner.
type HTTPTranscriber struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

func NewHTTPTranscriber(baseURL string, log *logging.Logger) *HTTPTranscriber {
	return &HTTPTranscriber{baseURL: baseURL, httpClient: &http.Client{Timeout: 5 * time.Minute}, log: log}
}

type transcribeRequest struct {
	Audio  string `json:"audio"`
	Format string `json:"format"`
}

type transcribeResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	body, err := json.Marshal(transcribeRequest{Audio: base64.StdEncoding.EncodeToString(audioData), Format: "base64"})
	if err != nil {
		return "", fmt.Errorf("encoding transcribe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/audio/transcribe", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcribe endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding transcribe response: %w", err)
	}
	if !parsed.Success {
		return "", fmt.Errorf("transcription service reported failure: %s", parsed.Message)
	}
	return parsed.Text, nil
}

// HTTPSummarizer implements summarize.Summarizer by delegating to the
// same completion endpoint the LLM Extractor uses, with a lower-cost
// model parameter baked into the request.
type HTTPSummarizer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        *logging.Logger
}

func NewHTTPSummarizer(baseURL, model string, log *logging.Logger) *HTTPSummarizer {
	return &HTTPSummarizer{baseURL: baseURL, model: model, httpClient: &http.Client{Timeout: 2 * time.Minute}, log: log}
}

func (s *HTTPSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{Prompt: prompt, Model: s.model, Temperature: 0})
	if err != nil {
		return "", fmt.Errorf("encoding summarize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building summarize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("summarize endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding summarize response: %w", err)
	}
	return parsed.Text, nil
}
