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

// HTTPCaptioner implements convert.Captioner against a vision/OCR
// service reached over HTTP, grounded on
// internal/clients/mageagent_client.go's VisionOCRRequest/Response
// shape (base64 image payload, a confidence score in the response).
type HTTPCaptioner struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

func NewHTTPCaptioner(baseURL string, log *logging.Logger) *HTTPCaptioner {
	return &HTTPCaptioner{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log,
	}
}

type visionRequest struct {
	Image  string `json:"image"`
	Format string `json:"format"`
}

type visionResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown   string  `json:"markdown"`
		Confidence float64 `json:"confidence"`
	} `json:"data"`
	Message string `json:"message"`
}

func (c *HTTPCaptioner) Caption(ctx context.Context, imageData []byte) (string, float64, error) {
	body, err := json.Marshal(visionRequest{
		Image:  base64.StdEncoding.EncodeToString(imageData),
		Format: "base64",
	})
	if err != nil {
		return "", 0, fmt.Errorf("encoding vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/vision/ocr", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("building vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("vision endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, fmt.Errorf("decoding vision response: %w", err)
	}
	if !parsed.Success {
		return "", 0, fmt.Errorf("vision service reported failure: %s", parsed.Message)
	}
	return parsed.Data.Markdown, parsed.Data.Confidence, nil
}
