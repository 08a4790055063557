// Package storageclient writes accepted raw payloads to the storage service.
//
// Storage is the durability sink: a write failure fails the ingestion
// request, unlike the best-effort bus and GIS deliveries.
package storageclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type StoreRequest struct {
	Protocol   models.Protocol `json:"protocol"`
	Source     string          `json:"source"`
	CaptureID  string          `json:"capture_id,omitempty"`
	Payload    string          `json:"payload"` // base64 raw bytes
	CapturedAt time.Time       `json:"captured_at"`
}

type StoreResponse struct {
	ID string `json:"id"`
}

// Store persists a record's raw payload and capture metadata.
func (c *Client) Store(ctx context.Context, rec *models.Record) (*StoreResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("storage client not configured")
	}

	reqBody := StoreRequest{
		Protocol:   rec.Protocol,
		Source:     rec.Source,
		CaptureID:  rec.CaptureID,
		Payload:    base64.StdEncoding.EncodeToString(rec.Payload),
		CapturedAt: rec.CapturedAt,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/telemetry", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("storage response status %d: %s", resp.StatusCode, errBody["message"])
	}

	var result StoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}
