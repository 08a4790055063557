// Package gis streams resolved aircraft state to the geospatial service.
//
// Deliveries are batched on a fixed cadence and are best-effort: the map
// view tolerates a lost batch, so failures are logged and dropped rather
// than failing ingestion.
package gis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type PositionUpdate struct {
	Identifier     string    `json:"identifier"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AltitudeMeters float64   `json:"altitude_meters"`
	Timestamp      time.Time `json:"timestamp"`
}

type VelocityUpdate struct {
	Identifier       string    `json:"identifier"`
	GroundSpeedMps   float64   `json:"ground_speed_mps"`
	TrackDegrees     float64   `json:"track_degrees"`
	VerticalSpeedMps float64   `json:"vertical_speed_mps"`
	Timestamp        time.Time `json:"timestamp"`
}

type IdentificationUpdate struct {
	Identifier string    `json:"identifier"`
	Callsign   string    `json:"callsign"`
	Timestamp  time.Time `json:"timestamp"`
}

func (c *Client) UpdatePositions(ctx context.Context, updates []PositionUpdate) error {
	return c.post(ctx, "/api/v1/positions", map[string]any{"updates": updates})
}

func (c *Client) UpdateVelocities(ctx context.Context, updates []VelocityUpdate) error {
	return c.post(ctx, "/api/v1/velocities", map[string]any{"updates": updates})
}

func (c *Client) UpdateIdentifications(ctx context.Context, updates []IdentificationUpdate) error {
	return c.post(ctx, "/api/v1/identifications", map[string]any{"updates": updates})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	if c == nil {
		return fmt.Errorf("gis client not configured")
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("gis response status %d: %s", resp.StatusCode, errBody["message"])
	}
	return nil
}
