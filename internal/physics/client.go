package physics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Client resolves shots against an external simulation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a resolver client. Returns nil when no URL is
// configured; pool play is disabled in that case.
func NewClient(baseURL string, timeoutSecs int) *Client {
	if baseURL == "" {
		log.Printf("[POOL] shot resolver URL not configured")
		return nil
	}
	if timeoutSecs <= 0 {
		timeoutSecs = 10
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSecs) * time.Second},
	}
}

type resolveRequest struct {
	Balls []BallState `json:"balls"`
	Shot  ShotParams  `json:"shot"`
}

// Resolve posts the table state and shot to the simulation service,
// retrying transient failures.
func (c *Client) Resolve(ctx context.Context, balls []BallState, shot ShotParams) (*Resolution, error) {
	if c == nil {
		return nil, errors.New("shot resolver client not initialized")
	}

	payload, err := json.Marshal(resolveRequest{Balls: balls, Shot: shot})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shot: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/resolve"

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < 2 {
				time.Sleep(time.Duration(100+attempt*200) * time.Millisecond)
				continue
			}
			return nil, fmt.Errorf("resolve request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 500 && attempt < 2 {
			lastErr = fmt.Errorf("resolve failed with status %d: %s", resp.StatusCode, string(body))
			time.Sleep(time.Duration(100+attempt*200) * time.Millisecond)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("resolve failed: %d - %s", resp.StatusCode, string(body))
		}

		var res Resolution
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("failed to decode resolution: %w", err)
		}
		return &res, nil
	}

	return nil, fmt.Errorf("resolve failed after retries: %w", lastErr)
}
