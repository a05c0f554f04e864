package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type batchRequest struct {
	Requests []Request `json:"requests"`
}

type batchResponse struct {
	Responses []Response `json:"responses"`
	Error     string     `json:"error,omitempty"`
}

// Client evaluates positions on a remote evaluator server.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		url:  strings.TrimRight(baseURL, "/") + "/evaluate",
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Evaluate(ctx context.Context, batch []Request) ([]Response, error) {
	body, err := json.Marshal(batchRequest{Requests: batch})
	if err != nil {
		return nil, fmt.Errorf("failed to encode evaluation batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evaluation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("evaluator returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation response: %w", err)
	}
	if len(out.Responses) != len(batch) {
		return nil, fmt.Errorf("evaluator returned %d responses for %d requests", len(out.Responses), len(batch))
	}
	return out.Responses, nil
}
