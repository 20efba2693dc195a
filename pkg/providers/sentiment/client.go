// Package sentiment provides the HTTP sentiment score provider.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeoutSeconds = 10

// Client fetches a per-ticker sentiment score from an HTTP service:
//
//	GET {base}/sentiment/{ticker} -> {"ticker": "...", "score": 0.42}
//
// Scores are in [-1, 1]; out-of-range responses are rejected rather than
// clamped so a broken upstream is visible.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger:  logger.With("module", "sentiment_client"),
	}
}

type sentimentResponse struct {
	Ticker string  `json:"ticker"`
	Score  float64 `json:"score"`
}

func (c *Client) Sentiment(ctx context.Context, ticker string) (float64, error) {
	endpoint := c.baseURL + "/sentiment/" + url.PathEscape(ticker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sentiment request for %s failed: %w", ticker, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("sentiment for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var body sentimentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode sentiment response: %w", err)
	}

	if body.Score < -1 || body.Score > 1 {
		return 0, fmt.Errorf("sentiment for %s: score %.4f out of range", ticker, body.Score)
	}

	return body.Score, nil
}
