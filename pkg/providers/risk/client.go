// Package risk provides the HTTP risk score provider.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/quantor/signalflow/pkg/protocol"
)

const defaultTimeoutSeconds = 10

// scoresTTL bounds how stale a cached score set may get. Risk scores move on
// market data that updates at most once a minute upstream.
const scoresTTL = time.Minute

// Client fetches the full score set from a risk scoring HTTP service:
//
//	GET {base}/scores -> protocol.RiskScores JSON
//
// Every conditional risk node in a run hits the provider, so one fetch is
// cached briefly to avoid hammering the upstream during a single sweep.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu        sync.Mutex
	cached    protocol.RiskScores
	fetchedAt time.Time
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger:  logger.With("module", "risk_client"),
	}
}

func (c *Client) Scores(ctx context.Context) (protocol.RiskScores, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.fetchedAt) < scoresTTL {
		return c.cached, nil
	}

	scores, err := c.fetch(ctx)
	if err != nil {
		return protocol.RiskScores{}, err
	}

	c.cached = scores
	c.fetchedAt = time.Now()

	return scores, nil
}

func (c *Client) fetch(ctx context.Context) (protocol.RiskScores, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scores", nil)
	if err != nil {
		return protocol.RiskScores{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return protocol.RiskScores{}, fmt.Errorf("risk scores request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return protocol.RiskScores{}, fmt.Errorf("risk scores: unexpected status %d", resp.StatusCode)
	}

	var scores protocol.RiskScores
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return protocol.RiskScores{}, fmt.Errorf("failed to decode risk scores: %w", err)
	}

	return scores, nil
}
