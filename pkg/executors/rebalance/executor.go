// Package rebalance provides the HTTP executor that applies portfolio
// strategies on the brokerage bridge service.
package rebalance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeoutSeconds = 30

// ErrServerError is returned when the bridge keeps answering 5xx after all
// retry attempts.
var ErrServerError = errors.New("server error during rebalance request")

// RetryConfig bounds how often a failed rebalance call is reattempted.
// Rebalances place real orders, so only transient transport and 5xx failures
// are retried; 4xx responses fail immediately.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Executor POSTs rebalance requests to the bridge:
//
//	POST {base}/rebalance {"code": "...", "params": {...}}
type Executor struct {
	baseURL string
	client  *http.Client
	retry   RetryConfig
	logger  *slog.Logger
}

func NewExecutor(baseURL string, retry RetryConfig, logger *slog.Logger) *Executor {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}

	return &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		retry:   retry,
		logger:  logger.With("module", "rebalance_executor"),
	}
}

func (e *Executor) Rebalance(ctx context.Context, code string, params map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"code":   code,
		"params": params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode rebalance request: %w", err)
	}

	var lastErr error

	for attempt := 1; attempt <= e.retry.Attempts; attempt++ {
		if attempt > 1 {
			e.logger.InfoContext(ctx, "Retrying rebalance request",
				"code", code,
				"attempt", attempt,
				"max_attempts", e.retry.Attempts,
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.retry.Delay):
			}
		}

		status, err := e.post(ctx, payload)
		if err != nil {
			lastErr = err

			continue
		}

		switch {
		case status < 300:
			e.logger.InfoContext(ctx, "Rebalance accepted", "code", code, "status", status)

			return nil
		case status >= 500:
			lastErr = fmt.Errorf("status %d: %w", status, ErrServerError)

			continue
		default:
			return fmt.Errorf("rebalance rejected with status %d", status)
		}
	}

	return fmt.Errorf("rebalance failed after %d attempts: %w", e.retry.Attempts, lastErr)
}

func (e *Executor) post(ctx context.Context, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/rebalance", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rebalance request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	return resp.StatusCode, nil
}
