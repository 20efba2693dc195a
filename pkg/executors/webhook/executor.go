// Package webhook provides the HTTP executor for webhook action nodes.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeoutSeconds = 15

// Executor POSTs a JSON payload to arbitrary user-configured URLs. Any
// non-2xx answer is an error; webhook targets are user infrastructure and
// retrying them risks duplicate notifications.
type Executor struct {
	client *http.Client
	logger *slog.Logger
}

func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{
		client: &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger: logger.With("module", "webhook_executor"),
	}
}

func (e *Executor) Post(ctx context.Context, url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	e.logger.DebugContext(ctx, "Webhook delivered", "url", url, "status", resp.StatusCode)

	return nil
}
