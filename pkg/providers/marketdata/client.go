// Package marketdata provides the HTTP market data provider used for price
// and percentage conditions.
package marketdata

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

// Client fetches quotes from a market data HTTP service. Endpoints:
//
//	GET {base}/quote/{ticker}                    -> {"ticker": "...", "price": 123.45}
//	GET {base}/history/{ticker}?lookback={code}  -> {"ticker": "...", "close": 120.10}
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger:  logger.With("module", "marketdata_client"),
	}
}

type quoteResponse struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
}

type historyResponse struct {
	Ticker string  `json:"ticker"`
	Close  float64 `json:"close"`
}

func (c *Client) Price(ctx context.Context, ticker string) (float64, error) {
	var quote quoteResponse

	endpoint := c.baseURL + "/quote/" + url.PathEscape(ticker)
	if err := c.getJSON(ctx, endpoint, &quote); err != nil {
		return 0, fmt.Errorf("quote for %s: %w", ticker, err)
	}

	return quote.Price, nil
}

func (c *Client) HistoricalClose(ctx context.Context, ticker, lookback string) (float64, error) {
	var history historyResponse

	endpoint := c.baseURL + "/history/" + url.PathEscape(ticker) + "?lookback=" + url.QueryEscape(lookback)
	if err := c.getJSON(ctx, endpoint, &history); err != nil {
		return 0, fmt.Errorf("history for %s: %w", ticker, err)
	}

	return history.Close, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
