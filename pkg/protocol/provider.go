// Package protocol defines the interfaces between the automation engine and
// its external collaborators: market signal providers and action executors.
// Implementations are constructor-injected once at startup; the engine never
// resolves them per call.
package protocol

import "context"

// RiskScores is the full score set returned by a risk provider in one fetch.
type RiskScores struct {
	General  float64 `json:"general"`
	LargeCap float64 `json:"large_cap"`
	EMA      float64 `json:"ema"`
	Combined float64 `json:"combined"`
	SPYPrice float64 `json:"spy_price"`
	VIXPrice float64 `json:"vix_price"`
}

// MarketData supplies live and historical prices for a ticker. Calls may
// block for seconds and may fail; the engine degrades failures to a false
// condition, never an aborted run.
type MarketData interface {
	Price(ctx context.Context, ticker string) (float64, error)
	// HistoricalClose returns the closing price lookback periods ago.
	// Lookback is one of 1d, 1w, 1m, 3m, 1y.
	HistoricalClose(ctx context.Context, ticker, lookback string) (float64, error)
}

// RiskProvider computes the current risk score set.
type RiskProvider interface {
	Scores(ctx context.Context) (RiskScores, error)
}

// SentimentProvider returns a sentiment score in [-1, 1] for a ticker.
type SentimentProvider interface {
	Sentiment(ctx context.Context, ticker string) (float64, error)
}
