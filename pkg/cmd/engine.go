package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/quantor/signalflow/pkg/engine"
	"github.com/quantor/signalflow/pkg/eventbus"
	"github.com/quantor/signalflow/pkg/executors/email"
	"github.com/quantor/signalflow/pkg/executors/rebalance"
	"github.com/quantor/signalflow/pkg/executors/webhook"
	"github.com/quantor/signalflow/pkg/persistence"
	"github.com/quantor/signalflow/pkg/providers/marketdata"
	"github.com/quantor/signalflow/pkg/providers/risk"
	"github.com/quantor/signalflow/pkg/providers/sentiment"
)

const rebalanceRetryAttempts = 3

// EngineOptions collects everything a binary needs to assemble an engine.
// Empty provider and executor URLs leave that collaborator unset; the engine
// degrades those node types instead of failing at startup.
type EngineOptions struct {
	Persistence persistence.Persistence
	Publisher   eventbus.EventPublisher
	Tracer      trace.Tracer
	Logger      *slog.Logger

	MarketDataURL string
	RiskURL       string
	SentimentURL  string

	RebalanceURL string
	SMTP         email.Config
	RedisURL     string

	Timezone string
}

// NewEngine wires providers, executors and telemetry into an engine.
func NewEngine(opts EngineOptions) (*engine.Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timezone := opts.Timezone
	if timezone == "" {
		timezone = engine.DefaultTimezone
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	cfg := engine.Config{
		Persistence: opts.Persistence,
		Publisher:   opts.Publisher,
		Tracer:      opts.Tracer,
		Logger:      logger,
		Location:    location,
		Usage:       NewUsageRecorder(opts.RedisURL, logger),
		Webhooks:    webhook.NewExecutor(logger),
	}

	if opts.MarketDataURL != "" {
		cfg.MarketData = marketdata.NewClient(opts.MarketDataURL, logger)
	}

	if opts.RiskURL != "" {
		cfg.Risk = risk.NewClient(opts.RiskURL, logger)
	}

	if opts.SentimentURL != "" {
		cfg.Sentiment = sentiment.NewClient(opts.SentimentURL, logger)
	}

	if opts.RebalanceURL != "" {
		cfg.Rebalancer = rebalance.NewExecutor(opts.RebalanceURL, rebalance.RetryConfig{
			Attempts: rebalanceRetryAttempts,
			Delay:    time.Second,
		}, logger)
	}

	if opts.SMTP.Host != "" {
		cfg.Email = email.NewExecutor(opts.SMTP, logger)
	}

	return engine.New(cfg), nil
}
