// Package main provides the signalflow runner: the scheduled process that
// sweeps and evaluates automations.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/quantor/signalflow/pkg/cmd"
	"github.com/quantor/signalflow/pkg/engine"
	"github.com/quantor/signalflow/pkg/executors/email"
	"github.com/quantor/signalflow/pkg/log"
	"github.com/quantor/signalflow/pkg/otelhelper"
	"github.com/quantor/signalflow/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "signalflow-runner",
		EnableShellCompletion: true,
		Usage:                 "Evaluate market automations on a schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "Cron expression for the sweep schedule",
				Value:   "* * * * *",
				Sources: cli.EnvVars("SWEEP_CRON"),
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "IANA timezone for time gate evaluation",
				Value:   engine.DefaultTimezone,
				Sources: cli.EnvVars("TIMEZONE"),
			},
			&cli.StringFlag{
				Name:    "market-data-url",
				Usage:   "Base URL of the market data service",
				Sources: cli.EnvVars("MARKET_DATA_URL"),
			},
			&cli.StringFlag{
				Name:    "risk-url",
				Usage:   "Base URL of the risk scoring service",
				Sources: cli.EnvVars("RISK_URL"),
			},
			&cli.StringFlag{
				Name:    "sentiment-url",
				Usage:   "Base URL of the sentiment service",
				Sources: cli.EnvVars("SENTIMENT_URL"),
			},
			&cli.StringFlag{
				Name:    "rebalance-url",
				Usage:   "Base URL of the brokerage bridge service",
				Sources: cli.EnvVars("REBALANCE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for usage counters (in-memory when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "smtp-host",
				Usage:   "SMTP relay host for email actions",
				Sources: cli.EnvVars("SMTP_HOST"),
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Usage:   "SMTP relay port",
				Value:   587,
				Sources: cli.EnvVars("SMTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP username",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Usage:   "From address for outgoing email",
				Sources: cli.EnvVars("SMTP_FROM"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("signalflow-runner")
	logger.InfoContext(ctx, "Initializing Signalflow Runner")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracer trace.Tracer

	if command.Bool("tracing") {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "signalflow-runner")
		if err != nil {
			return err
		}
	}

	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eng, err := cmd.NewEngine(cmd.EngineOptions{
		Persistence:   store,
		Publisher:     eventBus,
		Tracer:        tracer,
		Logger:        logger,
		MarketDataURL: command.String("market-data-url"),
		RiskURL:       command.String("risk-url"),
		SentimentURL:  command.String("sentiment-url"),
		RebalanceURL:  command.String("rebalance-url"),
		RedisURL:      command.String("redis-url"),
		Timezone:      command.String("timezone"),
		SMTP: email.Config{
			Host:     command.String("smtp-host"),
			Port:     int(command.Int("smtp-port")),
			Username: command.String("smtp-username"),
			Password: command.String("smtp-password"),
			From:     command.String("smtp-from"),
		},
	})
	if err != nil {
		return err
	}

	location, err := time.LoadLocation(command.String("timezone"))
	if err != nil {
		return err
	}

	sched := scheduler.New(command.String("cron"), location, eng, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	sched.Stop()

	return nil
}
