package cmd

import (
	"log/slog"

	"github.com/quantor/signalflow/pkg/telemetry"
)

// NewUsageRecorder builds the action usage recorder. An empty redis URL
// falls back to the in-process recorder.
func NewUsageRecorder(redisURL string, logger *slog.Logger) telemetry.UsageRecorder {
	if redisURL == "" {
		return telemetry.NewMemoryRecorder()
	}

	recorder, err := telemetry.NewRedisRecorder(redisURL)
	if err != nil {
		logger.Warn("Failed to connect usage recorder to redis, using in-memory counters", "error", err)

		return telemetry.NewMemoryRecorder()
	}

	return recorder
}
