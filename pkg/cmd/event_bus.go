package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/quantor/signalflow/pkg/channels/gochannel"
	"github.com/quantor/signalflow/pkg/channels/kafka"
	"github.com/quantor/signalflow/pkg/eventbus"
)

// NewEventBus builds an event bus on the named channel provider. The
// in-memory gochannel is the default; kafka requires KAFKA_BROKERS.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, "signalflow")
		if err != nil {
			panic(fmt.Errorf("failed to create kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("unsupported event bus provider: " + provider)
	}
}
