// Package cmd holds the shared wiring helpers used by the signalflow
// binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/quantor/signalflow/pkg/persistence"
	"github.com/quantor/signalflow/pkg/persistence/file"
	"github.com/quantor/signalflow/pkg/persistence/postgresql"
)

// NewPersistence builds a persistence backend from a database URL. A
// postgres:// or postgresql:// URL selects PostgreSQL, anything else is
// treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic("failed to initialize postgresql persistence: " + err.Error())
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
