// Package cmd provides common initialization functions for the service
// binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leadfuse/leadfuse/pkg/persistence"
	"github.com/leadfuse/leadfuse/pkg/persistence/file"
	"github.com/leadfuse/leadfuse/pkg/persistence/postgresql"
)

// NewPersistence picks the persistence backend from the database URL scheme:
// postgres:// for production, anything else is treated as a file path for
// local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}
