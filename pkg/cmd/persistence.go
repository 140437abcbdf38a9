package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/persistence/file"
	"github.com/flowmate/flowmate/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL.
// postgres:// and postgresql:// URLs get PostgreSQL; anything else is
// treated as a data directory for the file backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
