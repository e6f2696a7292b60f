// Package cmd provides shared construction helpers for the flowengine
// binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/openhaus/flowengine/pkg/persistence"
	"github.com/openhaus/flowengine/pkg/persistence/file"
	"github.com/openhaus/flowengine/pkg/persistence/postgres"
)

// NewPersistence selects a persistence backend from the database URL scheme.
// postgres:// and postgresql:// URLs get the PostgreSQL backend; anything
// else falls back to file storage rooted at the URL path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgres.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
