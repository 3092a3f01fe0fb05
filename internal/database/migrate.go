package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/healthdesk/migrations"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration embedded in the binary.
func (db *DB) Migrate(ctx context.Context) error {
	// Connections go back to the pool; the *sql.DB itself is not closed.
	sqlDB := stdlib.OpenDBFromPool(db.Pool)

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	for _, res := range results {
		db.logger.Info("migration applied",
			slog.Int64("version", res.Source.Version),
			slog.String("duration", res.Duration.String()),
		)
	}

	return nil
}
