package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"story-server/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ApplyMigrations применяет встроенные миграции к базе данных.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: "migrations",
		MigrationsFS:   migrationsFS,
	}, pool)

	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("не удалось применить миграции: %w", err)
	}
	return nil
}
