package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func (s *Store) gooseDialect() string {
	if s.driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// Migrate applies every pending migration embedded in the binary
func (s *Store) Migrate(ctx context.Context) error {
	const operation = "store.Migrate"

	s.logger.Info("running database migrations")

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(s.gooseDialect()); err != nil {
		return fmt.Errorf("%s: failed to set dialect: %w", operation, err)
	}

	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", operation, err)
	}

	version, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return fmt.Errorf("%s: failed to read version: %w", operation, err)
	}

	s.logger.Info("database migrations completed", zap.Int64("version", version))
	return nil
}
