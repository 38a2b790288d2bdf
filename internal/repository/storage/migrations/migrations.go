// Package migrations applies the embedded postgres schema.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

type Migrator struct {
	migrate *migrate.Migrate
	logger  *slog.Logger
}

func New(databaseURL string, logger *slog.Logger) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, driverURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{
		migrate: m,
		logger:  logger.With("component", "migrations"),
	}, nil
}

// Up - applies every pending migration, forcing a dirty version first.
func (that *Migrator) Up() error {
	version, dirty, err := that.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if dirty {
		that.logger.Warn("schema is dirty, forcing version", "version", version)

		if err = that.migrate.Force(int(version)); err != nil { //nolint: gosec // versions are small
			return fmt.Errorf("failed to force version %d: %w", version, err)
		}
	}

	if err = that.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			that.logger.Info("schema is up to date")
			return nil
		}

		return fmt.Errorf("failed to migrate: %w", err)
	}

	newVersion, _, _ := that.migrate.Version()
	that.logger.Info("schema migrated", "version", newVersion)

	return nil
}

func (that *Migrator) Close() error {
	sourceErr, dbErr := that.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close migration source: %w", sourceErr)
	}

	if dbErr != nil {
		return fmt.Errorf("failed to close migration database: %w", dbErr)
	}

	return nil
}

// driverURL - the pgx migration driver is registered under the pgx5 scheme.
func driverURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}

	return dsn
}
