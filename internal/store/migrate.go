package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/chatbox/internal/store/migrations"
	"go.uber.org/zap"
)

// MigrateResult describes what happened during migration.
type MigrateResult struct {
	Version uint
	Changed bool
}

// ErrDirty means a previous migration failed halfway and needs manual repair.
var ErrDirty = errors.New("database schema is dirty")

// migrateLogger routes golang-migrate output to zap.
type migrateLogger struct {
	logger *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}

// Migrate runs all pending migrations on the database. logger may be nil.
func (db *DB) Migrate(logger *zap.Logger) (*MigrateResult, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}
	if logger != nil {
		m.Log = migrateLogger{logger: logger.Named("migrate")}
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return nil, ErrDirty
	}

	changed := true
	if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
		changed = false
	} else if err != nil {
		return nil, fmt.Errorf("migration up: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return nil, fmt.Errorf("migration version: %w", err)
	}
	return &MigrateResult{Version: version, Changed: changed}, nil
}
