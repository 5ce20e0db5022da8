package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/meeting-finder/internal/persistence"
	"github.com/example/meeting-finder/internal/persistence/sqlite/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ConnectionPool wraps the SQLite handle shared by the repositories.
type ConnectionPool struct {
	db *sql.DB
}

// Open connects to the database at dsn. SQLite serialises writers, so the pool
// keeps a single connection to avoid "database is locked" errors.
func Open(ctx context.Context, dsn string) (*ConnectionPool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return &ConnectionPool{db: db}, nil
}

// DB returns the underlying database handle.
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

// Close closes the database.
func (cp *ConnectionPool) Close() error {
	if cp == nil || cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

// Ping tests the database connection.
func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// Migrate applies the embedded schema migrations.
func (cp *ConnectionPool) Migrate(ctx context.Context, logger *slog.Logger) error {
	return cp.migrationManager(logger).Run(ctx)
}

// MigrationStatus reports applied and pending embedded migrations.
func (cp *ConnectionPool) MigrationStatus(ctx context.Context, logger *slog.Logger) (migration.Status, error) {
	return cp.migrationManager(logger).Status(ctx)
}

func (cp *ConnectionPool) migrationManager(logger *slog.Logger) *migration.Manager {
	return migration.NewManager(migration.NewScanner(migrationFiles, "migrations"), migration.NewExecutor(cp.db), logger)
}

// mapError maps SQLite errors to persistence errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	for _, marker := range []string{"UNIQUE constraint failed", "CHECK constraint failed", "NOT NULL constraint failed", "FOREIGN KEY constraint failed"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
		}
	}
	return err
}
