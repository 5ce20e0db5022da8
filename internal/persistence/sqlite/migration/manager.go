package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and an executor together.
func NewManager(scanner *Scanner, executor *Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// Run applies every pending migration. It stops at the first failure; earlier
// migrations stay applied.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.PendingMigrations) == 0 {
		m.logger.InfoContext(ctx, "database schema up to date", "version", status.CurrentVersion)
		return nil
	}

	for i, mig := range status.PendingMigrations {
		logger := m.logger.With("version", mig.Version, "description", mig.Description)
		logger.InfoContext(ctx, "applying migration", "position", i+1, "pending", len(status.PendingMigrations))
		if err := m.executor.Apply(ctx, mig); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return err
		}
	}
	m.logger.InfoContext(ctx, "migrations applied", "count", len(status.PendingMigrations))
	return nil
}

// Status compares the files on disk with the schema_migrations table. A file
// whose content changed after it was applied is reported as an error.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}
	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[a.Version] = a
	}

	status := Status{AppliedMigrations: applied}
	for _, mig := range available {
		record, ok := appliedByVersion[mig.Version]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, mig)
			continue
		}
		if record.Checksum != "" && record.Checksum != mig.Checksum {
			return Status{}, NewMigrationError(mig.Version, mig.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, record.Checksum, mig.Checksum))
		}
	}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}
