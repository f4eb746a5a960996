// Package migrations runs the row store's schema as a fixed, idempotent
// sequence of DDL statements. The schema itself — tables, constraints, and
// DB-resident analytic functions — is an external collaborator per the
// system's scope: this runner only sequences and tracks which statements
// have already applied.
package migrations

import (
	"database/sql"
	"fmt"

	"github.com/felipe/wagateway/internal/logger"
)

type migration struct {
	version int
	name    string
	sql     string
}

// Migrator applies pending migrations in order and records each applied
// version in schema_migrations.
type Migrator struct {
	db     *sql.DB
	logger logger.Logger
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, logger: logger.Get()}
}

func (m *Migrator) Run() error {
	if err := m.ensureMigrationsTable(); err != nil {
		return err
	}
	applied, err := m.GetAppliedVersions()
	if err != nil {
		return err
	}
	for _, mig := range schema {
		if applied[mig.version] {
			continue
		}
		m.logger.Info().Int("version", mig.version).Str("name", mig.name).Msg("applying migration")
		tx, err := m.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}
		if _, err := tx.Exec(mig.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", mig.version, mig.name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.version, mig.name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", mig.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", mig.version, err)
		}
	}
	return nil
}

func (m *Migrator) ensureMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) GetAppliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
