package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/migrations"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

// DB wraps a sqlx connection to the row store.
type DB struct {
	*sqlx.DB
	config *config.DatabaseConfig
	logger logger.Logger
}

// Connect opens a row store connection from the full application config.
func Connect(cfg *config.Config) (*DB, error) {
	return New(&cfg.Database)
}

func New(cfg *config.DatabaseConfig) (*DB, error) {
	log := logger.Get()
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Str("database", cfg.Name).Msg("connecting to database")

	sqlxDB, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlxDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlxDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlxDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("database connection established")
	return &DB{DB: sqlxDB, config: cfg, logger: log}, nil
}

func (db *DB) Close() error {
	db.logger.Info().Msg("closing database connection")
	return db.DB.Close()
}

// GetSQLStore returns the whatsmeow-compatible store container the Browser
// Worker Interface uses to persist per-session device state. This
// is whatsmeow's own schema, upgraded automatically and independent of the
// gateway's own migrations.
func (db *DB) GetSQLStore() *sqlstore.Container {
	workerLogger := logger.GetWorkerLogger("sqlstore")
	container := sqlstore.NewWithDB(db.DB.DB, "postgres", workerLogger)

	if err := container.Upgrade(context.Background()); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			db.logger.Info().Msg("whatsmeow tables already exist, skipping upgrade")
		} else {
			db.logger.Error().Err(err).Msg("failed to upgrade whatsmeow store")
			return nil
		}
	}

	db.logger.Info().Msg("whatsmeow sql store container ready")
	return container
}

// Migrate applies the gateway's own schema; whatsmeow's schema
// is migrated separately via GetSQLStore.
func (db *DB) Migrate() error {
	migrator := migrations.NewMigrator(db.DB.DB)
	return migrator.Run()
}

func (db *DB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func (db *DB) GetStats() sql.DBStats {
	return db.Stats()
}

// Transaction runs fn inside a transaction, rolling back on error or panic.
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

// VerifySetup sanity-checks that the gateway's schema has been applied.
func (db *DB) VerifySetup() error {
	var exists bool
	query := `
 SELECT EXISTS (
 SELECT FROM information_schema.tables
 WHERE table_schema = 'public' AND table_name = 'sessions'
 )
	`
	if err := db.QueryRow(query).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check sessions table: %w", err)
	}
	if !exists {
		return fmt.Errorf("sessions table does not exist")
	}

	var migrationCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&migrationCount); err != nil {
		db.logger.Warn().Err(err).Msg("could not check migration count")
	} else {
		db.logger.Info().Int("migrations_applied", migrationCount).Msg("migration status")
	}

	db.logger.Info().Msg("database setup verification completed")
	return nil
}
