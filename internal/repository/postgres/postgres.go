// Package postgres persists snapshots and bot users in PostgreSQL.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"correctionloop/internal/repository"
	"correctionloop/migrations"
)

const (
	connectRetries    = 30
	connectRetryDelay = 2 * time.Second
)

// Store bundles the postgres repositories over one connection pool
type Store struct {
	*SnapshotRepo
	*UserRepo
	db *sql.DB
}

var _ repository.Repository = (*Store)(nil)

// Open connects, applies migrations and returns a ready store
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := connect(dsn, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connection established")

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return New(db), nil
}

// New wraps an open connection pool
func New(db *sql.DB) *Store {
	return &Store{
		SnapshotRepo: NewSnapshotRepo(db),
		UserRepo:     NewUserRepo(db),
		db:           db,
	}
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// connect opens PostgreSQL with retries, the database may still be starting
func connect(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < connectRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(connectRetryDelay)
			continue
		}

		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(connectRetryDelay)
			continue
		}

		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectRetries, err)
}

func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}

	return nil
}
