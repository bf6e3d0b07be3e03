package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"correctionloop/internal/repository"
)

// SnapshotRepo implements repository.SnapshotRepository
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo creates a new snapshot repository
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// LoadSnapshot returns the snapshot stored under key
func (r *SnapshotRepo) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	var data string
	query := `SELECT data FROM snapshots WHERE key = $1`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return []byte(data), nil
}

// SaveSnapshot replaces the snapshot stored under key
func (r *SnapshotRepo) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO snapshots (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
