package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no snapshot is stored under a key
var ErrNotFound = errors.New("snapshot not found")

// SnapshotRepository stores serialized session snapshots as opaque blobs
type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)
	SaveSnapshot(ctx context.Context, key string, data []byte) error
}

// UserRepository defines user data operations
type UserRepository interface {
	IsAuthorized(userID int64) (bool, error)
	AuthorizeUser(userID int64) error
	EnsureUserExists(userID int64) error
}

// Repository is a storage backend providing both stores
type Repository interface {
	SnapshotRepository
	UserRepository
	Close() error
}
