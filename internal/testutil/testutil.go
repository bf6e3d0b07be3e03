package testutil

import (
	"time"

	"go.uber.org/zap"

	"correctionloop/internal/domain"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestItem creates a fresh item that is due at created
func NewTestItem(id, content string, created time.Time) domain.Item {
	return domain.Item{
		ID:             id,
		Content:        content,
		NextReviewDate: created,
		CreatedAt:      created,
	}
}

// NewTestSnapshot creates a snapshot holding items in one category
func NewTestSnapshot(categoryID string, items ...domain.Item) domain.Snapshot {
	return domain.Snapshot{
		ActiveCategory: categoryID,
		Items:          map[string][]domain.Item{categoryID: items},
	}
}
