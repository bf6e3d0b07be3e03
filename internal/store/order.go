package store

import (
	"sort"
	"time"

	"correctionloop/internal/domain"
	"correctionloop/internal/review"
)

// SortForDisplay orders items in place: archived last, due before not-due,
// then fewer checks first. Due-ness depends on now, so callers sort on every read.
func SortForDisplay(items []domain.Item, now time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j], now)
	})
}

func less(a, b domain.Item, now time.Time) bool {
	if a.IsArchived != b.IsArchived {
		return !a.IsArchived
	}
	aDue := review.IsDue(now, a.NextReviewDate)
	bDue := review.IsDue(now, b.NextReviewDate)
	if aDue != bDue {
		return aDue
	}
	return a.CheckCount < b.CheckCount
}
