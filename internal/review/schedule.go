// Package review computes when an item becomes eligible for its next review.
package review

import "time"

// Intervals is the Ebbinghaus-style review curve in days
var Intervals = []int{1, 2, 4, 7, 15, 30}

// IntervalDays returns the interval applied after the given number of checks.
// Counts past the end of the table saturate at the longest interval.
func IntervalDays(checkCount int) int {
	if checkCount < 0 {
		panic("review: negative check count")
	}
	if checkCount >= len(Intervals) {
		checkCount = len(Intervals) - 1
	}
	return Intervals[checkCount]
}

// NextReviewDate returns the moment the item becomes due again
func NextReviewDate(now time.Time, checkCount int) time.Time {
	return now.AddDate(0, 0, IntervalDays(checkCount))
}

// IsDue reports whether an item scheduled at next is eligible at now
func IsDue(now, next time.Time) bool {
	return !now.Before(next)
}
