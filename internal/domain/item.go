package domain

import "time"

// ArchiveThreshold is the check count at which an item is archived
const ArchiveThreshold = 3

// Item is the unit of review
type Item struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	Chapter        string     `json:"chapter,omitempty"`
	CheckCount     int        `json:"checkCount"`
	LastReviewDate *time.Time `json:"lastReviewDate"`
	NextReviewDate time.Time  `json:"nextReviewDate"`
	IsArchived     bool       `json:"isArchived"`
	CreatedAt      time.Time  `json:"createdAt"`

	// Vocabulary
	Translation          string `json:"translation,omitempty"`
	IsLoadingTranslation bool   `json:"isLoadingTranslation,omitempty"`
	TranslationFailed    bool   `json:"translationFailed,omitempty"`
	Flipped              bool   `json:"isFlipped,omitempty"`

	// Algorithm
	Note string `json:"markdownNote,omitempty"`
}

// HasTranslation reports whether a translation has been stored
func (i Item) HasTranslation() bool {
	return i.Translation != ""
}

// NeedsTranslation reports whether the item is a candidate for a batch pass
func (i Item) NeedsTranslation() bool {
	return !i.HasTranslation() && !i.IsLoadingTranslation && !i.IsArchived
}
