// Package store holds the in-memory collection of categories and items and
// owns every state transition applied to them.
package store

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"correctionloop/internal/domain"
	"correctionloop/internal/review"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrBuiltinCategory  = errors.New("built-in categories cannot be deleted")
	ErrEmptyImport      = errors.New("import text contains no items")
	ErrNotDue           = errors.New("item is not due for review")
	ErrNoteUnsupported  = errors.New("category does not support notes")
	ErrInvalidInput     = errors.New("invalid input")
)

// CheckOptions controls a review
type CheckOptions struct {
	// Force bypasses the due gate
	Force bool
}

// Claim is an item handed out for translation
type Claim struct {
	ID      string
	Content string
}

// Store is safe for concurrent use. Every mutation is applied under one lock,
// so each read-modify-write is atomic with respect to the others.
type Store struct {
	mu sync.RWMutex

	builtin []domain.Category
	custom  []domain.Category
	items   map[string][]domain.Item
	index   map[string]string // item id -> category id
	active  string
	model   string

	now     func() time.Time
	entropy io.Reader
	logger  *zap.Logger

	listeners []func()
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store with the built-in categories
func New(logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		builtin: domain.BuiltinCategories(),
		items:   make(map[string][]domain.Item),
		index:   make(map[string]string),
		active:  domain.DefaultCategory,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every mutation of the item collection
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// Load replaces the store contents with a snapshot
func (s *Store) Load(snap domain.Snapshot) {
	snap.Normalize()

	s.mu.Lock()
	s.custom = nil
	s.items = make(map[string][]domain.Item)
	s.index = make(map[string]string)
	s.model = snap.ModelChoice

	for _, c := range snap.CustomCategories {
		c.IsCustom = true
		if c.Kind == "" {
			c.Kind = domain.KindGeneric
		}
		s.custom = append(s.custom, c)
	}

	for categoryID, items := range snap.Items {
		if _, ok := s.categoryLocked(categoryID); !ok {
			s.logger.Warn("Dropping items of unknown category",
				zap.String("category_id", categoryID),
				zap.Int("items", len(items)),
			)
			continue
		}
		s.items[categoryID] = append([]domain.Item(nil), items...)
		for _, item := range items {
			s.index[item.ID] = categoryID
		}
	}

	s.active = domain.DefaultCategory
	if _, ok := s.categoryLocked(snap.ActiveCategory); ok {
		s.active = snap.ActiveCategory
	}
	s.mu.Unlock()

	s.notify()
}

// Snapshot returns a deep copy of the store contents
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Snapshot{
		ActiveCategory:   s.active,
		Items:            make(map[string][]domain.Item, len(s.items)),
		CustomCategories: append([]domain.Category{}, s.custom...),
		ModelChoice:      s.model,
	}
	for id, items := range s.items {
		snap.Items[id] = append([]domain.Item{}, items...)
	}
	return snap
}

// ModelChoice returns the persisted translation model selection
func (s *Store) ModelChoice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModelChoice records the translation model selection
func (s *Store) SetModelChoice(modelID string) {
	s.mu.Lock()
	s.model = modelID
	s.mu.Unlock()

	s.notify()
}

// Categories returns built-in categories followed by user-created ones
func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Category, 0, len(s.builtin)+len(s.custom))
	all = append(all, s.builtin...)
	return append(all, s.custom...)
}

// Category returns the category with the given id
func (s *Store) Category(id string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categoryLocked(id)
	if !ok {
		return domain.Category{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	return c, nil
}

func (s *Store) categoryLocked(id string) (domain.Category, bool) {
	for _, c := range s.builtin {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range s.custom {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Category{}, false
}

// ActiveCategory returns the id of the category selected for display
func (s *Store) ActiveCategory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActiveCategory selects a category for display
func (s *Store) SetActiveCategory(id string) error {
	s.mu.Lock()
	if _, ok := s.categoryLocked(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	changed := s.active != id
	s.active = id
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// CreateCategory adds a user-created category and makes it active
func (s *Store) CreateCategory(in CategoryInput) (domain.Category, error) {
	in.Label = strings.TrimSpace(in.Label)
	if err := validateStruct(in); err != nil {
		return domain.Category{}, err
	}
	theme, _ := domain.ThemeByLabel(in.Theme)
	icon := in.IconName
	if icon == "" {
		icon = "Star"
	}

	s.mu.Lock()
	c := domain.Category{
		ID:          domain.CustomPrefix + s.newID(),
		Label:       in.Label,
		IconName:    icon,
		Description: in.Description,
		Theme:       theme,
		Kind:        domain.KindGeneric,
		IsCustom:    true,
	}
	s.custom = append(s.custom, c)
	s.items[c.ID] = []domain.Item{}
	s.active = c.ID
	s.mu.Unlock()

	s.logger.Info("Category created", zap.String("category_id", c.ID), zap.String("label", c.Label))
	s.notify()
	return c, nil
}

// DeleteCategory removes a user-created category and all of its items.
// Deleting the active category reverts the selection to the default.
func (s *Store) DeleteCategory(id string) error {
	s.mu.Lock()
	pos := -1
	for i, c := range s.custom {
		if c.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		_, builtin := s.categoryLocked(id)
		s.mu.Unlock()
		if builtin {
			return fmt.Errorf("%w: %s", ErrBuiltinCategory, id)
		}
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}

	s.custom = append(s.custom[:pos], s.custom[pos+1:]...)
	removed := len(s.items[id])
	for _, item := range s.items[id] {
		delete(s.index, item.ID)
	}
	delete(s.items, id)
	if s.active == id {
		s.active = domain.DefaultCategory
	}
	s.mu.Unlock()

	s.logger.Info("Category deleted", zap.String("category_id", id), zap.Int("items_removed", removed))
	s.notify()
	return nil
}

// Import appends one new item per retained line of text
func (s *Store) Import(categoryID, text string) ([]domain.Item, error) {
	s.mu.Lock()
	c, ok := s.categoryLocked(categoryID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}

	lines := ParseLines(text, c.Kind == domain.KindVocabulary)
	if len(lines) == 0 {
		s.mu.Unlock()
		return nil, ErrEmptyImport
	}

	now := s.now()
	created := make([]domain.Item, 0, len(lines))
	for _, line := range lines {
		item := domain.Item{
			ID:             s.newID(),
			Content:        line.Content,
			Chapter:        line.Chapter,
			NextReviewDate: now,
			CreatedAt:      now,
		}
		created = append(created, item)
		s.index[item.ID] = categoryID
	}
	s.items[categoryID] = append(s.items[categoryID], created...)
	s.mu.Unlock()

	s.logger.Info("Items imported",
		zap.String("category_id", categoryID),
		zap.Int("count", len(created)),
	)
	s.notify()
	return created, nil
}

// Items returns the category's items in display order
func (s *Store) Items(categoryID string) ([]domain.Item, error) {
	s.mu.RLock()
	if _, ok := s.categoryLocked(categoryID); !ok {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}
	items := append([]domain.Item{}, s.items[categoryID]...)
	s.mu.RUnlock()

	SortForDisplay(items, s.now())
	return items, nil
}

// Item returns an item and the id of its category
func (s *Store) Item(id string) (domain.Item, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categoryID, pos, err := s.locateLocked(id)
	if err != nil {
		return domain.Item{}, "", err
	}
	return s.items[categoryID][pos], categoryID, nil
}

func (s *Store) locateLocked(id string) (string, int, error) {
	categoryID, ok := s.index[id]
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	for i, item := range s.items[categoryID] {
		if item.ID == id {
			return categoryID, i, nil
		}
	}
	return "", 0, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// update applies fn to the item under the lock and notifies listeners when fn succeeds
func (s *Store) update(id string, fn func(c domain.Category, item *domain.Item) error) (domain.Item, error) {
	s.mu.Lock()
	categoryID, pos, err := s.locateLocked(id)
	if err != nil {
		s.mu.Unlock()
		return domain.Item{}, err
	}
	c, _ := s.categoryLocked(categoryID)
	item := &s.items[categoryID][pos]
	if err := fn(c, item); err != nil {
		s.mu.Unlock()
		return domain.Item{}, err
	}
	updated := *item
	s.mu.Unlock()

	s.notify()
	return updated, nil
}

// Check records a successful review and schedules the next one
func (s *Store) Check(id string, opts CheckOptions) (domain.Item, error) {
	return s.update(id, func(_ domain.Category, item *domain.Item) error {
		now := s.now()
		if !opts.Force && !review.IsDue(now, item.NextReviewDate) {
			return fmt.Errorf("%w: %s", ErrNotDue, id)
		}
		item.CheckCount++
		item.LastReviewDate = &now
		item.NextReviewDate = review.NextReviewDate(now, item.CheckCount)
		item.IsArchived = item.CheckCount >= domain.ArchiveThreshold
		return nil
	})
}

// RestoreItem un-archives an item and restarts its schedule
func (s *Store) RestoreItem(id string) (domain.Item, error) {
	return s.update(id, func(_ domain.Category, item *domain.Item) error {
		item.IsArchived = false
		item.CheckCount = 0
		item.NextReviewDate = s.now()
		return nil
	})
}

// SetNote stores a free-text annotation on an algorithm item
func (s *Store) SetNote(id, text string) (domain.Item, error) {
	return s.update(id, func(c domain.Category, item *domain.Item) error {
		if c.Kind != domain.KindAlgorithm {
			return fmt.Errorf("%w: %s", ErrNoteUnsupported, c.ID)
		}
		item.Note = text
		return nil
	})
}

// DeleteItem removes a single item
func (s *Store) DeleteItem(id string) error {
	s.mu.Lock()
	categoryID, pos, err := s.locateLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	items := s.items[categoryID]
	s.items[categoryID] = append(items[:pos:pos], items[pos+1:]...)
	delete(s.index, id)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Flip toggles the revealed side of an item. It returns a claim when the item
// was revealed without a translation and nothing is fetching one yet; the
// caller owns that claim until it calls ApplyOne.
func (s *Store) Flip(id string) (domain.Item, *Claim, error) {
	var claim *Claim
	item, err := s.update(id, func(c domain.Category, item *domain.Item) error {
		item.Flipped = !item.Flipped
		if item.Flipped && c.Kind == domain.KindVocabulary &&
			!item.HasTranslation() && !item.IsLoadingTranslation {
			item.IsLoadingTranslation = true
			item.TranslationFailed = false
			claim = &Claim{ID: item.ID, Content: item.Content}
		}
		return nil
	})
	return item, claim, err
}

// ClaimOne marks a single untranslated item as loading
func (s *Store) ClaimOne(id string) (*Claim, error) {
	var claim *Claim
	_, err := s.update(id, func(_ domain.Category, item *domain.Item) error {
		if item.HasTranslation() || item.IsLoadingTranslation {
			return nil
		}
		item.IsLoadingTranslation = true
		item.TranslationFailed = false
		claim = &Claim{ID: item.ID, Content: item.Content}
		return nil
	})
	return claim, err
}

// ApplyOne settles a single-item claim. An empty translation leaves the item
// untranslated and marks the attempt as failed.
func (s *Store) ApplyOne(id, translation string) {
	_, err := s.update(id, func(_ domain.Category, item *domain.Item) error {
		item.IsLoadingTranslation = false
		if translation == "" {
			item.TranslationFailed = !item.HasTranslation()
			return nil
		}
		if !item.HasTranslation() {
			item.Translation = translation
		}
		item.TranslationFailed = false
		return nil
	})
	if err != nil {
		s.logger.Debug("Translated item no longer exists", zap.String("item_id", id))
	}
}

// ClaimBatch selects up to max translation candidates of a category in store
// order and marks exactly those as loading
func (s *Store) ClaimBatch(categoryID string, max int) []Claim {
	s.mu.Lock()
	var claims []Claim
	items := s.items[categoryID]
	for i := range items {
		if len(claims) == max {
			break
		}
		if !items[i].NeedsTranslation() {
			continue
		}
		items[i].IsLoadingTranslation = true
		claims = append(claims, Claim{ID: items[i].ID, Content: items[i].Content})
	}
	s.mu.Unlock()

	if len(claims) > 0 {
		s.notify()
	}
	return claims
}

// ApplyBatch reconciles a batch response. Every claimed item stops loading;
// items whose content is present in translations gain it unless already set.
func (s *Store) ApplyBatch(claims []Claim, translations map[string]string) int {
	s.mu.Lock()
	applied := 0
	for _, claim := range claims {
		categoryID, pos, err := s.locateLocked(claim.ID)
		if err != nil {
			continue
		}
		item := &s.items[categoryID][pos]
		item.IsLoadingTranslation = false
		translated, ok := translations[item.Content]
		if !ok || translated == "" || item.HasTranslation() {
			continue
		}
		item.Translation = translated
		item.TranslationFailed = false
		applied++
	}
	s.mu.Unlock()

	s.notify()
	return applied
}

// PendingTranslations counts non-archived items still without a translation
func (s *Store) PendingTranslations(categoryID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := 0
	for _, item := range s.items[categoryID] {
		if !item.HasTranslation() && !item.IsArchived {
			pending++
		}
	}
	return pending
}
