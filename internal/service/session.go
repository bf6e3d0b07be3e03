package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"correctionloop/internal/domain"
	"correctionloop/internal/repository"
	"correctionloop/internal/store"
	"correctionloop/internal/translate"
)

// ErrCheckInProgress is returned while a check of the same item is pending
var ErrCheckInProgress = errors.New("check already in progress")

// DefaultCheckDelay paces a check so the confirmation can be shown first
const DefaultCheckDelay = 600 * time.Millisecond

// Fetcher translates a claimed item outside the batch cycle
type Fetcher interface {
	Fetch(ctx context.Context, claim store.Claim)
}

// ModelSelector switches the active translation model
type ModelSelector interface {
	Select(modelID string) (translate.ModelConfig, error)
	Current() translate.ModelConfig
	Ready() bool
}

// SessionConfig tunes a Session
type SessionConfig struct {
	SnapshotKey string
	CheckDelay  time.Duration
}

// Session exposes the user-facing operations over one item store
type Session struct {
	store    *store.Store
	repo     repository.SnapshotRepository
	selector ModelSelector
	fetcher  Fetcher
	cfg      SessionConfig
	logger   *zap.Logger

	// base context for reveal fetches, cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	checkMux sync.Mutex
	checking map[string]struct{}

	dirty atomic.Bool
}

// NewSession creates a session. The fetcher may be nil when no translation is wanted.
func NewSession(
	st *store.Store,
	repo repository.SnapshotRepository,
	selector ModelSelector,
	fetcher Fetcher,
	cfg SessionConfig,
	logger *zap.Logger,
) *Session {
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = "default"
	}
	if cfg.CheckDelay < 0 {
		cfg.CheckDelay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		store:    st,
		repo:     repo,
		selector: selector,
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		checking: make(map[string]struct{}),
	}
	st.OnChange(func() { s.dirty.Store(true) })
	return s
}

// Close cancels reveal fetches and waits for them to settle
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every reveal fetch started so far has settled
func (s *Session) Wait() {
	s.wg.Wait()
}

// Load initializes the store from the repository. A missing or unreadable
// snapshot starts the session empty.
func (s *Session) Load(ctx context.Context) {
	defer s.dirty.Store(false)

	data, err := s.repo.LoadSnapshot(ctx, s.cfg.SnapshotKey)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("No saved snapshot, starting empty", zap.String("key", s.cfg.SnapshotKey))
		s.store.Load(domain.Snapshot{})
		return
	}
	if err != nil {
		s.logger.Error("Failed to load snapshot, starting empty", zap.Error(err))
		s.store.Load(domain.Snapshot{})
		return
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Error("Snapshot is corrupt, starting empty",
			zap.String("key", s.cfg.SnapshotKey),
			zap.Error(err),
		)
		s.store.Load(domain.Snapshot{})
		return
	}

	s.store.Load(snap)
	if snap.ModelChoice != "" {
		if _, err := s.selector.Select(snap.ModelChoice); err != nil {
			s.logger.Warn("Saved translation model is unknown", zap.String("model", snap.ModelChoice))
		}
	}
	s.logger.Info("Snapshot loaded",
		zap.String("key", s.cfg.SnapshotKey),
		zap.Int("categories", len(snap.Items)),
		zap.String("model", s.selector.Current().ID),
	)
}

// Save writes the current snapshot to the repository
func (s *Session) Save(ctx context.Context) error {
	s.dirty.Store(false)
	data, err := json.Marshal(s.store.Snapshot())
	if err != nil {
		s.dirty.Store(true)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.repo.SaveSnapshot(ctx, s.cfg.SnapshotKey, data); err != nil {
		s.dirty.Store(true)
		return err
	}
	return nil
}

// SaveIfChanged saves only when the store changed since the last save or load
func (s *Session) SaveIfChanged(ctx context.Context) (bool, error) {
	if !s.dirty.Load() {
		return false, nil
	}
	if err := s.Save(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Export returns the snapshot as indented JSON
func (s *Session) Export() ([]byte, error) {
	return json.MarshalIndent(s.store.Snapshot(), "", "  ")
}

// Import adds one item per retained line of text to a category
func (s *Session) Import(categoryID, text string) ([]domain.Item, error) {
	return s.store.Import(categoryID, text)
}

// Items returns a category in display order
func (s *Session) Items(categoryID string) ([]domain.Item, error) {
	return s.store.Items(categoryID)
}

// Item returns one item and its category id
func (s *Session) Item(id string) (domain.Item, string, error) {
	return s.store.Item(id)
}

// DueItems returns the due, non-archived items of a category in display order
func (s *Session) DueItems(categoryID string, now time.Time) ([]domain.Item, error) {
	items, err := s.store.Items(categoryID)
	if err != nil {
		return nil, err
	}
	due := items[:0]
	for _, item := range items {
		if !item.IsArchived && !now.Before(item.NextReviewDate) {
			due = append(due, item)
		}
	}
	return due, nil
}

// Check records a review after the configured pacing delay. A second check
// of the same item while one is pending fails with ErrCheckInProgress.
func (s *Session) Check(ctx context.Context, id string, opts store.CheckOptions) (domain.Item, error) {
	s.checkMux.Lock()
	if _, busy := s.checking[id]; busy {
		s.checkMux.Unlock()
		return domain.Item{}, ErrCheckInProgress
	}
	s.checking[id] = struct{}{}
	s.checkMux.Unlock()

	defer func() {
		s.checkMux.Lock()
		delete(s.checking, id)
		s.checkMux.Unlock()
	}()

	if s.cfg.CheckDelay > 0 {
		timer := time.NewTimer(s.cfg.CheckDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.Item{}, ctx.Err()
		case <-timer.C:
		}
	}

	item, err := s.store.Check(id, opts)
	if err != nil {
		return domain.Item{}, err
	}
	s.logger.Info("Item checked",
		zap.String("item_id", id),
		zap.Int("check_count", item.CheckCount),
		zap.Bool("archived", item.IsArchived),
	)
	return item, nil
}

// Flip toggles the revealed side of an item. Revealing an untranslated
// vocabulary item starts a background fetch.
func (s *Session) Flip(id string) (domain.Item, error) {
	item, claim, err := s.store.Flip(id)
	if err != nil {
		return domain.Item{}, err
	}
	if claim == nil {
		return item, nil
	}
	if s.fetcher == nil {
		s.store.ApplyOne(claim.ID, "")
		return item, nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetcher.Fetch(s.ctx, *claim)
	}()
	return item, nil
}

// Restore returns an archived item to the review cycle
func (s *Session) Restore(id string) (domain.Item, error) {
	return s.store.RestoreItem(id)
}

// DeleteItem removes one item
func (s *Session) DeleteItem(id string) error {
	return s.store.DeleteItem(id)
}

// SetNote stores an annotation on an algorithm item
func (s *Session) SetNote(id, text string) (domain.Item, error) {
	return s.store.SetNote(id, text)
}

// Categories lists built-in and user categories
func (s *Session) Categories() []domain.Category {
	return s.store.Categories()
}

// Category returns one category
func (s *Session) Category(id string) (domain.Category, error) {
	return s.store.Category(id)
}

// CreateCategory adds a user category and makes it active
func (s *Session) CreateCategory(in store.CategoryInput) (domain.Category, error) {
	return s.store.CreateCategory(in)
}

// DeleteCategory removes a user category and its items
func (s *Session) DeleteCategory(id string) error {
	return s.store.DeleteCategory(id)
}

// ActiveCategory returns the selected category id
func (s *Session) ActiveCategory() string {
	return s.store.ActiveCategory()
}

// SetActiveCategory selects a category
func (s *Session) SetActiveCategory(id string) error {
	return s.store.SetActiveCategory(id)
}

// PendingTranslations counts vocabulary items still waiting for a translation
func (s *Session) PendingTranslations() int {
	return s.store.PendingTranslations(domain.CategoryVocabulary)
}

// TranslationModel returns the active model
func (s *Session) TranslationModel() translate.ModelConfig {
	return s.selector.Current()
}

// SelectTranslationProvider switches the translation model and records the choice
func (s *Session) SelectTranslationProvider(modelID string) (translate.ModelConfig, error) {
	model, err := s.selector.Select(modelID)
	if err != nil {
		return translate.ModelConfig{}, err
	}
	s.store.SetModelChoice(model.ID)

	if !s.selector.Ready() {
		s.logger.Warn("Selected translation model has no credentials",
			zap.String("model", model.ID),
			zap.String("provider", string(model.Kind)),
		)
	}
	s.logger.Info("Translation model selected", zap.String("model", model.ID))
	return model, nil
}
