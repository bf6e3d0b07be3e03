package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"correctionloop/internal/coordinator"
	"correctionloop/internal/domain"
	"correctionloop/internal/repository"
	"correctionloop/internal/store"
	"correctionloop/internal/testutil"
	"correctionloop/internal/translate"
)

type sessionFixture struct {
	session    *Session
	store      *store.Store
	repo       *testutil.MockSnapshotRepository
	translator *testutil.MockTranslator
}

func newSessionFixture(t *testing.T, cfg SessionConfig) *sessionFixture {
	t.Helper()
	logger := testutil.NewTestLogger()

	st := store.New(logger)
	repo := new(testutil.MockSnapshotRepository)
	tr := new(testutil.MockTranslator)
	selector := translate.NewSelector(translate.NewGateway(translate.GatewayConfig{}, logger), "")
	coord := coordinator.New(st, tr, coordinator.Config{CategoryID: domain.CategoryVocabulary}, logger)

	s := NewSession(st, repo, selector, coord, cfg, logger)
	t.Cleanup(s.Close)
	return &sessionFixture{session: s, store: st, repo: repo, translator: tr}
}

func TestSession_LoadFailSoft(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		loadErr error
	}{
		{name: "no snapshot", loadErr: repository.ErrNotFound},
		{name: "repository error", loadErr: errors.New("connection refused")},
		{name: "corrupt snapshot", data: []byte("{not json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t, SessionConfig{})
			f.repo.On("LoadSnapshot", mock.Anything, "default").Return(tt.data, tt.loadErr)

			_, err := f.session.Import(domain.CategoryVocabulary, "stale")
			require.NoError(t, err)

			f.session.Load(context.Background())

			items, err := f.session.Items(domain.CategoryVocabulary)
			require.NoError(t, err)
			assert.Empty(t, items)
			assert.Equal(t, domain.DefaultCategory, f.session.ActiveCategory())
			f.repo.AssertExpectations(t)
		})
	}
}

func TestSession_LoadRestoresSnapshot(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{SnapshotKey: "alice"})

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	item := testutil.NewTestItem("01A", "flee", created)
	item.IsLoadingTranslation = true
	snap := testutil.NewTestSnapshot(domain.CategoryVocabulary, item)
	snap.ModelChoice = "kimi"
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	f.repo.On("LoadSnapshot", mock.Anything, "alice").Return(data, nil)

	f.session.Load(context.Background())

	got, categoryID, err := f.session.Item("01A")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryVocabulary, categoryID)
	assert.Equal(t, "flee", got.Content)
	assert.False(t, got.IsLoadingTranslation, "loading flag is cleared on load")
	assert.Equal(t, "kimi", f.session.TranslationModel().ID)

	changed, err := f.session.SaveIfChanged(context.Background())
	assert.NoError(t, err)
	assert.False(t, changed, "nothing changed since load")
}

func TestSession_Save(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	_, err := f.session.Import(domain.CategoryDaily, "stretch")
	require.NoError(t, err)

	var saved []byte
	f.repo.On("SaveSnapshot", mock.Anything, "default", mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(2).([]byte) }).
		Return(nil).Once()

	changed, err := f.session.SaveIfChanged(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(saved, &snap))
	require.Len(t, snap.Items[domain.CategoryDaily], 1)
	assert.Equal(t, "stretch", snap.Items[domain.CategoryDaily][0].Content)

	changed, err = f.session.SaveIfChanged(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	f.repo.AssertExpectations(t)
}

func TestSession_CategoryChangesMarkDirty(t *testing.T) {
	tests := []struct {
		name   string
		change func(t *testing.T, s *Session)
	}{
		{
			name: "create category",
			change: func(t *testing.T, s *Session) {
				_, err := s.CreateCategory(store.CategoryInput{Label: "Gym", Theme: "Blue"})
				require.NoError(t, err)
			},
		},
		{
			name: "switch active category",
			change: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetActiveCategory(domain.CategoryAlgorithm))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t, SessionConfig{})
			f.repo.On("LoadSnapshot", mock.Anything, "default").Return(nil, repository.ErrNotFound)
			f.repo.On("SaveSnapshot", mock.Anything, "default", mock.Anything).Return(nil).Once()
			f.session.Load(context.Background())

			tt.change(t, f.session)

			changed, err := f.session.SaveIfChanged(context.Background())
			require.NoError(t, err)
			assert.True(t, changed)
			f.repo.AssertExpectations(t)
		})
	}
}

func TestSession_SaveErrorKeepsDirty(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	_, err := f.session.Import(domain.CategoryDaily, "stretch")
	require.NoError(t, err)

	f.repo.On("SaveSnapshot", mock.Anything, "default", mock.Anything).Return(errors.New("disk full")).Once()
	f.repo.On("SaveSnapshot", mock.Anything, "default", mock.Anything).Return(nil).Once()

	_, err = f.session.SaveIfChanged(context.Background())
	assert.Error(t, err)

	changed, err := f.session.SaveIfChanged(context.Background())
	assert.NoError(t, err)
	assert.True(t, changed)
}

func TestSession_CheckGuard(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{CheckDelay: 200 * time.Millisecond})
	items, err := f.session.Import(domain.CategoryDaily, "stretch")
	require.NoError(t, err)
	id := items[0].ID

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Check(context.Background(), id, store.CheckOptions{})
		done <- err
	}()

	assert.Eventually(t, func() bool {
		f.session.checkMux.Lock()
		defer f.session.checkMux.Unlock()
		_, busy := f.session.checking[id]
		return busy
	}, time.Second, 5*time.Millisecond)

	_, err = f.session.Check(context.Background(), id, store.CheckOptions{})
	assert.ErrorIs(t, err, ErrCheckInProgress)

	require.NoError(t, <-done)
	item, _, err := f.session.Item(id)
	require.NoError(t, err)
	assert.Equal(t, 1, item.CheckCount, "only one check committed")
}

func TestSession_CheckCancelled(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{CheckDelay: time.Hour})
	items, err := f.session.Import(domain.CategoryDaily, "stretch")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.session.Check(ctx, items[0].ID, store.CheckOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	item, _, err := f.session.Item(items[0].ID)
	require.NoError(t, err)
	assert.Zero(t, item.CheckCount)
}

func TestSession_CheckNotDue(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	items, err := f.session.Import(domain.CategoryDaily, "stretch")
	require.NoError(t, err)

	_, err = f.session.Check(context.Background(), items[0].ID, store.CheckOptions{})
	require.NoError(t, err)

	_, err = f.session.Check(context.Background(), items[0].ID, store.CheckOptions{})
	assert.ErrorIs(t, err, store.ErrNotDue)

	item, err := f.session.Check(context.Background(), items[0].ID, store.CheckOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, item.CheckCount)
}

func TestSession_FlipFetchesTranslation(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	items, err := f.session.Import(domain.CategoryVocabulary, "flee")
	require.NoError(t, err)

	f.translator.On("TranslateOne", mock.Anything, "flee").Return("逃跑", nil).Once()

	item, err := f.session.Flip(items[0].ID)
	require.NoError(t, err)
	assert.True(t, item.Flipped)
	assert.True(t, item.IsLoadingTranslation)

	f.session.Wait()
	got, _, err := f.session.Item(items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "逃跑", got.Translation)
	assert.False(t, got.IsLoadingTranslation)

	// flipping back and forth does not fetch again
	_, err = f.session.Flip(items[0].ID)
	require.NoError(t, err)
	_, err = f.session.Flip(items[0].ID)
	require.NoError(t, err)
	f.session.Wait()
	f.translator.AssertExpectations(t)
}

func TestSession_FlipFailureMarksItem(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	items, err := f.session.Import(domain.CategoryVocabulary, "flee")
	require.NoError(t, err)

	f.translator.On("TranslateOne", mock.Anything, "flee").Return("", translate.ErrMissingCredentials).Once()

	_, err = f.session.Flip(items[0].ID)
	require.NoError(t, err)
	f.session.Wait()

	got, _, err := f.session.Item(items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, got.Translation)
	assert.True(t, got.TranslationFailed)
}

func TestSession_SelectTranslationProvider(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})

	model, err := f.session.SelectTranslationProvider("deepseek-v3")
	require.NoError(t, err)
	assert.Equal(t, translate.KindDeepSeek, model.Kind)
	assert.Equal(t, "deepseek-v3", f.store.ModelChoice())

	_, err = f.session.SelectTranslationProvider("gpt-9")
	assert.ErrorIs(t, err, translate.ErrUnknownModel)
	assert.Equal(t, "deepseek-v3", f.session.TranslationModel().ID)
}

func TestSession_DueItems(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	items, err := f.session.Import(domain.CategoryReading, "a\nb\nc")
	require.NoError(t, err)

	_, err = f.session.Check(context.Background(), items[1].ID, store.CheckOptions{})
	require.NoError(t, err)

	due, err := f.session.DueItems(domain.CategoryReading, time.Now())
	require.NoError(t, err)
	require.Len(t, due, 2)
	for _, item := range due {
		assert.NotEqual(t, items[1].ID, item.ID)
	}

	_, err = f.session.DueItems("CUSTOM_missing", time.Now())
	assert.ErrorIs(t, err, store.ErrCategoryNotFound)
}

func TestSession_Export(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	_, err := f.session.Import(domain.CategoryMindset, "breathe")
	require.NoError(t, err)

	out, err := f.session.Export()
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  \"activeSystem\"")
	assert.Contains(t, string(out), "breathe")
}
