package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"correctionloop/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "correctionloop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.LoadSnapshot(ctx, "default")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.SaveSnapshot(ctx, "default", []byte(`{"v":1}`)))
	require.NoError(t, s.SaveSnapshot(ctx, "default", []byte(`{"v":2}`)))
	require.NoError(t, s.SaveSnapshot(ctx, "other", []byte(`{"v":3}`)))

	data, err := s.LoadSnapshot(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	data, err = s.LoadSnapshot(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, `{"v":3}`, string(data))
}

func TestStore_Users(t *testing.T) {
	s := newTestStore(t)

	authorized, err := s.IsAuthorized(7)
	require.NoError(t, err)
	assert.False(t, authorized, "unknown user")

	require.NoError(t, s.EnsureUserExists(7))
	require.NoError(t, s.EnsureUserExists(7))
	authorized, err = s.IsAuthorized(7)
	require.NoError(t, err)
	assert.False(t, authorized)

	require.NoError(t, s.AuthorizeUser(7))
	authorized, err = s.IsAuthorized(7)
	require.NoError(t, err)
	assert.True(t, authorized)

	// EnsureUserExists must not revoke access
	require.NoError(t, s.EnsureUserExists(7))
	authorized, err = s.IsAuthorized(7)
	require.NoError(t, err)
	assert.True(t, authorized)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "loop.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "default", []byte("{}")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	data, err := s.LoadSnapshot(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
