package credstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/taskflow/internal/model"
)

// newTestStore returns a SQLite store backed by an in-memory database,
// closed automatically when the test ends.
func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err, "NewSQLite(:memory:)")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Empty store: missing values are empty strings, not errors.
	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", access)

	require.NoError(t, s.SetTokens(ctx, model.TokenPair{Access: "acc-1", Refresh: "ref-1"}))

	access, err = s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", access)

	refresh, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", refresh)

	// A refresh rotates only the access token.
	require.NoError(t, s.SetAccessToken(ctx, "acc-2"))

	access, err = s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", access)

	refresh, err = s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", refresh, "refresh token must survive an access rotation")
}

func TestSQLiteLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetAccessToken(ctx, "first"))
	require.NoError(t, s.SetAccessToken(ctx, "second"))

	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", access)
}

func TestSQLiteUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, user, "empty store has no cached user")

	stored := &model.User{
		ID:        7,
		Username:  "amara",
		Email:     "amara@example.com",
		FirstName: "Amara",
		LastName:  "Okafor",
		Role:      model.RoleManager,
	}
	require.NoError(t, s.SetUser(ctx, stored))

	user, err = s.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, stored.ID, user.ID)
	assert.Equal(t, stored.Username, user.Username)
	assert.Equal(t, model.RoleManager, user.Role)
}

func TestSQLiteCorruptUserTreatedAsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.set(ctx, KeyUser, "{not json"))

	user, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSQLiteClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetTokens(ctx, model.TokenPair{Access: "acc", Refresh: "ref"}))
	require.NoError(t, s.SetUser(ctx, &model.User{ID: 1, Username: "amara"}))

	require.NoError(t, s.Clear(ctx))

	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", access)

	refresh, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", refresh)

	user, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	// The point of the sqlite store: credentials outlive the process.
	path := filepath.Join(t.TempDir(), "creds.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SetTokens(ctx, model.TokenPair{Access: "acc", Refresh: "ref"}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	access, err := reopened.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc", access)
}

func TestMemoryStoreIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	original := &model.User{ID: 3, Username: "jordan"}
	require.NoError(t, m.SetUser(ctx, original))

	// Mutating the caller's struct must not reach the stored copy.
	original.Username = "changed"

	user, err := m.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "jordan", user.Username)
}
