// Package credstore persists the client's credentials across restarts.
//
// The store is a passive ledger with exactly three durable keys: the access
// token, the refresh token, and the cached user record. It holds no logic of
// its own: the session controller decides WHAT to write and WHEN; the store
// only guarantees that writes stick (last write wins) and that Clear removes
// everything in one step.
package credstore

import (
	"context"

	"github.com/sakif/taskflow/internal/model"
)

// Store is the credential ledger interface.
//
// All methods take a context so a durable implementation can respect
// cancellation, but none of them ever performs network I/O. A missing value
// is reported as an empty string (tokens) or nil (user), never as an error;
// "not logged in yet" is a normal state, not a failure.
type Store interface {
	// AccessToken returns the stored access token, or "" if none.
	AccessToken(ctx context.Context) (string, error)

	// SetAccessToken replaces the stored access token. The refresh flow
	// calls this alone; a refresh rotates only the access token.
	SetAccessToken(ctx context.Context, token string) error

	// RefreshToken returns the stored refresh token, or "" if none.
	RefreshToken(ctx context.Context) (string, error)

	// SetTokens stores both tokens together, as issued at login/register.
	SetTokens(ctx context.Context, tokens model.TokenPair) error

	// User returns the cached user record, or nil if none.
	User(ctx context.Context) (*model.User, error)

	// SetUser replaces the cached user record.
	SetUser(ctx context.Context, user *model.User) error

	// Clear removes both tokens and the cached user atomically. It must be
	// fast and purely local; logout calls it before any network I/O.
	Clear(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

// Key names for the three durable entries. Exported so tests and tooling can
// inspect a store directly.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)
