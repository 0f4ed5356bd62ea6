// Package session owns the client's authentication lifecycle.
//
// The Controller is the single source of truth for "who is logged in". The
// credential store is a passive ledger the controller writes to; it is never
// consulted as a second opinion once the in-memory session is populated.
//
// LIFECYCLE:
//
//	New → Bootstrap (reads the ledger, no network)
//	    → authenticated / unauthenticated
//	    → Login / Register flip to authenticated
//	    → Logout tears down (local clear first, best-effort server revoke after)
//
// Bootstrap deliberately trusts cached state without a network round trip:
// if the cached access token has expired, the first real API call gets a 401
// and the transport pipeline refreshes transparently.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/taskflow/internal/apperror"
	"github.com/sakif/taskflow/internal/credstore"
	"github.com/sakif/taskflow/internal/model"
	"github.com/sakif/taskflow/internal/transport"
)

const (
	loginPath    = "/auth/login/"
	registerPath = "/auth/register/"
)

// Credentials is a login request. The API accepts either identifier; leave
// the unused one empty.
type Credentials struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// Registration is a sign-up request.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// ProfileUpdate carries the fields a profile edit may change. Nil fields are
// left untouched by UpdateUser's merge.
type ProfileUpdate struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
}

// authPayload is the server's response to login and register.
type authPayload struct {
	User   *model.User     `json:"user"`
	Tokens model.TokenPair `json:"tokens"`
}

// Controller synchronizes the credential store with the in-memory session.
type Controller struct {
	store    credstore.Store
	pipeline *transport.Pipeline
	logger   *slog.Logger

	mu            sync.Mutex
	user          *model.User
	authenticated bool
	loading       bool
}

// New creates a Controller. The session starts in the loading state until
// Bootstrap runs.
func New(store credstore.Store, pipeline *transport.Pipeline, logger *slog.Logger) *Controller {
	return &Controller{
		store:    store,
		pipeline: pipeline,
		logger:   logger,
		loading:  true,
	}
}

// Bootstrap restores the session from the credential store. No network call
// is made; cached state is trusted until the first 401. The loading flag is
// cleared no matter what.
func (c *Controller) Bootstrap(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	user, err := c.store.User(ctx)
	if err != nil {
		return fmt.Errorf("session: reading cached user: %w", err)
	}
	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("session: reading cached token: %w", err)
	}

	if user != nil && token != "" {
		c.mu.Lock()
		c.user = user
		c.authenticated = true
		c.mu.Unlock()
		c.logger.Info("session restored from cache",
			slog.Int64("userID", user.ID),
			slog.String("username", user.Username),
		)
	}
	return nil
}

// Login authenticates against the API. On success the tokens and user record
// are persisted and the session flips to authenticated. On failure nothing
// changes, in memory or in the store.
func (c *Controller) Login(ctx context.Context, creds Credentials) (*model.User, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("session: encoding login request: %w", err)
	}

	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("session: login: %w", err)
	}

	var result authPayload
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("session: login: %w", err)
	}
	if result.User == nil || result.Tokens.Access == "" {
		return nil, fmt.Errorf("session: login response missing user or tokens")
	}

	if err := c.establish(ctx, result); err != nil {
		return nil, err
	}
	c.logger.Info("logged in", slog.Int64("userID", result.User.ID))
	return result.User, nil
}

// Register creates an account and logs it in, with the same persistence
// contract as Login. A validation failure surfaces the first field-level
// message from the server's payload; "first" meaning the alphabetically
// first field with a non-empty message, so the selection is stable.
func (c *Controller) Register(ctx context.Context, reg Registration) (*model.User, error) {
	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("session: encoding registration: %w", err)
	}

	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   registerPath,
		Body:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("session: register: %w", err)
	}

	if resp.Err() != nil {
		if resp.StatusCode == http.StatusBadRequest {
			msg := apperror.FirstFieldError(resp.Body, "Registration failed")
			return nil, apperror.ValidationFailed("", msg)
		}
		return nil, fmt.Errorf("session: register: %w", resp.Err())
	}

	var result authPayload
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("session: register: %w", err)
	}
	if result.User == nil || result.Tokens.Access == "" {
		return nil, fmt.Errorf("session: register response missing user or tokens")
	}

	if err := c.establish(ctx, result); err != nil {
		return nil, err
	}
	c.logger.Info("registered", slog.Int64("userID", result.User.ID))
	return result.User, nil
}

// establish persists tokens and user and flips the in-memory session.
func (c *Controller) establish(ctx context.Context, result authPayload) error {
	if err := c.store.SetTokens(ctx, result.Tokens); err != nil {
		return fmt.Errorf("session: persisting tokens: %w", err)
	}
	if err := c.store.SetUser(ctx, result.User); err != nil {
		return fmt.Errorf("session: persisting user: %w", err)
	}

	c.mu.Lock()
	c.user = result.User
	c.authenticated = true
	c.mu.Unlock()
	return nil
}

// Logout tears the session down. Local state, memory and store alike, is cleared
// synchronously and unconditionally first; only then is the refresh token
// revoked server-side, best effort. A dead network cannot keep a user logged
// in.
func (c *Controller) Logout(ctx context.Context) error {
	accessToken, _ := c.store.AccessToken(ctx)
	refreshToken, _ := c.store.RefreshToken(ctx)

	c.mu.Lock()
	c.user = nil
	c.authenticated = false
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("session: clearing credentials: %w", err)
	}

	if refreshToken != "" {
		if err := c.pipeline.RevokeSession(ctx, accessToken, refreshToken); err != nil {
			// The local session is already gone; the server will expire the
			// token on its own schedule.
			c.logger.Warn("server-side logout failed", slog.String("error", err.Error()))
		}
	}

	c.logger.Info("logged out")
	return nil
}

// UpdateUser merges the given fields into the cached user record and
// persists it. Tokens are untouched; a profile edit never re-authenticates.
func (c *Controller) UpdateUser(ctx context.Context, update ProfileUpdate) (*model.User, error) {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return nil, apperror.Unauthorized("no active session")
	}
	merged := *c.user
	if update.Username != nil {
		merged.Username = *update.Username
	}
	if update.Email != nil {
		merged.Email = *update.Email
	}
	if update.FirstName != nil {
		merged.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		merged.LastName = *update.LastName
	}
	c.user = &merged
	c.mu.Unlock()

	if err := c.store.SetUser(ctx, &merged); err != nil {
		return nil, fmt.Errorf("session: persisting updated user: %w", err)
	}
	return &merged, nil
}

// User returns the current user, or nil when unauthenticated.
func (c *Controller) User() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	copied := *c.user
	return &copied
}

// IsAuthenticated reports whether a session is active.
func (c *Controller) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Loading reports whether Bootstrap has run yet.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// TokenExpiry reports when the stored access token expires, read from its
// registered claims WITHOUT signature verification; the client has no
// signing secret and doesn't need one. Informational only: expiry never
// pre-empts the 401-then-refresh protocol.
func (c *Controller) TokenExpiry(ctx context.Context) (time.Time, error) {
	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("session: reading access token: %w", err)
	}
	if token == "" {
		return time.Time{}, errors.New("session: no access token stored")
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("session: parsing access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("session: access token has no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}
