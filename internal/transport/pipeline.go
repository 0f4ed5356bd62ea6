// Package transport implements the authenticated request pipeline.
//
// Every API call the client makes goes through Pipeline.Do, which:
//  1. Attaches "Authorization: Bearer <access token>" when a token is stored
//     (no token → the request goes out unauthenticated)
//  2. Stamps an X-Request-ID header for server-side correlation
//  3. On a 401, performs AT MOST ONE transparent refresh-and-retry before
//     giving up
//
// FAILURE PROTOCOL (per logical request):
//
//	send → 401 and budget left? → read refresh token
//	   no refresh token  → return the original 401 untouched
//	   refresh succeeds  → store new access token, replay the request once
//	   refresh fails     → clear ALL credentials, fire the session-expired
//	                       hook, return the refresh error (not the 401)
//
// The retry budget is a parameter threaded through recursive sends, not a
// flag on a shared request object; each call to Do gets its own one-shot
// budget, so concurrent requests never steal each other's retry. Two
// simultaneous 401s therefore each run their own refresh; the credential
// store's last-write-wins discipline absorbs the race.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/taskflow/internal/apperror"
	"github.com/sakif/taskflow/internal/credstore"
)

// RefreshPath is the token-refresh endpoint, relative to the base URL.
const RefreshPath = "/auth/refresh/"

// LogoutPath is the server-side token revocation endpoint.
const LogoutPath = "/auth/logout/"

// Request is one logical API request. Body holds the raw payload bytes so a
// replay after refresh can rebuild the request from scratch; an http.Request
// body is a one-shot reader and cannot be resent.
type Request struct {
	Method string
	Path   string // relative to the base URL, e.g. "/tasks/"
	Query  url.Values
	Body   []byte // JSON payload, nil for GET/DELETE
}

// Response is the outcome of a logical request after any transparent retry.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Err maps a non-2xx response to the client's error taxonomy. It returns
// nil for 2xx responses.
func (r *Response) Err() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}
	return apperror.FromStatus(r.StatusCode, r.Body)
}

// Decode unmarshals a 2xx response body into out. Non-2xx responses return
// the mapped error instead of attempting a decode.
func (r *Response) Decode(out any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if out == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("transport: decoding response: %w", err)
	}
	return nil
}

// Pipeline performs authenticated requests against the API.
type Pipeline struct {
	baseURL string
	store   credstore.Store
	client  *http.Client
	// refreshClient issues the out-of-band refresh call. It is a plain
	// client, never the pipeline itself: a 401 from the refresh endpoint
	// must not trigger another refresh.
	refreshClient *http.Client
	logger        *slog.Logger
	// onSessionExpired runs after a failed refresh has cleared the store.
	// The UI layer hooks its "redirect to login" here.
	onSessionExpired func()
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient overrides the underlying HTTP client (tests, custom timeouts).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) {
		p.client = c
		p.refreshClient = c
	}
}

// WithSessionExpiredHook registers a callback invoked when a refresh fails
// and the local session has been cleared.
func WithSessionExpiredHook(fn func()) Option {
	return func(p *Pipeline) { p.onSessionExpired = fn }
}

// New creates a Pipeline talking to baseURL, reading and updating tokens in
// store.
func New(baseURL string, store credstore.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		baseURL:       strings.TrimRight(baseURL, "/"),
		store:         store,
		client:        &http.Client{Timeout: 30 * time.Second},
		refreshClient: &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Do executes one logical request with a fresh one-shot retry budget.
func (p *Pipeline) Do(ctx context.Context, req Request) (*Response, error) {
	// One request ID per logical request; the replay reuses it so the
	// server sees both attempts as the same operation.
	requestID := xid.New().String()
	return p.send(ctx, req, requestID, 1)
}

// send performs one attempt and, while budget remains, the refresh-and-retry
// protocol. budget counts refreshes still allowed for this logical request.
func (p *Pipeline) send(ctx context.Context, req Request, requestID string, budget int) (*Response, error) {
	token, err := p.store.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: reading access token: %w", err)
	}

	start := time.Now()
	resp, err := p.roundTrip(ctx, req, requestID, token)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("request completed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
		slog.String("requestID", requestID),
	)

	// Anything other than a 401, or a 401 with the budget spent, passes
	// through unchanged.
	if resp.StatusCode != http.StatusUnauthorized || budget == 0 {
		return resp, nil
	}

	refreshToken, err := p.store.RefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: reading refresh token: %w", err)
	}
	if refreshToken == "" {
		// Nothing to refresh with; the caller gets the original 401.
		return resp, nil
	}

	p.logger.Info("access token rejected, refreshing",
		slog.String("path", req.Path),
		slog.String("requestID", requestID),
	)

	newAccess, err := p.refreshAccess(ctx, refreshToken)
	if err != nil {
		// Refresh failed: the session is over. Clear locally first; the
		// teardown must not depend on any further network activity.
		if clearErr := p.store.Clear(ctx); clearErr != nil {
			p.logger.Warn("clearing credentials after failed refresh",
				slog.String("error", clearErr.Error()))
		}
		if p.onSessionExpired != nil {
			p.onSessionExpired()
		}
		return nil, fmt.Errorf("transport: refreshing session: %w", err)
	}

	if err := p.store.SetAccessToken(ctx, newAccess); err != nil {
		return nil, fmt.Errorf("transport: storing refreshed token: %w", err)
	}

	// Replay exactly once with the new token.
	return p.send(ctx, req, requestID, budget-1)
}

// roundTrip performs a single HTTP exchange. The body is rebuilt from the
// request's payload bytes on every call, which is what makes replay safe.
func (p *Pipeline) roundTrip(ctx context.Context, req Request, requestID, token string) (*Response, error) {
	u := p.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("transport: building request: %w", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: reading response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// RevokeSession asks the server to invalidate a refresh token. It runs
// out-of-band with explicitly supplied credentials because logout clears the
// store BEFORE revoking, so the pipeline would otherwise have nothing to
// authenticate with. Best-effort: callers log failures and move on.
func (p *Pipeline) RevokeSession(ctx context.Context, accessToken, refreshToken string) error {
	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return fmt.Errorf("transport: encoding logout payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+LogoutPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("transport: building logout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	httpResp, err := p.refreshClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("transport: logout call: %w", err)
	}
	defer httpResp.Body.Close()

	body, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode >= 300 {
		return apperror.FromStatus(httpResp.StatusCode, body)
	}
	return nil
}

// refreshAccess exchanges the refresh token for a new access token using a
// plain HTTP client, outside the pipeline's own 401 handling.
func (p *Pipeline) refreshAccess(ctx context.Context, refreshToken string) (string, error) {
	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", fmt.Errorf("encoding refresh payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+RefreshPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building refresh request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.refreshClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("refresh call: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading refresh response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", apperror.FromStatus(httpResp.StatusCode, respBody)
	}

	var result struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding refresh response: %w", err)
	}
	if result.Access == "" {
		return "", fmt.Errorf("refresh response contained no access token")
	}
	return result.Access, nil
}
