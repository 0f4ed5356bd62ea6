package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/taskflow/internal/apperror"
	"github.com/sakif/taskflow/internal/credstore"
	"github.com/sakif/taskflow/internal/model"
)

// fakeAPI is a chi-routed stand-in for the remote API. It records every
// request so tests can assert on attempt counts, tokens, and headers.
type fakeAPI struct {
	mu sync.Mutex

	// tokens the API currently accepts
	validAccess string
	// token handed out by the refresh endpoint; empty → refresh fails
	nextAccess string
	// alwaysReject makes /tasks/ 401 every attempt, valid token or not
	alwaysReject bool

	attempts    []attempt // every hit on /tasks/
	refreshHits int
}

type attempt struct {
	authHeader string
	requestID  string
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()

	r.Get("/tasks/", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.attempts = append(f.attempts, attempt{
			authHeader: req.Header.Get("Authorization"),
			requestID:  req.Header.Get("X-Request-ID"),
		})
		valid := "Bearer " + f.validAccess
		ok := !f.alwaysReject && f.validAccess != "" && req.Header.Get("Authorization") == valid
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
			return
		}
		w.Write([]byte(`{"results": [{"id": 1, "title": "Ship release"}]}`))
	})

	r.Post("/auth/refresh/", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var payload map[string]string
		json.Unmarshal(body, &payload)

		f.mu.Lock()
		f.refreshHits++
		next := f.nextAccess
		f.mu.Unlock()

		if payload["refresh"] == "" || next == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Token is invalid or expired"}`))
			return
		}

		// The freshly minted token becomes the one the API accepts.
		f.mu.Lock()
		f.validAccess = next
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"access": next})
	})

	return r
}

func (f *fakeAPI) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestPipeline wires a fake API, an in-memory store, and a pipeline.
func newTestPipeline(t *testing.T, api *fakeAPI, opts ...Option) (*Pipeline, *credstore.Memory) {
	t.Helper()
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)

	store := credstore.NewMemory()
	return New(srv.URL, store, testLogger(), opts...), store
}

func TestDoAttachesBearerToken(t *testing.T) {
	api := &fakeAPI{validAccess: "good-token"}
	p, store := newTestPipeline(t, api)
	ctx := context.Background()

	require.NoError(t, store.SetTokens(ctx, model.TokenPair{Access: "good-token", Refresh: "ref"}))

	resp, err := p.Do(ctx, Request{Method: http.MethodGet, Path: "/tasks/"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 1, api.attemptCount())
	assert.Equal(t, "Bearer good-token", api.attempts[0].authHeader)
	assert.NotEmpty(t, api.attempts[0].requestID)
}

func TestDoWithoutTokenSendsUnauthenticated(t *testing.T) {
	api := &fakeAPI{validAccess: "good-token"}
	p, _ := newTestPipeline(t, api)

	resp, err := p.Do(context.Background(), Request{Method: http.MethodGet, Path: "/tasks/"})
	require.NoError(t, err)

	// No token and no refresh token: the 401 passes straight through.
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, api.attemptCount())
	assert.Equal(t, "", api.attempts[0].authHeader, "no Authorization header without a token")
}

func TestDoRefreshesAndRepliesExactlyOnce(t *testing.T) {
	api := &fakeAPI{validAccess: "fresh", nextAccess: "fresh"}
	p, store := newTestPipeline(t, api)
	ctx := context.Background()

	// The stored access token is stale; the refresh endpoint will mint
	// "fresh", which the API accepts.
	require.NoError(t, store.SetTokens(ctx, model.TokenPair{Access: "stale", Refresh: "ref"}))

	resp, err := p.Do(ctx, Request{Method: http.MethodGet, Path: "/tasks/"})
	require.NoError(t, err)

	// The caller sees the retried response, never the original 401.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "Ship release")

	require.Equal(t, 2, api.attemptCount(), "original attempt + exactly one replay")
	assert.Equal(t, "Bearer stale", api.attempts[0].authHeader)
	assert.Equal(t, "Bearer fresh", api.attempts[1].authHeader)
	assert.Equal(t, 1, api.refreshHits)

	// Replay keeps the request ID so both attempts correlate server-side.
	assert.Equal(t, api.attempts[0].requestID, api.attempts[1].requestID)

	// The rotated access token was persisted.
	access, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", access)
}

func TestDoStopsAfterSecondUnauthorized(t *testing.T) {
	// Refresh succeeds but the API keeps rejecting: the pipeline must give
	// up after one replay, not loop.
	api := &fakeAPI{nextAccess: "new-token", alwaysReject: true}
	p, store := newTestPipeline(t, api)
	ctx := context.Background()

	require.NoError(t, store.SetTokens(ctx, model.TokenPair{Access: "stale", Refresh: "ref"}))

	resp, err := p.Do(ctx, Request{Method: http.MethodGet, Path: "/tasks/"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 2, api.attemptCount(), "one original + one replay, no more")
	assert.Equal(t, 1, api.refreshHits)
}

func TestDoRefreshFailureClearsSessionAndPropagatesRefreshError(t *testing.T) {
	api := &fakeAPI{} // nextAccess empty → refresh fails
	expired := false
	p, store := newTestPipeline(t, api, WithSessionExpiredHook(func() { expired = true }))
	ctx := context.Background()

	require.NoError(t, store.SetTokens(ctx, model.TokenPair{Access: "stale", Refresh: "dead-ref"}))
	require.NoError(t, store.SetUser(ctx, &model.User{ID: 1, Username: "amara"}))

	_, err := p.Do(ctx, Request{Method: http.MethodGet, Path: "/tasks/"})
	require.Error(t, err)

	// The caller receives the refresh error, not the original request's 401
	// body.
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
	assert.Contains(t, err.Error(), "refreshing session")

	// All credential state is gone, and the hook fired.
	access, _ := store.AccessToken(ctx)
	refresh, _ := store.RefreshToken(ctx)
	user, _ := store.User(ctx)
	assert.Equal(t, "", access)
	assert.Equal(t, "", refresh)
	assert.Nil(t, user)
	assert.True(t, expired, "session-expired hook must fire on refresh failure")

	assert.Equal(t, 1, api.attemptCount(), "no replay after a failed refresh")
}

func TestDoReplaysRequestBody(t *testing.T) {
	var bodies []string
	var mu sync.Mutex

	r := chi.NewRouter()
	r.Post("/tasks/", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	r.Post("/auth/refresh/", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	store := credstore.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.SetTokens(ctx, model.TokenPair{Access: "stale", Refresh: "ref"}))

	p := New(srv.URL, store, testLogger())
	payload := []byte(`{"title": "Write launch notes"}`)
	resp, err := p.Do(ctx, Request{Method: http.MethodPost, Path: "/tasks/", Body: payload})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// The replay must carry the identical payload: the body is rebuilt
	// from bytes, not re-read from a spent reader.
	require.Len(t, bodies, 2)
	assert.Equal(t, string(payload), bodies[0])
	assert.Equal(t, string(payload), bodies[1])
}

func TestConcurrentRequestsHaveIndependentRetryBudgets(t *testing.T) {
	api := &fakeAPI{nextAccess: "fresh"}
	p, store := newTestPipeline(t, api)
	ctx := context.Background()

	require.NoError(t, store.SetTokens(ctx, model.TokenPair{Access: "stale", Refresh: "ref"}))
	api.validAccess = "fresh"

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	statuses := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := p.Do(ctx, Request{Method: http.MethodGet, Path: "/tasks/"})
			errs[i] = err
			if resp != nil {
				statuses[i] = resp.StatusCode
			}
		}(i)
	}
	wg.Wait()

	// Every request recovers on its own budget. There is deliberately no
	// single-flight guard, so the refresh endpoint may be hit up to n times.
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
	}
	assert.LessOrEqual(t, api.refreshHits, n)
	assert.GreaterOrEqual(t, api.refreshHits, 1)
}

func TestResponseDecodeAndErr(t *testing.T) {
	ok := &Response{StatusCode: 200, Body: []byte(`{"id": 5, "title": "Triage bugs"}`)}
	var task model.Task
	require.NoError(t, ok.Decode(&task))
	assert.Equal(t, int64(5), task.ID)
	assert.Equal(t, "Triage bugs", task.Title)

	denied := &Response{StatusCode: 403, Body: []byte(`{"detail": "nope"}`)}
	err := denied.Decode(&task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}
