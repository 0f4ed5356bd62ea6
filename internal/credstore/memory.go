package credstore

import (
	"context"
	"sync"

	"github.com/sakif/taskflow/internal/model"
)

// Memory is an in-process Store. It backs tests and one-shot CLI invocations
// where persistence across runs is not wanted.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	user   *model.User
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[KeyAccessToken], nil
}

func (m *Memory) SetAccessToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyAccessToken] = token
	return nil
}

func (m *Memory) RefreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[KeyRefreshToken], nil
}

func (m *Memory) SetTokens(ctx context.Context, tokens model.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyAccessToken] = tokens.Access
	m.values[KeyRefreshToken] = tokens.Refresh
	return nil
}

func (m *Memory) User(ctx context.Context) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, nil
	}
	copied := *m.user
	return &copied, nil
}

func (m *Memory) SetUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user == nil {
		m.user = nil
		return nil
	}
	copied := *user
	m.user = &copied
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	m.user = nil
	return nil
}

func (m *Memory) Close() error {
	return nil
}
