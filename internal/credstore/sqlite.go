package credstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sakif/taskflow/internal/model"

	// Registers the pure-Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single-file SQLite database.
//
// WHY SQLITE FOR THREE KEYS?
// The client needs credentials to survive process restarts the way a browser
// client survives page reloads. A single-file embedded database gives us
// durable, transactional writes with no infrastructure, and ":memory:" works
// for tests. The schema is a plain key-value table; the three keys are a
// contract, not a schema concern.
type SQLite struct {
	conn *sql.DB
}

// compile-time check that *SQLite implements Store
var _ Store = (*SQLite)(nil)

// NewSQLite opens (or creates) the credential database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("credstore: opening database: %w", err)
	}

	// Force an immediate connection so a bad path fails here, not on the
	// first read during bootstrap.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("credstore: pinging database: %w", err)
	}

	// WAL lets a concurrent read proceed while a token write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("credstore: setting WAL mode: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("credstore: running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating credentials table: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credstore: reading %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) set(ctx context.Context, key, value string) error {
	// Upsert: last write wins, which is the only ordering discipline the
	// store promises.
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO credentials (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("credstore: writing %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAccessToken)
}

func (s *SQLite) SetAccessToken(ctx context.Context, token string) error {
	return s.set(ctx, KeyAccessToken, token)
}

func (s *SQLite) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefreshToken)
}

func (s *SQLite) SetTokens(ctx context.Context, tokens model.TokenPair) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("credstore: beginning token write: %w", err)
	}
	defer tx.Rollback()

	for key, value := range map[string]string{
		KeyAccessToken:  tokens.Access,
		KeyRefreshToken: tokens.Refresh,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("credstore: writing %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("credstore: committing token write: %w", err)
	}
	return nil
}

func (s *SQLite) User(ctx context.Context) (*model.User, error) {
	raw, err := s.get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// A corrupt cached record is treated as "not logged in" rather than
		// a hard failure; bootstrap falls back to unauthenticated and the
		// next login rewrites it.
		return nil, nil
	}
	return &user, nil
}

func (s *SQLite) SetUser(ctx context.Context, user *model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("credstore: encoding user: %w", err)
	}
	return s.set(ctx, KeyUser, string(raw))
}

// Clear removes every credential in a single transaction. Logout depends on
// this being synchronous and local; it must never wait on the network.
func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM credentials`)
	if err != nil {
		return fmt.Errorf("credstore: clearing credentials: %w", err)
	}
	return nil
}
