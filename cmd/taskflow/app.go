package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/taskflow/internal/api"
	"github.com/sakif/taskflow/internal/config"
	"github.com/sakif/taskflow/internal/credstore"
	"github.com/sakif/taskflow/internal/session"
	"github.com/sakif/taskflow/internal/transport"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	baseURL    string
	verbose    bool
}

// app is the composition root: config, credential store, pipeline, session
// controller, and API client wired together for one command invocation.
type app struct {
	cfg     config.Config
	store   credstore.Store
	session *session.Controller
	client  *api.Client
	logger  *slog.Logger
}

// newApp builds the dependency graph and bootstraps the session from the
// credential store. Callers must defer close.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}

	level := parseLevel(cfg.LogLevel)
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(filepath.Dir(cfg.CredentialsPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating credential directory: %w", err)
	}
	store, err := credstore.NewSQLite(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	pipeline := transport.New(cfg.BaseURL, store, logger,
		transport.WithSessionExpiredHook(func() {
			fmt.Fprintln(os.Stderr, "Session expired. Run `taskflow login` to sign in again.")
		}),
	)

	ctrl := session.New(store, pipeline, logger)
	if err := ctrl.Bootstrap(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		store:   store,
		session: ctrl,
		client:  api.NewClient(pipeline),
		logger:  logger,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing credential store", slog.String("error", err.Error()))
	}
}

// requireSession fails fast for commands that need an authenticated user.
func (a *app) requireSession() error {
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in; run `taskflow login` first")
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
