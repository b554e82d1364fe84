package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/articlesync/internal/config"
	"github.com/yourusername/articlesync/internal/gateway"
	"github.com/yourusername/articlesync/internal/service"
	"github.com/yourusername/articlesync/internal/session"
	"github.com/yourusername/articlesync/internal/snapshot"
	"github.com/yourusername/articlesync/internal/storage"
)

// app holds everything a command needs, built from the merged configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend storage.Backend
	closeFn func() error

	store      *snapshot.Store
	session    *session.Store
	gateway    gateway.Gateway
	auth       *session.Authenticator
	articles   *service.ArticleService
	categories *service.CategoryService
}

// loadConfig reads the config file (the --config flag, or the XDG default
// when it exists) and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		if _, err := os.Stat(config.DefaultPath()); err == nil {
			path = config.DefaultPath()
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}
	if flagStore != "" && flagStore != cfg.Store.Backend {
		cfg.Store.Backend = flagStore
		cfg.Store.Path = ""
		if flagStore != string(storage.KindMemory) {
			cfg.Store.Path = filepath.Join(config.DataDir(), flagStore)
		}
	}
	if flagStorePath != "" {
		cfg.Store.Path = flagStorePath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// tokenSource prefers the stored session and falls back to a token preset in
// the configuration.
type tokenSource struct {
	session *session.Store
	preset  string
}

func (t tokenSource) Token() string {
	if tok := t.session.Token(); tok != "" {
		return tok
	}
	return t.preset
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	sc := cfg.StorageConfig()
	sc.Logger = logger
	backend, closeFn, err := storage.Open(sc)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		closeFn: closeFn,
		store:   snapshot.NewWithLogger(backend, logger),
		session: session.NewStoreWithLogger(backend, logger),
	}

	stderr := cmd.ErrOrStderr()
	a.gateway = gateway.NewWithLogger(gateway.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Tokens:            tokenSource{session: a.session, preset: cfg.GetToken()},
		Session:           a.session,
		OnSessionExpired: func(redirect string) {
			fmt.Fprintf(stderr, "Session expired. Run `articlesync login` to continue (%s).\n", redirect)
		},
	}, logger)

	opts := service.Options{
		DetailPolicy: cfg.DetailPolicy(),
		RelatedLimit: cfg.List.RelatedLimit,
	}
	a.auth = session.NewAuthenticatorWithLogger(a.session, a.gateway, logger)
	a.articles = service.NewArticleServiceWithLogger(a.gateway, a.store, opts, logger)
	a.categories = service.NewCategoryServiceWithLogger(a.gateway, a.store, opts, logger)
	return a, nil
}

func (a *app) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, fn func(a *app) error) (err error) {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}
