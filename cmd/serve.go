package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/yourusername/articlesync/internal/demoapi"
)

var (
	flagAddr   string
	flagDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo content API backed by SQLite",
	Long: `Serve starts a local implementation of the content API with the bundled
articles, categories and the demo accounts (password "` + demoapi.DefaultPassword + `").
Point --api-url at http://<addr>/api to use it from another terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Log, cmd.ErrOrStderr())

		addr := cfg.Server.Addr
		if flagAddr != "" {
			addr = flagAddr
		}
		dbPath := cfg.Server.DBPath
		if flagDBPath != "" {
			dbPath = flagDBPath
		}
		if dbPath != ":memory:" {
			// #nosec G301 -- 0755 is appropriate for the state directory
			if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
		}

		repo, err := demoapi.OpenRepository(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() { _ = repo.Close() }()

		seeded, err := repo.Seed()
		if err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
		if seeded {
			logger.Info("Seeded demo database", "path", dbPath)
		}

		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           demoapi.NewServerWithLogger(repo, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return serve(cmd.Context(), srv, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Serving demo API on http://%s/api\n", addr)
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&flagDBPath, "db", "", `SQLite path, or ":memory:"`)
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, started func()) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	started()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
