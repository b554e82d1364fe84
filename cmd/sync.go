package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/articlesync/internal/query"
	"github.com/yourusername/articlesync/internal/snapshot"
	"github.com/yourusername/articlesync/internal/storage"
	"github.com/yourusername/articlesync/internal/watch"
)

var flagOnce bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local snapshot and session state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			sig, err := a.store.Signals()
			if err != nil {
				return fmt.Errorf("reading change signals: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "API:        %s\n", a.cfg.API.BaseURL)
			fmt.Fprintf(w, "Store:      %s %s\n", a.cfg.Store.Backend, a.cfg.Store.Path)
			fmt.Fprintf(w, "Articles:   %d\n", len(a.store.ReadAll()))
			fmt.Fprintf(w, "Categories: %d\n", len(a.store.Categories()))
			fmt.Fprintf(w, "Signals:    %s\n", describeSignals(sig))
			switch user, ok := a.session.CurrentUser(); {
			case !a.session.IsAuthenticated() || !ok:
				fmt.Fprintln(w, "Session:    none")
			case a.session.IsDemo():
				fmt.Fprintf(w, "Session:    %s (demo)\n", user.Email)
			default:
				fmt.Fprintf(w, "Session:    %s\n", user.Email)
			}
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the local snapshot to the bundled dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			if err := a.store.ResetToDefault(); err != nil {
				return fmt.Errorf("resetting snapshot: %w", err)
			}
			if err := a.store.ClearSignals(); err != nil {
				return fmt.Errorf("clearing change signals: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot reset to %d articles and %d categories.\n",
				len(a.store.ReadAll()), len(a.store.Categories()))
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a refreshed article count whenever the snapshot changes",
	Long: `Watch polls the snapshot's change signals and, with the file backend, also
observes the snapshot directory so writes from other processes are noticed
without waiting for the next poll.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			return runWatch(cmd.Context(), a, cmd.OutOrStdout(), flagOnce)
		})
	},
}

func init() {
	watchCmd.Flags().BoolVar(&flagOnce, "once", false, "check the change signals once and exit")
}

func runWatch(ctx context.Context, a *app, out io.Writer, once bool) error {
	var mu sync.Mutex
	refresh := func(reason string) {
		resp := a.articles.List(ctx, query.Params{Limit: a.cfg.List.PageSize})
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "%s %s: %d articles (%s)\n",
			time.Now().Format(time.TimeOnly), reason, resp.Data.Total, resp.Source)
	}

	poller := watch.NewPollerWithLogger(a.store, a.cfg.Sync.PollInterval, func(sig snapshot.Signals) {
		refresh(describeSignals(sig))
	}, a.logger)

	if once {
		if !poller.Check(ctx) {
			fmt.Fprintln(out, "No pending changes.")
		}
		return nil
	}

	if fb, ok := a.backend.(*storage.FileBackend); ok {
		obs, err := watch.NewFileObserverWithLogger(fb.Dir(),
			[]string{snapshot.KeyArticles, snapshot.KeyCategories},
			a.cfg.Sync.Debounce,
			func(keys []string) { refresh("changed " + strings.Join(keys, ", ")) },
			a.logger)
		if err != nil {
			return fmt.Errorf("watching %s: %w", fb.Dir(), err)
		}
		defer func() { _ = obs.Close() }()
		go func() { _ = obs.Run(ctx) }()
	}

	defer watchStore(a.store, refresh)()

	refresh("initial")
	return poller.Run(ctx)
}

// watchStore reports mutations made through store in this process, which
// reach the change signals only after the next poll. The returned function
// stops reporting.
func watchStore(store *snapshot.Store, refresh func(reason string)) func() {
	return store.Subscribe(func(e snapshot.Event) {
		reason := e.Kind.String()
		if e.ID != "" {
			reason += " " + e.ID
		}
		refresh(reason)
	})
}

func describeSignals(sig snapshot.Signals) string {
	var parts []string
	if sig.Deleted {
		parts = append(parts, "deleted"+since(sig.DeletedAt))
	}
	if sig.Updated {
		parts = append(parts, "updated"+since(sig.UpdatedAt))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func since(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return " at " + t.Local().Format(time.DateTime)
}
