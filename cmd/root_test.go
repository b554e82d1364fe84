package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yourusername/articlesync/internal/config"
	"github.com/yourusername/articlesync/internal/demoapi"
	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/snapshot"
	"github.com/yourusername/articlesync/internal/storage"
)

// resetFlags restores every flag to its default so commands can be executed
// repeatedly within one test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// writeConfig points the client at baseURL with a file snapshot in a fresh
// temp directory.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	for _, key := range []string{config.EnvAPIURL, config.EnvToken, config.EnvStore, config.EnvStorePath, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	yaml := `
api:
  base_url: "` + baseURL + `"
  timeout_seconds: 2
store:
  backend: file
  path: "` + filepath.Join(dir, "store") + `"
list:
  page_size: 5
log:
  level: error
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// offlineURL returns the address of a server that is no longer listening.
func offlineURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/api"
	srv.Close()
	return url
}

func startDemoAPI(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo, err := demoapi.OpenRepository(":memory:")
	if err != nil {
		t.Fatalf("OpenRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if _, err := repo.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	srv := httptest.NewServer(demoapi.NewServerWithLogger(repo, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if want := "articlesync 1.2.3 (commit: abc, built: today)"; !strings.Contains(out, want) {
		t.Errorf("version output = %q, want %q", out, want)
	}
}

func TestArticlesListOffline(t *testing.T) {
	cfg := writeConfig(t, offlineURL(t))

	out, errOut, err := run(t, "--config", cfg, "articles", "list", "--page", "3")
	if err != nil {
		t.Fatalf("articles list: %v", err)
	}
	if !strings.Contains(out, "Page 3 of 3 (12 total)") {
		t.Errorf("unexpected footer in:\n%s", out)
	}
	if !strings.Contains(errOut, "[demo]") {
		t.Errorf("offline list should be marked as demo, stderr:\n%s", errOut)
	}
}

func TestArticlesListSearchOffline(t *testing.T) {
	cfg := writeConfig(t, offlineURL(t))

	out, _, err := run(t, "--config", cfg, "--json", "articles", "list", "--search", "world", "--limit", "10")
	if err != nil {
		t.Fatalf("articles list: %v", err)
	}
	var resp model.List[model.Article]
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if resp.Data.Total != 3 || resp.Source != model.SourceLocal {
		t.Errorf("total = %d source = %s, want 3 local", resp.Data.Total, resp.Source)
	}
}

func TestDeleteThenListOffline(t *testing.T) {
	cfg := writeConfig(t, offlineURL(t))

	out, _, err := run(t, "--config", cfg, "articles", "delete", "3")
	if err != nil {
		t.Fatalf("articles delete: %v", err)
	}
	if !strings.Contains(out, "Deleted article 3") {
		t.Errorf("delete output = %q", out)
	}

	out, _, err = run(t, "--config", cfg, "--json", "articles", "list")
	if err != nil {
		t.Fatalf("articles list: %v", err)
	}
	var resp model.List[model.Article]
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if resp.Data.Total != 11 {
		t.Errorf("total after delete = %d, want 11", resp.Data.Total)
	}

	if _, _, err := run(t, "--config", cfg, "articles", "get", "3"); err == nil {
		t.Error("get of a deleted article should fail")
	}
}

func TestUpdateRequiresFields(t *testing.T) {
	cfg := writeConfig(t, offlineURL(t))

	_, _, err := run(t, "--config", cfg, "articles", "update", "1")
	if err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Errorf("update without flags: err = %v", err)
	}
}

func TestUpdateOffline(t *testing.T) {
	cfg := writeConfig(t, offlineURL(t))

	if _, _, err := run(t, "--config", cfg, "articles", "update", "1", "--title", "Renamed"); err != nil {
		t.Fatalf("articles update: %v", err)
	}
	out, _, err := run(t, "--config", cfg, "articles", "get", "1")
	if err != nil {
		t.Fatalf("articles get: %v", err)
	}
	if !strings.Contains(out, "Renamed") {
		t.Errorf("get output missing new title:\n%s", out)
	}
}

func TestStatusResetAndWatch(t *testing.T) {
	cfg := writeConfig(t, offlineURL(t))

	if _, _, err := run(t, "--config", cfg, "articles", "delete", "1"); err != nil {
		t.Fatalf("articles delete: %v", err)
	}

	out, _, err := run(t, "--config", cfg, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Articles:   11") || !strings.Contains(out, "deleted at") {
		t.Errorf("status output:\n%s", out)
	}

	out, _, err = run(t, "--config", cfg, "watch", "--once")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out, "deleted") || !strings.Contains(out, "11 articles") {
		t.Errorf("watch output:\n%s", out)
	}

	out, _, err = run(t, "--config", cfg, "watch", "--once")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out, "No pending changes.") {
		t.Errorf("signals should be cleared after the first watch, got:\n%s", out)
	}

	out, _, err = run(t, "--config", cfg, "reset")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, "Snapshot reset to 12 articles and 5 categories.") {
		t.Errorf("reset output = %q", out)
	}
}

func TestDemoLoginOffline(t *testing.T) {
	cfg := writeConfig(t, offlineURL(t))

	out, errOut, err := run(t, "--config", cfg, "login", "--email", "boss-admin@example.com", "--password", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "(admin)") || !strings.Contains(errOut, "[demo]") {
		t.Errorf("login output:\n%s\n%s", out, errOut)
	}

	out, _, err = run(t, "--config", cfg, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "Role: admin") || !strings.Contains(out, "Session: demo") {
		t.Errorf("whoami output:\n%s", out)
	}

	if _, _, err := run(t, "--config", cfg, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := run(t, "--config", cfg, "whoami"); err == nil {
		t.Error("whoami after logout should fail")
	}
}

func TestDemoRegisterListsAccount(t *testing.T) {
	cfg := writeConfig(t, offlineURL(t))

	_, _, err := run(t, "--config", cfg, "register",
		"--name", "Dana", "--email", "dana@example.com", "--password", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	out, _, err := run(t, "--config", cfg, "accounts")
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if !strings.Contains(out, "dana@example.com") {
		t.Errorf("accounts output = %q", out)
	}
}

func TestAgainstDemoAPI(t *testing.T) {
	cfg := writeConfig(t, startDemoAPI(t))

	out, errOut, err := run(t, "--config", cfg, "login", "--email", "admin@example.com", "--password", demoapi.DefaultPassword)
	if err != nil {
		t.Fatalf("login: %v\n%s", err, errOut)
	}
	if !strings.Contains(out, "(admin)") || strings.Contains(errOut, "[demo]") {
		t.Errorf("login output:\n%s\n%s", out, errOut)
	}

	out, errOut, err = run(t, "--config", cfg, "articles", "list")
	if err != nil {
		t.Fatalf("articles list: %v", err)
	}
	if !strings.Contains(out, "(12 total)") || strings.Contains(errOut, "[demo]") {
		t.Errorf("list output:\n%s\n%s", out, errOut)
	}

	out, _, err = run(t, "--config", cfg, "categories", "create", "--name", "Science")
	if err != nil {
		t.Fatalf("categories create: %v", err)
	}
	if !strings.Contains(out, "Created category") {
		t.Errorf("create output = %q", out)
	}

	out, _, err = run(t, "--config", cfg, "--json", "categories", "list", "--search", "science")
	if err != nil {
		t.Fatalf("categories list: %v", err)
	}
	var resp model.List[model.Category]
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if resp.Data.Total != 1 || resp.Source != model.SourceRemote {
		t.Errorf("total = %d source = %s, want 1 remote", resp.Data.Total, resp.Source)
	}

	out, _, err = run(t, "--config", cfg, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if strings.Contains(out, "Session: demo") {
		t.Errorf("remote login should not be a demo session:\n%s", out)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	cfg := writeConfig(t, "http://example.com/api")
	resetFlags(rootCmd)
	flagConfig = cfg
	flagStore = "memory"
	flagAPIURL = "http://localhost:1/api"
	t.Cleanup(func() { resetFlags(rootCmd) })

	got, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got.Store.Backend != "memory" || got.Store.Path != "" {
		t.Errorf("store = %+v, want memory without path", got.Store)
	}
	if got.API.BaseURL != "http://localhost:1/api" {
		t.Errorf("BaseURL = %q", got.API.BaseURL)
	}
	if got.List.PageSize != 5 {
		t.Errorf("PageSize = %d, want 5 from file", got.List.PageSize)
	}
}

func TestDescribeSignals(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		sig  snapshot.Signals
		want string
	}{
		{snapshot.Signals{}, "none"},
		{snapshot.Signals{Deleted: true}, "deleted"},
		{snapshot.Signals{Updated: true, UpdatedAt: at}, "updated at " + at.Local().Format(time.DateTime)},
		{snapshot.Signals{Deleted: true, Updated: true}, "deleted, updated"},
	}
	for _, tt := range tests {
		if got := describeSignals(tt.sig); got != tt.want {
			t.Errorf("describeSignals(%+v) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestWatchStoreReportsLocalMutations(t *testing.T) {
	store := snapshot.New(storage.NewMemoryBackend())
	store.EnsureSeeded()

	var reasons []string
	stop := watchStore(store, func(reason string) { reasons = append(reasons, reason) })
	if !store.Remove("1") {
		t.Fatal("Remove(1) = false")
	}
	stop()
	store.Remove("2")

	if len(reasons) != 1 || reasons[0] != "deleted 1" {
		t.Errorf("reasons = %q, want [\"deleted 1\"]", reasons)
	}
}

func TestArticleOutputNamesCategoryFromList(t *testing.T) {
	a := model.Article{ID: "9", Title: "Sleep", CategoryID: "2"}
	cats := []model.Category{{ID: "1", Name: "Technology"}, {ID: "2", Name: "Health"}}

	var table bytes.Buffer
	articleTable(&table, model.Page[model.Article]{Items: []model.Article{a}, Page: 1, TotalPages: 1, Total: 1}, cats)
	if !strings.Contains(table.String(), "Health") {
		t.Errorf("table = %q, want category name Health", table.String())
	}

	var detail bytes.Buffer
	articleDetail(&detail, a, cats)
	if !strings.Contains(detail.String(), "Health (2)") {
		t.Errorf("detail = %q, want \"Health (2)\"", detail.String())
	}

	detail.Reset()
	articleDetail(&detail, a, nil)
	if !strings.Contains(detail.String(), model.UnknownCategory) {
		t.Errorf("detail without categories = %q, want %q", detail.String(), model.UnknownCategory)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate long = %q", got)
	}
}
