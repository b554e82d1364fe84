package watch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/articlesync/internal/snapshot"
	"github.com/yourusername/articlesync/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDebouncerLastWriteWins(t *testing.T) {
	got := make(chan string, 10)
	d := NewDebouncer(40*time.Millisecond, func(s string) { got <- s })

	for _, s := range []string{"g", "go", "gol", "gola"} {
		d.Push(s)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case v := <-got:
		assert.Equal(t, "gola", v)
	case <-time.After(time.Second):
		t.Fatal("debounced value never delivered")
	}

	select {
	case v := <-got:
		t.Fatalf("superseded value %q delivered", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerFlushAndStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(time.Hour, func(int) { calls.Add(1) })

	assert.False(t, d.Flush())
	d.Push(1)
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Flush())

	d.Push(2)
	d.Stop()
	assert.False(t, d.Flush())
	assert.Equal(t, int32(1), calls.Load())
}

func newStore(t *testing.T, b storage.Backend) *snapshot.Store {
	t.Helper()
	return snapshot.NewWithLogger(b, quietLogger())
}

func TestPollerCheck(t *testing.T) {
	store := newStore(t, storage.NewMemoryBackend())
	var seen []snapshot.Signals
	p := NewPollerWithLogger(store, time.Second, func(s snapshot.Signals) { seen = append(seen, s) }, quietLogger())

	ctx := context.Background()
	assert.False(t, p.Check(ctx))

	require.True(t, store.Remove("3"))
	assert.True(t, p.Check(ctx))
	assert.False(t, p.Check(ctx), "signals are cleared once observed")

	require.Len(t, seen, 1)
	assert.True(t, seen[0].Deleted)
	assert.False(t, seen[0].Updated)
}

func TestPollerRun(t *testing.T) {
	store := newStore(t, storage.NewMemoryBackend())
	refreshed := make(chan struct{}, 1)
	p := NewPollerWithLogger(store, 10*time.Millisecond, func(snapshot.Signals) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.True(t, store.Remove("1"))

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not notice the delete")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFileObserverSeesOtherWriter(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var got []string
	notified := make(chan struct{}, 1)
	obs, err := NewFileObserverWithLogger(dir,
		[]string{snapshot.KeyDeletedAt, snapshot.KeyUpdatedAt},
		20*time.Millisecond,
		func(keys []string) {
			mu.Lock()
			got = append(got, keys...)
			mu.Unlock()
			select {
			case notified <- struct{}{}:
			default:
			}
		}, quietLogger())
	require.NoError(t, err)
	defer func() { _ = obs.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = obs.Run(ctx) }()

	// a second store over the same directory plays the other process
	other, err := storage.NewFileBackend(dir)
	require.NoError(t, err)
	require.True(t, newStore(t, other).Remove("2"))

	select {
	case <-notified:
	case <-time.After(3 * time.Second):
		t.Fatal("observer did not report the marker write")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, got, snapshot.KeyDeletedAt)
	assert.NotContains(t, got, snapshot.KeyArticles)
}
