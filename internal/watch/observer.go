package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yourusername/articlesync/internal/storage"
)

// FileObserver watches a file backend's directory and reports writes to the
// given keys, coalescing bursts within the debounce window. It lets a second
// process notice changes without waiting for the next poll.
type FileObserver struct {
	dir     string
	keys    map[string]bool
	watcher *fsnotify.Watcher
	handler func(keys []string)
	window  time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	batch   map[string]bool
	stopped bool
	closeMu sync.Once
}

// NewFileObserver creates an observer over dir. handler receives the sorted,
// de-duplicated keys touched during one window.
func NewFileObserver(dir string, keys []string, window time.Duration, handler func(keys []string)) (*FileObserver, error) {
	return NewFileObserverWithLogger(dir, keys, window, handler, slog.Default())
}

// NewFileObserverWithLogger creates an observer with a custom logger.
func NewFileObserverWithLogger(dir string, keys []string, window time.Duration, handler func(keys []string), logger *slog.Logger) (*FileObserver, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	if window <= 0 {
		window = 100 * time.Millisecond
	}
	return &FileObserver{
		dir:     dir,
		keys:    set,
		watcher: w,
		handler: handler,
		window:  window,
		logger:  logger.With("component", "watch.observer", "dir", dir),
		batch:   make(map[string]bool),
	}, nil
}

// Run delivers events until ctx is done or the observer is closed.
func (o *FileObserver) Run(ctx context.Context) error {
	flush := NewDebouncer(o.window, func(struct{}) { o.deliver() })
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-o.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) {
				continue
			}
			key, ok := storage.KeyFor(filepath.Base(event.Name))
			if !ok || !o.keys[key] {
				continue
			}
			o.mu.Lock()
			o.batch[key] = true
			o.mu.Unlock()
			flush.Push(struct{}{})
		case err, ok := <-o.watcher.Errors:
			if !ok {
				return nil
			}
			o.logger.WarnContext(ctx, "Watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (o *FileObserver) Close() error {
	var err error
	o.closeMu.Do(func() {
		o.mu.Lock()
		o.stopped = true
		o.mu.Unlock()
		err = o.watcher.Close()
	})
	return err
}

func (o *FileObserver) deliver() {
	o.mu.Lock()
	if o.stopped || len(o.batch) == 0 {
		o.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(o.batch))
	for k := range o.batch {
		keys = append(keys, k)
	}
	o.batch = make(map[string]bool)
	o.mu.Unlock()

	slices.Sort(keys)
	o.logger.Debug("Observed external change", "keys", keys)
	o.handler(keys)
}
