// Package watch observes the snapshot for changes made elsewhere and
// debounces user input.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourusername/articlesync/internal/snapshot"
)

// DefaultPollInterval is how often list views check the change signals.
const DefaultPollInterval = 2 * time.Second

// SignalSource exposes the snapshot's change markers.
type SignalSource interface {
	Signals() (snapshot.Signals, error)
	ClearSignals() error
}

// Poller checks the change signals on a fixed interval and calls onChange,
// after clearing them, whenever one is set.
type Poller struct {
	source   SignalSource
	interval time.Duration
	onChange func(snapshot.Signals)
	logger   *slog.Logger
}

// NewPoller creates a poller. An interval <= 0 uses DefaultPollInterval.
func NewPoller(source SignalSource, interval time.Duration, onChange func(snapshot.Signals)) *Poller {
	return NewPollerWithLogger(source, interval, onChange, slog.Default())
}

// NewPollerWithLogger creates a poller with a custom logger.
func NewPollerWithLogger(source SignalSource, interval time.Duration, onChange func(snapshot.Signals), logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		source:   source,
		interval: interval,
		onChange: onChange,
		logger:   logger.With("component", "watch.poller"),
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.DebugContext(ctx, "Polling change signals", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check performs a single poll and reports whether onChange was called.
func (p *Poller) Check(ctx context.Context) bool {
	sig, err := p.source.Signals()
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to read change signals", "error", err)
		return false
	}
	if !sig.Pending() {
		return false
	}
	if err := p.source.ClearSignals(); err != nil {
		p.logger.WarnContext(ctx, "Failed to clear change signals", "error", err)
	}
	p.logger.InfoContext(ctx, "Snapshot changed, refreshing",
		"deleted", sig.Deleted,
		"updated", sig.Updated)
	p.onChange(sig)
	return true
}
