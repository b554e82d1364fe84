// Package resolver decides, per operation, whether a result comes from the
// remote gateway or the local snapshot, and reports which source served it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yourusername/articlesync/internal/gateway"
	"github.com/yourusername/articlesync/internal/model"
)

// ErrUnavailable means neither source could serve the request.
var ErrUnavailable = errors.New("not available from any source")

var (
	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "articlesync_resolver_outcomes_total",
		Help: "Resolved operations by serving source",
	}, []string{"op", "source"})

	remoteFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "articlesync_resolver_remote_failures_total",
		Help: "Remote attempts that failed and were handed to the local source",
	}, []string{"op"})
)

// Policy selects which source is consulted first for a read.
type Policy int

const (
	// RemoteFirst treats the API as the source of truth and falls back to the
	// snapshot on failure.
	RemoteFirst Policy = iota
	// LocalFirst answers from the snapshot when it has the record and only
	// asks the API otherwise. A remote failure after a local miss is final.
	LocalFirst
)

// ParsePolicy accepts "remote-first" and "local-first".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "remote-first":
		return RemoteFirst, nil
	case "local-first", "":
		return LocalFirst, nil
	default:
		return 0, fmt.Errorf("unknown detail policy %q", s)
	}
}

func (p Policy) String() string {
	if p == RemoteFirst {
		return "remote-first"
	}
	return "local-first"
}

// Outcome is the result of one resolved operation. Source is SourceNone when
// the operation failed, in which case Err says why.
type Outcome[T any] struct {
	Value  T
	Source model.Source
	Err    error
}

// OK reports whether some source served the operation.
func (o Outcome[T]) OK() bool {
	return o.Source == model.SourceRemote || o.Source == model.SourceLocal
}

// Expired reports whether the operation was cut short by a 401.
func (o Outcome[T]) Expired() bool {
	return errors.Is(o.Err, gateway.ErrSessionExpired)
}

// RemoteFunc performs the remote half of an operation.
type RemoteFunc[T any] func(ctx context.Context) (T, error)

// LocalFunc performs the local half and reports whether it found or mutated
// a record.
type LocalFunc[T any] func() (T, bool)

// Resolver carries the logger shared by every resolution.
type Resolver struct {
	logger *slog.Logger
}

// New creates a resolver.
func New() *Resolver {
	return NewWithLogger(slog.Default())
}

// NewWithLogger creates a resolver with a custom logger.
func NewWithLogger(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger.With("component", "resolver")}
}

// Resolve runs a read under policy. An expired session never falls back.
func Resolve[T any](ctx context.Context, r *Resolver, op string, policy Policy, remote RemoteFunc[T], local LocalFunc[T]) Outcome[T] {
	if policy == LocalFirst {
		if v, ok := local(); ok {
			return finish(ctx, r, op, Outcome[T]{Value: v, Source: model.SourceLocal})
		}
		v, err := remote(ctx)
		if err != nil {
			return finish(ctx, r, op, Outcome[T]{Err: fmt.Errorf("%w: %w", ErrUnavailable, err)})
		}
		return finish(ctx, r, op, Outcome[T]{Value: v, Source: model.SourceRemote})
	}

	v, err := remote(ctx)
	if err == nil {
		return finish(ctx, r, op, Outcome[T]{Value: v, Source: model.SourceRemote})
	}
	if errors.Is(err, gateway.ErrSessionExpired) {
		return finish(ctx, r, op, Outcome[T]{Err: err})
	}

	remoteFailuresTotal.WithLabelValues(op).Inc()
	r.logger.InfoContext(ctx, "Remote failed, using local snapshot", "op", op, "error", err)
	if lv, ok := local(); ok {
		return finish(ctx, r, op, Outcome[T]{Value: lv, Source: model.SourceLocal})
	}
	return finish(ctx, r, op, Outcome[T]{Err: fmt.Errorf("%w: %w", ErrUnavailable, err)})
}

// Apply runs a mutation: the local half first and unconditionally, then the
// remote half. A remote failure is absorbed when the local mutation took
// effect. An expired session still fails the operation even though the local
// mutation stands.
func Apply[T any](ctx context.Context, r *Resolver, op string, local LocalFunc[T], remote RemoteFunc[T]) Outcome[T] {
	lv, applied := local()

	v, err := remote(ctx)
	if err == nil {
		return finish(ctx, r, op, Outcome[T]{Value: v, Source: model.SourceRemote})
	}
	if errors.Is(err, gateway.ErrSessionExpired) {
		return finish(ctx, r, op, Outcome[T]{Err: err})
	}

	remoteFailuresTotal.WithLabelValues(op).Inc()
	if applied {
		r.logger.InfoContext(ctx, "Remote failed, keeping local mutation", "op", op, "error", err)
		return finish(ctx, r, op, Outcome[T]{Value: lv, Source: model.SourceLocal})
	}
	return finish(ctx, r, op, Outcome[T]{Err: fmt.Errorf("%w: %w", ErrUnavailable, err)})
}

// Fallback runs a mutation remote-first and only touches the snapshot when
// the remote call fails. Creates use it since the API assigns ids.
func Fallback[T any](ctx context.Context, r *Resolver, op string, remote RemoteFunc[T], local LocalFunc[T]) Outcome[T] {
	return Resolve(ctx, r, op, RemoteFirst, remote, local)
}

func finish[T any](ctx context.Context, r *Resolver, op string, o Outcome[T]) Outcome[T] {
	if o.OK() {
		outcomesTotal.WithLabelValues(op, string(o.Source)).Inc()
		r.logger.DebugContext(ctx, "Operation resolved", "op", op, "source", o.Source)
		return o
	}
	o.Source = model.SourceNone
	outcomesTotal.WithLabelValues(op, string(model.SourceNone)).Inc()
	r.logger.WarnContext(ctx, "Operation failed", "op", op, "error", o.Err)
	return o
}
