package watch

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiescence window for search input.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer delivers the last value pushed once no new value has arrived for
// the delay. Earlier pending values are dropped.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu         sync.Mutex
	timer      *time.Timer
	seq        uint64
	pending    T
	hasPending bool
}

// NewDebouncer creates a debouncer calling fn. A delay <= 0 uses
// DefaultDebounce.
func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Push supersedes any pending value with v and restarts the window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	d.pending = v
	d.hasPending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush delivers the pending value now and reports whether there was one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	return d.take(d.seq)
}

// Stop drops the pending value.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.hasPending = false
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	d.take(seq)
}

// take must be called with d.mu held; it releases it.
func (d *Debouncer[T]) take(seq uint64) bool {
	if seq != d.seq || !d.hasPending {
		d.mu.Unlock()
		return false
	}
	v := d.pending
	var zero T
	d.pending = zero
	d.hasPending = false
	d.mu.Unlock()

	d.fn(v)
	return true
}
