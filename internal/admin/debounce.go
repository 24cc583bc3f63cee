package admin

import (
	"sync"
	"time"
)

// DefaultDebounce is the default quiet period of a Debouncer and of the
// dashboard search box.
const DefaultDebounce = 500 * time.Millisecond

// timer is the part of *time.Timer the debouncer needs.
type timer interface {
	Stop() bool
}

// Debouncer fires fn with the last value once no new value arrived for the
// configured delay.
type Debouncer[V any] struct {
	delay time.Duration
	fn    func(V)

	// afterFunc is time.AfterFunc outside tests.
	afterFunc func(time.Duration, func()) timer

	mu    sync.Mutex
	t     timer
	seq   uint64
	value V
}

// NewDebouncer creates a Debouncer calling fn after delay. A non-positive
// delay uses DefaultDebounce.
func NewDebouncer[V any](delay time.Duration, fn func(V)) *Debouncer[V] {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer[V]{
		delay: delay,
		fn:    fn,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

// Delay returns the configured delay.
func (d *Debouncer[V]) Delay() time.Duration { return d.delay }

// Push records v and restarts the delay.
func (d *Debouncer[V]) Push(v V) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
	}
	d.seq++
	seq := d.seq
	d.value = v
	d.t = d.afterFunc(d.delay, func() { d.fire(seq) })
}

// Cancel drops a pending value.
func (d *Debouncer[V]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
		d.t = nil
	}
	d.seq++
}

func (d *Debouncer[V]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq {
		// superseded after the timer already started running
		d.mu.Unlock()
		return
	}
	v := d.value
	d.t = nil
	d.mu.Unlock()
	d.fn(v)
}
