package watcher

import (
	"sync"
	"time"
)

// Debouncer collects events until no new one has arrived for the debounce
// delay, or until the max delay since the first pending event has passed,
// and then emits them as one Batch.
type Debouncer struct {
	delay    time.Duration
	maxDelay time.Duration
	out      chan Batch

	mu       sync.Mutex
	pending  []Event
	timer    *time.Timer
	deadline *time.Timer
	closed   bool
}

// NewDebouncer creates a new debouncer
func NewDebouncer(delay, maxDelay time.Duration, queueCapacity int) *Debouncer {
	return &Debouncer{
		delay:    delay,
		maxDelay: maxDelay,
		out:      make(chan Batch, queueCapacity),
	}
}

// Add adds an event to the pending batch and restarts the quiet period
func (d *Debouncer) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)

	if d.deadline == nil && d.maxDelay > 0 {
		d.deadline = time.AfterFunc(d.maxDelay, d.flush)
	}
}

// Batches returns the settled batches channel
func (d *Debouncer) Batches() <-chan Batch {
	return d.out
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || len(d.pending) == 0 {
		return
	}
	d.stopTimers()

	batch := Batch{Events: d.pending}
	d.pending = nil

	// A full queue already holds a batch that will trigger a fresh comparison.
	select {
	case d.out <- batch:
	default:
	}
}

func (d *Debouncer) stopTimers() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.deadline != nil {
		d.deadline.Stop()
		d.deadline = nil
	}
}

// Close drops pending events and closes the batch channel
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	d.stopTimers()
	d.pending = nil
	close(d.out)
}
