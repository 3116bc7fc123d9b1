package storage

import "vigil/core"

// DefaultRingCapacity bounds recent-event retention when the configuration
// does not say otherwise.
const DefaultRingCapacity = 2000

// EventRing retains the most recent raw events across all sources in a fixed
// capacity FIFO: when full, recording evicts the oldest entry. Like the alert
// store it relies on the engine's lock for exclusion.
type EventRing struct {
	buf   []core.Event
	start int // index of the oldest entry
	size  int
}

// NewEventRing creates a ring holding at most capacity events. Non-positive
// capacity selects DefaultRingCapacity.
func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &EventRing{buf: make([]core.Event, capacity)}
}

// Record appends an event, evicting the oldest entry when the ring is full.
func (r *EventRing) Record(ev core.Event) {
	idx := (r.start + r.size) % len(r.buf)
	r.buf[idx] = ev
	if r.size < len(r.buf) {
		r.size++
		return
	}
	r.start = (r.start + 1) % len(r.buf)
}

// List returns up to limit events, newest first, optionally restricted to one
// source. Non-positive limit returns everything retained.
func (r *EventRing) List(limit int, source string) []core.Event {
	if limit <= 0 || limit > r.size {
		limit = r.size
	}
	out := make([]core.Event, 0, limit)
	for i := r.size - 1; i >= 0 && len(out) < limit; i-- {
		ev := r.buf[(r.start+i)%len(r.buf)]
		if source != "" && ev.Source != source {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Len returns the number of retained events.
func (r *EventRing) Len() int {
	return r.size
}

// Capacity returns the fixed ring capacity.
func (r *EventRing) Capacity() int {
	return len(r.buf)
}
