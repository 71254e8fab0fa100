// Package presence tracks who is currently in view.
//
// The Tracker is owned by the recognition loop and is not safe for
// concurrent use. Readers get copies through Snapshot.
package presence

import (
	"slices"
	"time"
)

// Entry is one open presence window
type Entry struct {
	Key       Key
	Name      string
	Note      string
	EntryTime time.Time
	LastSeen  time.Time
	EventID   int64     // persisted presence event, 0 when none
	Embedding []float64 // most recent embedding, unknown kind only
}

// Duration is the window length measured to the last sighting.
func (e *Entry) Duration() time.Duration {
	return e.LastSeen.Sub(e.EntryTime)
}

// Tracker holds the active presence table
type Tracker struct {
	timeout time.Duration
	entries map[Key]*Entry
	order   []Key
	touched map[Key]struct{}
}

// NewTracker creates a tracker that expires entries unseen for longer than timeout
func NewTracker(timeout time.Duration) *Tracker {
	return &Tracker{
		timeout: timeout,
		entries: make(map[Key]*Entry),
		touched: make(map[Key]struct{}),
	}
}

// Timeout returns the absence timeout.
func (t *Tracker) Timeout() time.Duration {
	return t.timeout
}

// BeginFrame clears the touched set.
func (t *Tracker) BeginFrame() {
	clear(t.touched)
}

// Get returns the entry for key, if tracked.
func (t *Tracker) Get(key Key) (*Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Len returns the number of tracked entries.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Open starts tracking key at now. If key is already tracked it behaves like
// Touch and returns the existing entry with created=false.
func (t *Tracker) Open(key Key, now time.Time) (e *Entry, created bool) {
	if e, ok := t.entries[key]; ok {
		t.touch(e, now)
		return e, false
	}
	e = &Entry{Key: key, EntryTime: now, LastSeen: now}
	t.entries[key] = e
	t.order = append(t.order, key)
	t.touched[key] = struct{}{}
	return e, true
}

// Touch records a repeat sighting. It reports false if key is not tracked.
func (t *Tracker) Touch(key Key, now time.Time) (*Entry, bool) {
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	t.touch(e, now)
	return e, true
}

func (t *Tracker) touch(e *Entry, now time.Time) {
	if now.After(e.LastSeen) {
		e.LastSeen = now
	}
	t.touched[e.Key] = struct{}{}
}

// Sweep removes and returns, in tracking order, every entry not touched this
// frame whose last sighting is more than the timeout before now.
func (t *Tracker) Sweep(now time.Time) []Entry {
	var expired []Entry
	kept := t.order[:0]
	for _, key := range t.order {
		e := t.entries[key]
		if _, ok := t.touched[key]; !ok && now.Sub(e.LastSeen) > t.timeout {
			expired = append(expired, *e)
			delete(t.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	t.order = kept
	return expired
}

// Drain removes and returns every entry, used on shutdown.
func (t *Tracker) Drain() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, *t.entries[key])
	}
	clear(t.entries)
	t.order = t.order[:0]
	clear(t.touched)
	return out
}

// Snapshot returns copies of all entries in tracking order. Embeddings are
// not copied.
func (t *Tracker) Snapshot() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, key := range t.order {
		e := *t.entries[key]
		e.Embedding = nil
		out = append(out, e)
	}
	return out
}

// Keys returns tracked keys in tracking order.
func (t *Tracker) Keys() []Key {
	return slices.Clone(t.order)
}
