package engine

import (
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facewatch/internal/matcher"
	"github.com/kozaktomas/facewatch/internal/presence"
)

// Catalogs is one immutable generation of the identity caches.
type Catalogs struct {
	Flagged  *matcher.Catalog
	Known    *matcher.Catalog
	LoadedAt time.Time
}

var emptyCatalogs = &Catalogs{Flagged: matcher.Empty, Known: matcher.Empty}

// ActivePresence is a read-only view of one tracked entry
type ActivePresence struct {
	Key             string    `json:"key"`
	Kind            string    `json:"kind"`
	ID              string    `json:"id"`
	Name            string    `json:"name,omitempty"`
	Note            string    `json:"note,omitempty"`
	EntryTime       time.Time `json:"entry_time"`
	LastSeen        time.Time `json:"last_seen"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Frame is the last processed and annotated frame.
type Frame struct {
	JPEG       []byte
	CapturedAt time.Time
	Faces      int
}

// State is everything the recognition loop owns. The tracker is touched only
// by the loop; other goroutines read the published pointers.
type State struct {
	catalogs atomic.Pointer[Catalogs]
	active   atomic.Pointer[[]ActivePresence]
	frame    atomic.Pointer[Frame]
	tracker  *presence.Tracker
}

// NewState creates a state with empty catalogs.
func NewState(absenceTimeout time.Duration) *State {
	s := &State{tracker: presence.NewTracker(absenceTimeout)}
	s.catalogs.Store(emptyCatalogs)
	empty := []ActivePresence{}
	s.active.Store(&empty)
	return s
}

// Catalogs returns the current generation. Callers must load it once per
// frame and use that value throughout.
func (s *State) Catalogs() *Catalogs {
	return s.catalogs.Load()
}

// SwapCatalogs replaces the generation and returns the previous one.
func (s *State) SwapCatalogs(c *Catalogs) *Catalogs {
	return s.catalogs.Swap(c)
}

// Active returns the presence table as of the end of the last frame.
func (s *State) Active() []ActivePresence {
	return *s.active.Load()
}

// LastFrame returns the last annotated frame, or nil before the first one.
func (s *State) LastFrame() *Frame {
	return s.frame.Load()
}

// publishActive copies the tracker into the readable view and returns counts per kind.
func (s *State) publishActive() map[string]int {
	entries := s.tracker.Snapshot()
	view := make([]ActivePresence, 0, len(entries))
	counts := map[string]int{
		presence.Known.String():   0,
		presence.Flagged.String(): 0,
		presence.Unknown.String(): 0,
	}
	for _, e := range entries {
		view = append(view, ActivePresence{
			Key:             e.Key.String(),
			Kind:            e.Key.Kind.String(),
			ID:              e.Key.ID,
			Name:            e.Name,
			Note:            e.Note,
			EntryTime:       e.EntryTime,
			LastSeen:        e.LastSeen,
			DurationSeconds: e.Duration().Seconds(),
		})
		counts[e.Key.Kind.String()]++
	}
	s.active.Store(&view)
	return counts
}

func (s *State) publishFrame(f *Frame) {
	s.frame.Store(f)
}
