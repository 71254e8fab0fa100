package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced row does not exist (or no longer exists).
var ErrNotFound = errors.New("not found")

// Catalog names an identity set the engine matches against.
type Catalog string

const (
	CatalogKnown   Catalog = "known"   // users table
	CatalogFlagged Catalog = "flagged" // bad_people table
)

// Valid reports whether c is a known catalog name.
func (c Catalog) Valid() bool {
	return c == CatalogKnown || c == CatalogFlagged
}

// Presence kinds as stored in presence_events.kind.
const (
	KindKnown   = "known"
	KindBad     = "bad"
	KindUnknown = "unknown"
)

// Identity is a catalog row. Note holds the user note for known identities
// and the flag reason for flagged ones. Embedding may be nil.
type Identity struct {
	ID        string
	Name      string
	Note      string
	Embedding []float32
	CreatedAt time.Time
}

// PresenceEvent is a persisted presence window. ExitTime and DurationSeconds
// stay nil while the window is open.
type PresenceEvent struct {
	ID              int64
	IdentityID      string
	Kind            string
	EntryTime       time.Time
	ExitTime        *time.Time
	DurationSeconds *float64
	SnapshotRef     string
}

// Closed reports whether the window has been closed.
func (e *PresenceEvent) Closed() bool {
	return e.DurationSeconds != nil
}

// AlertEvent audits the first sighting of a flagged identity.
type AlertEvent struct {
	ID          int64
	IdentityID  string
	Name        string
	Reason      string
	SnapshotRef string
	DetectedAt  time.Time
}

// UnknownRecord is an engine-created catalog row for a face that matched nothing.
type UnknownRecord struct {
	ID        string
	ImagePath string
	Embedding []float32
	FirstSeen time.Time
	LastSeen  time.Time
}

// AttendanceRecord is the per-day total for one identity. Date is midnight
// of the day in the aggregation timezone.
type AttendanceRecord struct {
	Date                 time.Time
	IdentityID           string
	TotalDurationSeconds float64
	FirstSeen            time.Time
	LastSeen             time.Time
	CreatedAt            time.Time
}

// PresenceFilter narrows ListPresenceEvents. Zero values mean "any".
type PresenceFilter struct {
	Kind       string
	IdentityID string
	Since      time.Time
	OpenOnly   bool
	Limit      int
}
