package database

import (
	"context"
	"time"
)

// CatalogReader provides read access to the identity catalogs
type CatalogReader interface {
	// ListIdentities returns every identity in the catalog ordered by created_at, id.
	// The order is the matcher's tie-break order.
	ListIdentities(ctx context.Context, catalog Catalog) ([]Identity, error)
}

// PresenceWriter records state transitions of the recognition loop
type PresenceWriter interface {
	// OpenPresenceEvent inserts an open window and returns its id
	OpenPresenceEvent(ctx context.Context, ev PresenceEvent) (int64, error)
	// ClosePresenceEvent sets exit_time and duration; ErrNotFound if the id is gone
	ClosePresenceEvent(ctx context.Context, id int64, exit time.Time, durationSeconds float64) error
	// RecordAlert stores the first sighting of a flagged identity
	RecordAlert(ctx context.Context, alert AlertEvent) (int64, error)
	// CreateUnknown persists a new unclassified face and returns its id
	CreateUnknown(ctx context.Context, rec UnknownRecord) (string, error)
	// TouchUnknown moves last_seen forward when a tracked unknown expires
	TouchUnknown(ctx context.Context, id string, lastSeen time.Time) error
}

// PresenceReader exposes persisted history to the API
type PresenceReader interface {
	ListPresenceEvents(ctx context.Context, filter PresenceFilter) ([]PresenceEvent, error)
	ListAlerts(ctx context.Context, limit int) ([]AlertEvent, error)
}

// UnknownReader provides read access to the unknowns catalog
type UnknownReader interface {
	ListUnknowns(ctx context.Context, limit int) ([]UnknownRecord, error)
	// GetUnknown returns ErrNotFound if the row was removed (e.g. approved by an admin)
	GetUnknown(ctx context.Context, id string) (*UnknownRecord, error)
}

// AttendanceStore is the aggregator's view of storage
type AttendanceStore interface {
	// ClosedPresenceEvents returns known-kind events with entry_time in [start, end)
	// and a non-null duration.
	ClosedPresenceEvents(ctx context.Context, start, end time.Time) ([]PresenceEvent, error)
	// UpsertAttendance writes one record keyed on (date, identity_id), overwriting any existing row
	UpsertAttendance(ctx context.Context, rec AttendanceRecord) error
	ListAttendance(ctx context.Context, date time.Time) ([]AttendanceRecord, error)
}

// Store is the full persistence gateway
type Store interface {
	CatalogReader
	PresenceWriter
	PresenceReader
	UnknownReader
	AttendanceStore
}

// CatalogWatcher delivers a signal whenever a catalog changes in storage.
// The channel is closed when ctx is cancelled or the watch fails permanently.
type CatalogWatcher interface {
	WatchCatalogs(ctx context.Context) (<-chan struct{}, error)
}
