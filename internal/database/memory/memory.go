// Package memory provides an in-process implementation of database.Store.
// It backs the engine when no DATABASE_URL is configured and doubles as the
// test store, with error injection fields for each operation.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facewatch/internal/database"
)

// Store is an in-memory database.Store
type Store struct {
	mu         sync.RWMutex
	identities map[database.Catalog][]database.Identity
	events     []database.PresenceEvent
	alerts     []database.AlertEvent
	unknowns   map[string]*database.UnknownRecord
	attendance map[string]database.AttendanceRecord // keyed by date|identity
	nextID     int64

	// Error injection
	ListIdentitiesError   error
	OpenPresenceError     error
	ClosePresenceError    error
	RecordAlertError      error
	CreateUnknownError    error
	ClosedEventsError     error
	UpsertAttendanceError error
}

var _ database.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		identities: make(map[database.Catalog][]database.Identity),
		unknowns:   make(map[string]*database.UnknownRecord),
		attendance: make(map[string]database.AttendanceRecord),
	}
}

// AddIdentity appends an identity to a catalog. Catalog order is insertion order.
func (s *Store) AddIdentity(catalog database.Catalog, ident database.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now()
	}
	s.identities[catalog] = append(s.identities[catalog], ident)
}

// SetIdentities replaces a whole catalog.
func (s *Store) SetIdentities(catalog database.Catalog, idents []database.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[catalog] = slices.Clone(idents)
}

// AddPresenceEvent inserts an event as-is and returns its id.
func (s *Store) AddPresenceEvent(ev database.PresenceEvent) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ev.ID = s.nextID
	s.events = append(s.events, ev)
	return ev.ID
}

// DeleteUnknown removes an unknown, simulating an administrative approve/ignore.
func (s *Store) DeleteUnknown(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unknowns, id)
}

// ListIdentities returns a copy of the catalog in insertion order
func (s *Store) ListIdentities(ctx context.Context, catalog database.Catalog) ([]database.Identity, error) {
	if s.ListIdentitiesError != nil {
		return nil, s.ListIdentitiesError
	}
	if !catalog.Valid() {
		return nil, fmt.Errorf("unknown catalog %q", catalog)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.identities[catalog]), nil
}

// OpenPresenceEvent stores an open window
func (s *Store) OpenPresenceEvent(ctx context.Context, ev database.PresenceEvent) (int64, error) {
	if s.OpenPresenceError != nil {
		return 0, s.OpenPresenceError
	}
	ev.ExitTime = nil
	ev.DurationSeconds = nil
	return s.AddPresenceEvent(ev), nil
}

// ClosePresenceEvent closes a window by id
func (s *Store) ClosePresenceEvent(ctx context.Context, id int64, exit time.Time, durationSeconds float64) error {
	if s.ClosePresenceError != nil {
		return s.ClosePresenceError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			exitCopy := exit
			d := durationSeconds
			s.events[i].ExitTime = &exitCopy
			s.events[i].DurationSeconds = &d
			return nil
		}
	}
	return database.ErrNotFound
}

// RecordAlert appends an alert audit row
func (s *Store) RecordAlert(ctx context.Context, alert database.AlertEvent) (int64, error) {
	if s.RecordAlertError != nil {
		return 0, s.RecordAlertError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	alert.ID = s.nextID
	s.alerts = append(s.alerts, alert)
	return alert.ID, nil
}

// CreateUnknown stores a new unknown with a fresh UUID
func (s *Store) CreateUnknown(ctx context.Context, rec database.UnknownRecord) (string, error) {
	if s.CreateUnknownError != nil {
		return "", s.CreateUnknownError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.NewString()
	rec.Embedding = slices.Clone(rec.Embedding)
	s.unknowns[rec.ID] = &rec
	return rec.ID, nil
}

// TouchUnknown moves last_seen forward
func (s *Store) TouchUnknown(ctx context.Context, id string, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.unknowns[id]
	if !ok {
		return database.ErrNotFound
	}
	if lastSeen.After(rec.LastSeen) {
		rec.LastSeen = lastSeen
	}
	return nil
}

// ListPresenceEvents returns events newest first
func (s *Store) ListPresenceEvents(ctx context.Context, filter database.PresenceFilter) ([]database.PresenceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.PresenceEvent
	for _, ev := range s.events {
		if filter.Kind != "" && ev.Kind != filter.Kind {
			continue
		}
		if filter.IdentityID != "" && ev.IdentityID != filter.IdentityID {
			continue
		}
		if !filter.Since.IsZero() && ev.EntryTime.Before(filter.Since) {
			continue
		}
		if filter.OpenOnly && ev.Closed() {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	if limit := database.ClampLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAlerts returns alerts newest first
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]database.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.alerts)
	slices.Reverse(out)
	if limit = database.ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListUnknowns returns unknowns newest first
func (s *Store) ListUnknowns(ctx context.Context, limit int) ([]database.UnknownRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]database.UnknownRecord, 0, len(s.unknowns))
	for _, rec := range s.unknowns {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].ID < out[j].ID
		}
		return out[i].FirstSeen.After(out[j].FirstSeen)
	})
	if limit = database.ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetUnknown returns database.ErrNotFound for missing ids
func (s *Store) GetUnknown(ctx context.Context, id string) (*database.UnknownRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.unknowns[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ClosedPresenceEvents returns closed known events with entry_time in [start, end)
func (s *Store) ClosedPresenceEvents(ctx context.Context, start, end time.Time) ([]database.PresenceEvent, error) {
	if s.ClosedEventsError != nil {
		return nil, s.ClosedEventsError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.PresenceEvent
	for _, ev := range s.events {
		if ev.Kind != database.KindKnown || !ev.Closed() {
			continue
		}
		if ev.EntryTime.Before(start) || !ev.EntryTime.Before(end) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func attendanceKey(date time.Time, identityID string) string {
	return date.Format(time.DateOnly) + "|" + identityID
}

// UpsertAttendance overwrites any record with the same (date, identity_id)
func (s *Store) UpsertAttendance(ctx context.Context, rec database.AttendanceRecord) error {
	if s.UpsertAttendanceError != nil {
		return s.UpsertAttendanceError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attendanceKey(rec.Date, rec.IdentityID)
	if existing, ok := s.attendance[key]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.attendance[key] = rec
	return nil
}

// ListAttendance returns the day's records ordered by identity id
func (s *Store) ListAttendance(ctx context.Context, date time.Time) ([]database.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := date.Format(time.DateOnly)
	var out []database.AttendanceRecord
	for _, rec := range s.attendance {
		if rec.Date.Format(time.DateOnly) == day {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}

// Alerts returns a snapshot of recorded alerts in insertion order.
func (s *Store) Alerts() []database.AlertEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.alerts)
}

// Events returns a snapshot of all presence events in insertion order.
func (s *Store) Events() []database.PresenceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// UnknownCount returns the number of stored unknowns.
func (s *Store) UnknownCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.unknowns)
}
