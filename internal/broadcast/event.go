package broadcast

import "time"

// Event types delivered to subscribers
const (
	TypeKnown          = "known"
	TypeAlertBad       = "alert_bad"
	TypeAlertBadUpdate = "alert_bad_update"
	TypeUnknown        = "unknown"
	TypePresenceEnd    = "presence_end"
)

// Event is the real-time message schema. Only the fields relevant to Type are set.
type Event struct {
	Type string `json:"type"`

	UserID    string `json:"user_id,omitempty"`
	BadID     string `json:"bad_id,omitempty"`
	UnknownID string `json:"unknown_id,omitempty"`
	ID        string `json:"id,omitempty"`

	Name   string  `json:"name,omitempty"`
	Note   *string `json:"note,omitempty"`
	Reason *string `json:"reason,omitempty"`

	Snapshot  string `json:"snapshot,omitempty"`
	ImagePath string `json:"image_path,omitempty"`

	FirstSeen *time.Time `json:"first_seen,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`

	Kind            string     `json:"kind,omitempty"`
	PresenceType    string     `json:"presence_type,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	ExitTime        *time.Time `json:"exit_time,omitempty"`
}

func KnownFirstSeen(userID, name, note, snapshot string, at time.Time) Event {
	return Event{Type: TypeKnown, UserID: userID, Name: name, Note: &note, Snapshot: snapshot, FirstSeen: &at}
}

func KnownUpdate(userID, name, note string, at time.Time) Event {
	return Event{Type: TypeKnown, UserID: userID, Name: name, Note: &note, LastSeen: &at}
}

func AlertBad(badID, name, reason, snapshot string, at time.Time) Event {
	return Event{Type: TypeAlertBad, BadID: badID, Name: name, Reason: &reason, Snapshot: snapshot, FirstSeen: &at}
}

func AlertBadUpdate(badID, name, reason string, at time.Time) Event {
	return Event{Type: TypeAlertBadUpdate, BadID: badID, Name: name, Reason: &reason, LastSeen: &at}
}

func UnknownFirstSeen(unknownID, imagePath string, at time.Time) Event {
	return Event{Type: TypeUnknown, UnknownID: unknownID, ImagePath: imagePath, FirstSeen: &at}
}

func UnknownUpdate(unknownID string, at time.Time) Event {
	return Event{Type: TypeUnknown, UnknownID: unknownID, LastSeen: &at}
}

// PresenceEnd reports a closed window. Kind is repeated as presence_type for
// older dashboards.
func PresenceEnd(id, kind string, duration time.Duration, exit time.Time) Event {
	secs := duration.Seconds()
	return Event{
		Type:            TypePresenceEnd,
		ID:              id,
		Kind:            kind,
		PresenceType:    kind,
		DurationSeconds: &secs,
		ExitTime:        &exit,
	}
}
