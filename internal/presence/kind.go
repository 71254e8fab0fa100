package presence

import (
	"fmt"

	"github.com/kozaktomas/facewatch/internal/database"
)

// Kind classifies a tracked face
type Kind int

const (
	Known Kind = iota + 1
	Flagged
	Unknown
)

// String returns the wire name used in events and the presence_events table.
func (k Kind) String() string {
	switch k {
	case Known:
		return database.KindKnown
	case Flagged:
		return database.KindBad
	case Unknown:
		return database.KindUnknown
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case database.KindKnown:
		return Known, nil
	case database.KindBad, "flagged":
		return Flagged, nil
	case database.KindUnknown:
		return Unknown, nil
	}
	return 0, fmt.Errorf("unknown presence kind %q", s)
}

// Key identifies a tracked entity. At most one Entry exists per Key.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return k.Kind.String() + ":" + k.ID
}
