package postgres

import (
	"database/sql"
	"time"

	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/pgvector/pgvector-go"
)

// Store implements database.Store on PostgreSQL by composing the repositories.
type Store struct {
	*IdentityRepository
	*PresenceRepository
	*UnknownRepository
	*AttendanceRepository
}

var _ database.Store = (*Store)(nil)

// NewStore creates all repositories on pool.
func NewStore(pool *Pool) *Store {
	return &Store{
		IdentityRepository:   NewIdentityRepository(pool),
		PresenceRepository:   NewPresenceRepository(pool),
		UnknownRepository:    NewUnknownRepository(pool),
		AttendanceRepository: NewAttendanceRepository(pool),
	}
}

// vectorOrNil stores an empty embedding as NULL.
func vectorOrNil(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func vectorSlice(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}
