package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/facewatch/internal/database"
)

// AttendanceRepository reads closed windows and writes daily totals
type AttendanceRepository struct {
	pool     *Pool
	presence *PresenceRepository
}

func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool, presence: NewPresenceRepository(pool)}
}

// ClosedPresenceEvents returns closed known windows that started in [start, end)
func (r *AttendanceRepository) ClosedPresenceEvents(ctx context.Context, start, end time.Time) ([]database.PresenceEvent, error) {
	query, args, err := psql.Select(presenceColumns...).
		From("presence_events").
		Where("kind = ?", database.KindKnown).
		Where("duration_seconds IS NOT NULL").
		Where("entry_time >= ? AND entry_time < ?", start, end).
		OrderBy("entry_time", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build closed events query: %w", err)
	}
	return r.presence.scanEvents(ctx, query, args...)
}

// UpsertAttendance writes the record, replacing totals for an existing (date, identity_id)
func (r *AttendanceRepository) UpsertAttendance(ctx context.Context, rec database.AttendanceRecord) error {
	_, err := r.pool.exec(ctx, `
		INSERT INTO attendance_logs (date, identity_id, total_duration_seconds, first_seen, last_seen)
		VALUES ($1::date, $2, $3, $4, $5)
		ON CONFLICT (date, identity_id) DO UPDATE SET
			total_duration_seconds = EXCLUDED.total_duration_seconds,
			first_seen = EXCLUDED.first_seen,
			last_seen = EXCLUDED.last_seen,
			updated_at = NOW()`,
		rec.Date.Format(time.DateOnly), rec.IdentityID, rec.TotalDurationSeconds, rec.FirstSeen, rec.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("upsert attendance %s/%s: %w", rec.Date.Format(time.DateOnly), rec.IdentityID, err)
	}
	return nil
}

// ListAttendance returns the day's records ordered by identity id
func (r *AttendanceRepository) ListAttendance(ctx context.Context, date time.Time) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.query(ctx, `
		SELECT date, identity_id, total_duration_seconds, first_seen, last_seen, created_at
		FROM attendance_logs
		WHERE date = $1::date
		ORDER BY identity_id`,
		date.Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.Date, &rec.IdentityID, &rec.TotalDurationSeconds, &rec.FirstSeen, &rec.LastSeen, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}
