package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/kozaktomas/facewatch/internal/database"
)

// PresenceRepository stores presence windows and flagged-person alerts
type PresenceRepository struct {
	pool *Pool
}

func NewPresenceRepository(pool *Pool) *PresenceRepository {
	return &PresenceRepository{pool: pool}
}

var presenceColumns = []string{
	"id", "identity_id", "kind", "entry_time", "exit_time", "duration_seconds", "snapshot_ref",
}

// OpenPresenceEvent inserts an open window
func (r *PresenceRepository) OpenPresenceEvent(ctx context.Context, ev database.PresenceEvent) (int64, error) {
	var id int64
	err := r.pool.queryRow(ctx, `
		INSERT INTO presence_events (identity_id, kind, entry_time, snapshot_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		ev.IdentityID, ev.Kind, ev.EntryTime, ev.SnapshotRef,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert presence event: %w", err)
	}
	return id, nil
}

// ClosePresenceEvent sets exit time and duration
func (r *PresenceRepository) ClosePresenceEvent(ctx context.Context, id int64, exit time.Time, durationSeconds float64) error {
	res, err := r.pool.exec(ctx, `
		UPDATE presence_events
		SET exit_time = $2, duration_seconds = $3
		WHERE id = $1`,
		id, exit, durationSeconds,
	)
	if err != nil {
		return fmt.Errorf("close presence event %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// RecordAlert audits a flagged sighting
func (r *PresenceRepository) RecordAlert(ctx context.Context, alert database.AlertEvent) (int64, error) {
	var id int64
	err := r.pool.queryRow(ctx, `
		INSERT INTO alert_events (identity_id, name, reason, snapshot_ref, detected_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		alert.IdentityID, alert.Name, alert.Reason, alert.SnapshotRef, alert.DetectedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert alert event: %w", err)
	}
	return id, nil
}

// ListPresenceEvents returns events newest first
func (r *PresenceRepository) ListPresenceEvents(ctx context.Context, filter database.PresenceFilter) ([]database.PresenceEvent, error) {
	q := psql.Select(presenceColumns...).
		From("presence_events").
		OrderBy("entry_time DESC", "id DESC").
		Limit(uint64(database.ClampLimit(filter.Limit)))
	if filter.Kind != "" {
		q = q.Where(sq.Eq{"kind": filter.Kind})
	}
	if filter.IdentityID != "" {
		q = q.Where(sq.Eq{"identity_id": filter.IdentityID})
	}
	if !filter.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"entry_time": filter.Since})
	}
	if filter.OpenOnly {
		q = q.Where(sq.Eq{"exit_time": nil})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build presence query: %w", err)
	}
	return r.scanEvents(ctx, query, args...)
}

func (r *PresenceRepository) scanEvents(ctx context.Context, query string, args ...any) ([]database.PresenceEvent, error) {
	rows, err := r.pool.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query presence events: %w", err)
	}
	defer rows.Close()

	var out []database.PresenceEvent
	for rows.Next() {
		var ev database.PresenceEvent
		var exit sql.NullTime
		var duration sql.NullFloat64
		if err := rows.Scan(&ev.ID, &ev.IdentityID, &ev.Kind, &ev.EntryTime, &exit, &duration, &ev.SnapshotRef); err != nil {
			return nil, fmt.Errorf("scan presence event: %w", err)
		}
		ev.ExitTime = timePtr(exit)
		ev.DurationSeconds = floatPtr(duration)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presence events: %w", err)
	}
	return out, nil
}

// ListAlerts returns alerts newest first
func (r *PresenceRepository) ListAlerts(ctx context.Context, limit int) ([]database.AlertEvent, error) {
	query, args, err := psql.Select("id", "identity_id", "name", "reason", "snapshot_ref", "detected_at").
		From("alert_events").
		OrderBy("detected_at DESC", "id DESC").
		Limit(uint64(database.ClampLimit(limit))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build alert query: %w", err)
	}

	rows, err := r.pool.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []database.AlertEvent
	for rows.Next() {
		var a database.AlertEvent
		if err := rows.Scan(&a.ID, &a.IdentityID, &a.Name, &a.Reason, &a.SnapshotRef, &a.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}
