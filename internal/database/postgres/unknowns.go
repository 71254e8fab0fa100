package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/pgvector/pgvector-go"
)

// UnknownRepository stores unclassified faces
type UnknownRepository struct {
	pool *Pool
}

func NewUnknownRepository(pool *Pool) *UnknownRepository {
	return &UnknownRepository{pool: pool}
}

// CreateUnknown inserts a new unknown and returns its id
func (r *UnknownRepository) CreateUnknown(ctx context.Context, rec database.UnknownRecord) (string, error) {
	var id string
	err := r.pool.queryRow(ctx, `
		INSERT INTO unknowns (image_path, embedding, first_seen, last_seen)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		rec.ImagePath, vectorOrNil(rec.Embedding), rec.FirstSeen, rec.LastSeen,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert unknown: %w", err)
	}
	return id, nil
}

// TouchUnknown moves last_seen forward; never backwards
func (r *UnknownRepository) TouchUnknown(ctx context.Context, id string, lastSeen time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return database.ErrNotFound
	}
	res, err := r.pool.exec(ctx,
		"UPDATE unknowns SET last_seen = GREATEST(last_seen, $2) WHERE id = $1", id, lastSeen)
	if err != nil {
		return fmt.Errorf("update unknown %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.ErrNotFound
	}
	return nil
}

const unknownColumns = "id, image_path, embedding, first_seen, last_seen"

// ListUnknowns returns unknowns newest first
func (r *UnknownRepository) ListUnknowns(ctx context.Context, limit int) ([]database.UnknownRecord, error) {
	rows, err := r.pool.query(ctx,
		"SELECT "+unknownColumns+" FROM unknowns ORDER BY first_seen DESC, id LIMIT $1",
		database.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query unknowns: %w", err)
	}
	defer rows.Close()

	var out []database.UnknownRecord
	for rows.Next() {
		rec, err := scanUnknown(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unknowns: %w", err)
	}
	return out, nil
}

// GetUnknown returns database.ErrNotFound for missing or malformed ids
func (r *UnknownRepository) GetUnknown(ctx context.Context, id string) (*database.UnknownRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, database.ErrNotFound
	}
	rec, err := scanUnknown(r.pool.queryRow(ctx, "SELECT "+unknownColumns+" FROM unknowns WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnknown(row rowScanner) (*database.UnknownRecord, error) {
	var rec database.UnknownRecord
	var vec *pgvector.Vector
	if err := row.Scan(&rec.ID, &rec.ImagePath, &vec, &rec.FirstSeen, &rec.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan unknown: %w", err)
	}
	rec.Embedding = vectorSlice(vec)
	return &rec, nil
}
