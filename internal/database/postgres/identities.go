package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/pgvector/pgvector-go"
)

// IdentityRepository reads the known and flagged catalogs
type IdentityRepository struct {
	pool *Pool
}

func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// catalogQueries maps a catalog to its table; note holds the reason for flagged rows.
var catalogQueries = map[database.Catalog]string{
	database.CatalogKnown: `
		SELECT id, name, note, embedding, created_at
		FROM users
		ORDER BY created_at, id`,
	database.CatalogFlagged: `
		SELECT id, name, reason, embedding, created_at
		FROM bad_people
		ORDER BY created_at, id`,
}

// ListIdentities returns every row of the catalog, including rows without an embedding.
func (r *IdentityRepository) ListIdentities(ctx context.Context, catalog database.Catalog) ([]database.Identity, error) {
	query, ok := catalogQueries[catalog]
	if !ok {
		return nil, fmt.Errorf("unknown catalog %q", catalog)
	}

	rows, err := r.pool.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s catalog: %w", catalog, err)
	}
	defer rows.Close()

	var out []database.Identity
	for rows.Next() {
		var ident database.Identity
		var vec *pgvector.Vector
		if err := rows.Scan(&ident.ID, &ident.Name, &ident.Note, &vec, &ident.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s identity: %w", catalog, err)
		}
		ident.Embedding = vectorSlice(vec)
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s catalog: %w", catalog, err)
	}
	return out, nil
}
