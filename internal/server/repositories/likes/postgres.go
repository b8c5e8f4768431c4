package likes

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create records a like. A second like by the same owner is ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, ownerID, archiveID string) error {
	query := `INSERT INTO likes (owner_id, archive_id) VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, ownerID, archiveID); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes a like. A missing like is ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, archiveID string) error {
	query := `DELETE FROM likes WHERE owner_id = $1 AND archive_id = $2`

	res, err := r.db.ExecContext(ctx, query, ownerID, archiveID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context, archiveID string) (int64, error) {
	query := `SELECT count(*) FROM likes WHERE archive_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, archiveID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// People returns the names of owners who liked the archive, skipping owners
// without a name.
func (r *PostgresRepository) People(ctx context.Context, archiveID string, limit int) ([]string, error) {
	query :=
		`SELECT o.name FROM likes l
		 JOIN owners o ON o.id = l.owner_id
		 WHERE l.archive_id = $1 AND o.name IS NOT NULL
		 ORDER BY o.name
		 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, archiveID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select likes: %w", err)
	}
	defer rows.Close()

	people := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		people = append(people, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return people, nil
}
