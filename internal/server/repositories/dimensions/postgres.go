package dimensions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/dbx"
	"github.com/dmitrijs2005/opacity/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ensure inserts each name if absent and returns the stored row of every
// name. A concurrent insert of the same name is absorbed by ON CONFLICT, so
// racing uploads never fail here.
func (r *PostgresRepository) Ensure(ctx context.Context, names []string) (map[string]*models.Dimension, error) {
	insert := `INSERT INTO dimensions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	lookup := `SELECT id, name, emoji FROM dimensions WHERE name = $1`

	dims := make(map[string]*models.Dimension, len(names))
	for _, name := range names {
		if _, ok := dims[name]; ok {
			continue
		}
		if _, err := r.db.ExecContext(ctx, insert, name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		d := &models.Dimension{}
		if err := r.db.QueryRowContext(ctx, lookup, name).Scan(&d.ID, &d.Name, &d.Emoji); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		dims[name] = d
	}
	return dims, nil
}

func (r *PostgresRepository) AttachToArchive(ctx context.Context, archiveID string, dimensionID int64, quizCount int) error {
	query :=
		`INSERT INTO dimensions_on_archives (archive_id, dimension_id, quiz_count)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, archiveID, dimensionID, quizCount); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Dimension, error) {
	query := `SELECT id, name, emoji FROM dimensions WHERE id = $1`

	d := &models.Dimension{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.Emoji); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

// ForArchives loads the per-archive dimension counts of every given archive.
func (r *PostgresRepository) ForArchives(ctx context.Context, archiveIDs []string) (map[string][]models.DimensionCount, error) {
	result := make(map[string][]models.DimensionCount, len(archiveIDs))
	if len(archiveIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(archiveIDs))
	args := make([]any, len(archiveIDs))
	for i, id := range archiveIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT da.archive_id, d.id, d.name, d.emoji, da.quiz_count
		 FROM dimensions_on_archives da
		 JOIN dimensions d ON d.id = da.dimension_id
		 WHERE da.archive_id IN (%s)
		 ORDER BY da.archive_id, da.quiz_count DESC, d.id`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select dimensions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var archiveID string
		var dc models.DimensionCount
		if err := rows.Scan(&archiveID, &dc.ID, &dc.Name, &dc.Emoji, &dc.QuizCount); err != nil {
			return nil, err
		}
		result[archiveID] = append(result[archiveID], dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Top returns the dimensions with the highest quiz count across all archives.
func (r *PostgresRepository) Top(ctx context.Context, first int) ([]*models.DimensionCount, error) {
	query :=
		`SELECT d.id, d.name, d.emoji, COALESCE(SUM(da.quiz_count), 0) AS total
		 FROM dimensions d
		 LEFT JOIN dimensions_on_archives da ON da.dimension_id = d.id
		 GROUP BY d.id, d.name, d.emoji
		 ORDER BY total DESC, d.id ASC
		 LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, first)
	if err != nil {
		return nil, fmt.Errorf("failed to select dimensions: %w", err)
	}
	defer rows.Close()

	var result []*models.DimensionCount
	for rows.Next() {
		dc := &models.DimensionCount{}
		if err := rows.Scan(&dc.ID, &dc.Name, &dc.Emoji, &dc.QuizCount); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetEmoji overwrites the label of the named dimension. An unknown name is
// not an error.
func (r *PostgresRepository) SetEmoji(ctx context.Context, name, emoji string) error {
	query := `UPDATE dimensions SET emoji = $2 WHERE name = $1`

	if _, err := r.db.ExecContext(ctx, query, name, emoji); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
