package archives

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

var sortColumns = map[SortKey]string{
	SortName:       "name",
	SortUploadTime: "upload_time",
	SortUpdateTime: "update_time",
	SortLikes:      "like_count",
}

// PostgresRepository implements archive storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the archive and fills in the server-assigned upload time.
func (r *PostgresRepository) Create(ctx context.Context, a *models.Archive) error {
	query :=
		`INSERT INTO archives (id, name, update_time, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING upload_time
		 `

	if err := r.db.QueryRowContext(ctx, query, a.ID, a.Name, a.UpdateTime, a.OwnerID).Scan(&a.UploadTime); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.ArchiveOwner, error) {
	query :=
		`SELECT a.id, a.name, a.owner_id, a.upload_time, a.update_time, a.downloads, o.name, o.mode
		 FROM archives a
		 JOIN owners o ON o.id = a.owner_id
		 WHERE a.id = $1
		 `

	ao := &models.ArchiveOwner{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ao.ID, &ao.Name, &ao.OwnerID, &ao.UploadTime, &ao.UpdateTime, &ao.Downloads, &ao.OwnerName, &ao.OwnerMode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ao, nil
}

const summarySelect = `
	SELECT a.id, a.name, o.name AS owner_name, a.upload_time, a.update_time, a.downloads,
	       (SELECT count(*) FROM likes l WHERE l.archive_id = a.id) AS like_count
	FROM archives a
	JOIN owners o ON o.id = a.owner_id`

func scanSummary(row interface{ Scan(...any) error }) (*models.ArchiveSummary, error) {
	s := &models.ArchiveSummary{}
	err := row.Scan(&s.ID, &s.Name, &s.OwnerName, &s.UploadTime, &s.UpdateTime, &s.Downloads, &s.Likes)
	return s, err
}

func (r *PostgresRepository) Summary(ctx context.Context, id string) (*models.ArchiveSummary, error) {
	s, err := scanSummary(r.db.QueryRowContext(ctx, summarySelect+"\n\tWHERE a.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// List returns up to q.Limit rows ordered by the sort column, ties broken by
// id in the same direction. A cursor that names no row yields no rows.
func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]*models.ArchiveSummary, error) {
	column, ok := sortColumns[q.Sort]
	if !ok {
		return nil, fmt.Errorf("unknown sort key %q", q.Sort)
	}
	dir, cmp := "ASC", ">"
	if q.Desc {
		dir, cmp = "DESC", "<"
	}

	var (
		args  []any
		where []string
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	cte := summarySelect
	if q.DimensionID != nil {
		cte += fmt.Sprintf(`
	WHERE EXISTS (SELECT 1 FROM dimensions_on_archives da WHERE da.archive_id = a.id AND da.dimension_id = %s)`, arg(*q.DimensionID))
	}
	if q.Cursor != "" {
		where = append(where, fmt.Sprintf("(%[1]s, id) %[2]s (SELECT %[1]s, id FROM listing WHERE id = %[3]s)", column, cmp, arg(q.Cursor)))
	}

	query := "WITH listing AS (" + cte + "\n)\nSELECT id, name, owner_name, upload_time, update_time, downloads, like_count FROM listing"
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf("\nORDER BY %s %s, id %s\nLIMIT %s", column, dir, dir, arg(q.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	defer rows.Close()

	var result []*models.ArchiveSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, id, name string) error {
	return r.execOne(ctx, `UPDATE archives SET name = $2 WHERE id = $1`, id, name)
}

// IncrementDownloads bumps the download counter and returns its new value.
func (r *PostgresRepository) IncrementDownloads(ctx context.Context, id string) (int64, error) {
	query :=
		`UPDATE archives SET downloads = downloads + 1
		 WHERE id = $1
		 RETURNING downloads
		 `

	var n int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM archives WHERE id = $1`, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
