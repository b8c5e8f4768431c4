package owners

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, name *string) (*models.Owner, error) {
	query :=
		`INSERT INTO owners (name)
		 VALUES ($1)
		 RETURNING id, mode
		 `

	owner := &models.Owner{Name: name}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&owner.ID, &owner.Mode)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return owner, nil
}

func (r *PostgresRepository) GetByClientID(ctx context.Context, clientID string) (*models.Owner, error) {
	query :=
		`SELECT o.id, o.name, o.mode FROM owners o
		 JOIN clients c ON c.owner_id = o.id
		 WHERE c.id = $1
		 `

	owner := &models.Owner{}
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(&owner.ID, &owner.Name, &owner.Mode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return owner, nil
}

func (r *PostgresRepository) UpdateName(ctx context.Context, ownerID string, name *string) error {
	query := `UPDATE owners SET name = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, ownerID, name)
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
