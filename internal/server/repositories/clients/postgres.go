package clients

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

func (r *PostgresRepository) Create(ctx context.Context, client *models.Client) error {
	query :=
		`INSERT INTO clients (id, name, owner_id)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, client.ID, client.Name, client.OwnerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetWithOwner(ctx context.Context, clientID string) (*models.ClientOwner, error) {
	query :=
		`SELECT c.id, c.name, c.owner_id, o.name, o.mode FROM clients c
		 JOIN owners o ON o.id = c.owner_id
		 WHERE c.id = $1
		 `

	co := &models.ClientOwner{}
	err := r.db.QueryRowContext(ctx, query, clientID).
		Scan(&co.ID, &co.Name, &co.OwnerID, &co.OwnerName, &co.OwnerMode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return co, nil
}

func (r *PostgresRepository) UpdateName(ctx context.Context, clientID string, name string) error {
	query := `UPDATE clients SET name = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, clientID, name)
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
