package clients

import (
	"context"

	"github.com/dmitrijs2005/opacity/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, client *models.Client) error
	GetWithOwner(ctx context.Context, clientID string) (*models.ClientOwner, error)
	UpdateName(ctx context.Context, clientID string, name string) error
}
