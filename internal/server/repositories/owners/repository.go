package owners

import (
	"context"

	"github.com/dmitrijs2005/opacity/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, name *string) (*models.Owner, error)
	GetByClientID(ctx context.Context, clientID string) (*models.Owner, error)
	UpdateName(ctx context.Context, ownerID string, name *string) error
}
