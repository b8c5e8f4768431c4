package likes

import "context"

type Repository interface {
	Create(ctx context.Context, ownerID, archiveID string) error
	Delete(ctx context.Context, ownerID, archiveID string) error
	Count(ctx context.Context, archiveID string) (int64, error)
	People(ctx context.Context, archiveID string, limit int) ([]string, error)
}
