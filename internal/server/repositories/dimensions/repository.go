package dimensions

import (
	"context"

	"github.com/dmitrijs2005/opacity/internal/server/models"
)

type Repository interface {
	// Ensure creates missing dimensions and returns the row of every name.
	Ensure(ctx context.Context, names []string) (map[string]*models.Dimension, error)
	AttachToArchive(ctx context.Context, archiveID string, dimensionID int64, quizCount int) error
	Get(ctx context.Context, id int64) (*models.Dimension, error)
	ForArchives(ctx context.Context, archiveIDs []string) (map[string][]models.DimensionCount, error)
	Top(ctx context.Context, first int) ([]*models.DimensionCount, error)
	SetEmoji(ctx context.Context, name, emoji string) error
}
