package archives

import (
	"context"

	"github.com/dmitrijs2005/opacity/internal/server/models"
)

// SortKey names a listing order. Only the keys below are accepted; each maps
// to a fixed column of the listing query.
type SortKey string

const (
	SortName       SortKey = "name"
	SortUploadTime SortKey = "uploadTime"
	SortUpdateTime SortKey = "updateTime"
	SortLikes      SortKey = "likeCount"
)

// ListQuery selects one page of archives. Cursor is the id of the last row
// already seen; the page resumes strictly after it.
type ListQuery struct {
	Sort        SortKey
	Desc        bool
	Cursor      string
	DimensionID *int64
	Limit       int
}

type Repository interface {
	Create(ctx context.Context, archive *models.Archive) error
	Get(ctx context.Context, id string) (*models.ArchiveOwner, error)
	Summary(ctx context.Context, id string) (*models.ArchiveSummary, error)
	List(ctx context.Context, q ListQuery) ([]*models.ArchiveSummary, error)
	Rename(ctx context.Context, id, name string) error
	IncrementDownloads(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
}
