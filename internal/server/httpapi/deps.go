// Package httpapi is the public HTTP surface: routing, bearer credential
// middleware, form decoding and the mapping of error kinds to statuses.
package httpapi

import (
	"context"

	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/services"
)

type Identity interface {
	VerifyCredential(token string) (string, error)
	Whoami(ctx context.Context, clientID string) (*models.ClientOwner, error)
	UpdateWhoami(ctx context.Context, clientID string, clientName, ownerName *string) error
}

type Ingester interface {
	Ingest(ctx context.Context, in services.IngestInput) (*services.IngestResult, error)
}

type Archives interface {
	Download(ctx context.Context, archiveID, clientID, ifNoneMatch string) (*services.Download, error)
	Delete(ctx context.Context, archiveID, clientID string) error
	Rename(ctx context.Context, archiveID, clientID string, name *string) error
	Preview(ctx context.Context, archiveID string) ([]services.QuizPreview, error)
}

type Queries interface {
	List(ctx context.Context, in services.ListInput) (*services.Page, error)
	Metadata(ctx context.Context, archiveID, clientID string) (*models.ArchiveSummary, error)
	Dimensions(ctx context.Context, first string) ([]*models.DimensionCount, error)
}

type Likes interface {
	Summary(ctx context.Context, archiveID string) (*services.LikeSummary, error)
	Like(ctx context.Context, archiveID, clientID string) error
	Unlike(ctx context.Context, archiveID, clientID string) error
}

// Services bundles what the handlers call into.
type Services struct {
	Identity Identity
	Ingester Ingester
	Archives Archives
	Queries  Queries
	Likes    Likes
}
