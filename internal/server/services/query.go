package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/privilege"
	"github.com/dmitrijs2005/opacity/internal/server/config"
	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/archives"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
	"github.com/samber/lo"
)

const defaultDimensionsFirst = 20

var sortKeywords = map[string]archives.SortKey{
	"name":       archives.SortName,
	"upload":     archives.SortUploadTime,
	"uploadTime": archives.SortUploadTime,
	"update":     archives.SortUpdateTime,
	"updateTime": archives.SortUpdateTime,
	"likes":      archives.SortLikes,
	"likeCount":  archives.SortLikes,
}

// ParseSort maps the "by" query value to a sort key. Empty means update time.
func ParseSort(by string) (archives.SortKey, error) {
	if by == "" {
		return archives.SortUpdateTime, nil
	}
	key, ok := sortKeywords[by]
	if !ok {
		return "", common.Errorf(common.ErrorValidation,
			"Bad sort keyword: %s. One of name, upload, update, likes was expected.", by)
	}
	return key, nil
}

// ParseOrder maps the "order" query value to a descending flag.
func ParseOrder(order string) (bool, error) {
	switch order {
	case "", "asc":
		return false, nil
	case "desc", "dsc":
		return true, nil
	}
	return false, common.Errorf(common.ErrorValidation, "Bad sort order: %s. One of asc, desc was expected.", order)
}

// ListInput is a listing request as received. DimensionID scopes the
// listing to archives tagged with that dimension.
type ListInput struct {
	By          string
	Order       string
	Predecessor string
	DimensionID *int64
}

// Page is one listing page. Next is empty on the last page.
type Page struct {
	Items []*models.ArchiveSummary
	Next  string
}

// QueryService serves listings and aggregates. Any surfaced dimension
// without a label is handed to the enricher.
type QueryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gate        *AuthorizationGate
	enricher    Enricher

	pageSize           int
	maxDimensionsFirst int
}

func NewQueryService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, gate *AuthorizationGate, enricher Enricher) *QueryService {
	return &QueryService{
		db:                 db,
		repomanager:        m,
		gate:               gate,
		enricher:           enricher,
		pageSize:           cfg.PageSize,
		maxDimensionsFirst: cfg.MaxDimensionsFirst,
	}
}

func (s *QueryService) List(ctx context.Context, in ListInput) (*Page, error) {
	sortKey, err := ParseSort(in.By)
	if err != nil {
		return nil, err
	}
	desc, err := ParseOrder(in.Order)
	if err != nil {
		return nil, err
	}

	if in.DimensionID != nil {
		if _, err := s.repomanager.Dimensions(s.db).Get(ctx, *in.DimensionID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.Errorf(common.ErrorNotFound, "Dimension not found.")
			}
			return nil, err
		}
	}

	repo := s.repomanager.Archives(s.db)
	if in.Predecessor != "" {
		if _, err := repo.Get(ctx, in.Predecessor); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.Errorf(common.ErrorValidation, "Unknown predecessor.")
			}
			return nil, err
		}
	}

	rows, err := repo.List(ctx, archives.ListQuery{
		Sort:        sortKey,
		Desc:        desc,
		Cursor:      in.Predecessor,
		DimensionID: in.DimensionID,
		Limit:       s.pageSize + 1,
	})
	if err != nil {
		return nil, err
	}

	page := &Page{Items: rows}
	if len(rows) > s.pageSize {
		page.Items = rows[:s.pageSize]
		page.Next = page.Items[len(page.Items)-1].ID
	}

	if err := s.attachDimensions(ctx, page.Items); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *QueryService) attachDimensions(ctx context.Context, rows []*models.ArchiveSummary) error {
	ids := lo.Map(rows, func(a *models.ArchiveSummary, _ int) string { return a.ID })
	byArchive, err := s.repomanager.Dimensions(s.db).ForArchives(ctx, ids)
	if err != nil {
		return err
	}

	var unlabelled []string
	for _, a := range rows {
		a.Dimensions = byArchive[a.ID]
		for _, d := range a.Dimensions {
			if d.Emoji == nil {
				unlabelled = append(unlabelled, d.Name)
			}
		}
	}
	s.enrich(ctx, unlabelled)
	return nil
}

func (s *QueryService) enrich(ctx context.Context, names []string) {
	if names = lo.Uniq(names); len(names) > 0 {
		s.enricher.Trigger(context.WithoutCancel(ctx), names)
	}
}

// Metadata returns one archive with its aggregates after a read check.
func (s *QueryService) Metadata(ctx context.Context, archiveID, clientID string) (*models.ArchiveSummary, error) {
	if _, err := s.gate.Admit(ctx, archiveID, clientID, privilege.Read); err != nil {
		return nil, err
	}

	a, err := s.repomanager.Archives(s.db).Summary(ctx, archiveID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "Archive not found.")
		}
		return nil, err
	}
	if err := s.attachDimensions(ctx, []*models.ArchiveSummary{a}); err != nil {
		return nil, err
	}
	return a, nil
}

// ParseFirst validates the "first" query value of the dimensions listing.
func (s *QueryService) ParseFirst(first string) (int, error) {
	if first == "" {
		return min(defaultDimensionsFirst, s.maxDimensionsFirst), nil
	}
	n, err := strconv.Atoi(first)
	if err != nil || n < 1 || n > s.maxDimensionsFirst {
		return 0, common.Errorf(common.ErrorValidation,
			"Bad first: %s. A number between 1 and %d was expected.", first, s.maxDimensionsFirst)
	}
	return n, nil
}

// Dimensions returns the first dimensions by total quiz count.
func (s *QueryService) Dimensions(ctx context.Context, first string) ([]*models.DimensionCount, error) {
	n, err := s.ParseFirst(first)
	if err != nil {
		return nil, err
	}

	dims, err := s.repomanager.Dimensions(s.db).Top(ctx, n)
	if err != nil {
		return nil, err
	}

	var unlabelled []string
	for _, d := range dims {
		if d.Emoji == nil {
			unlabelled = append(unlabelled, d.Name)
		}
	}
	s.enrich(ctx, unlabelled)
	return dims, nil
}
