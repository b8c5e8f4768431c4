package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/privilege"
	"github.com/dmitrijs2005/opacity/internal/server/config"
	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
)

// LikeSummary is the like count of an archive and some of the named owners
// who liked it.
type LikeSummary struct {
	Count  int64
	People []string
}

type LikeService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	gate          *AuthorizationGate
	maxLikePeople int
}

func NewLikeService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, gate *AuthorizationGate) *LikeService {
	return &LikeService{db: db, repomanager: m, gate: gate, maxLikePeople: cfg.MaxLikePeople}
}

func (s *LikeService) Summary(ctx context.Context, archiveID string) (*LikeSummary, error) {
	if _, err := s.repomanager.Archives(s.db).Get(ctx, archiveID); err != nil {
		return nil, notFoundArchive(err)
	}

	repo := s.repomanager.Likes(s.db)
	count, err := repo.Count(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	people, err := repo.People(ctx, archiveID, s.maxLikePeople)
	if err != nil {
		return nil, err
	}
	return &LikeSummary{Count: count, People: people}, nil
}

// Like records that the owner of clientID likes the archive.
func (s *LikeService) Like(ctx context.Context, archiveID, clientID string) error {
	owner, err := s.liker(ctx, archiveID, clientID)
	if err != nil {
		return err
	}
	if err := s.repomanager.Likes(s.db).Create(ctx, owner.ID, archiveID); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return common.Errorf(common.ErrorConflict, "Already liked.")
		}
		return err
	}
	return nil
}

func (s *LikeService) Unlike(ctx context.Context, archiveID, clientID string) error {
	owner, err := s.liker(ctx, archiveID, clientID)
	if err != nil {
		return err
	}
	if err := s.repomanager.Likes(s.db).Delete(ctx, owner.ID, archiveID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Errorf(common.ErrorNotFound, "Not liked.")
		}
		return err
	}
	return nil
}

// liker resolves the owner behind clientID and checks it may read the
// archive.
func (s *LikeService) liker(ctx context.Context, archiveID, clientID string) (*models.Owner, error) {
	owner, err := s.repomanager.Owners(s.db).GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorUnauthenticated, msgInvalidToken)
		}
		return nil, err
	}
	if _, err := s.gate.Admit(ctx, archiveID, clientID, privilege.Read); err != nil {
		return nil, err
	}
	return owner, nil
}
