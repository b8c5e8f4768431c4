package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/dbx"
	"github.com/dmitrijs2005/opacity/internal/privilege"
	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
)

// AuthorizationGate decides whether a requester may read or write one
// archive, using the privilege matrix stored on the archive's owner.
type AuthorizationGate struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAuthorizationGate(db *sql.DB, m repomanager.RepositoryManager) *AuthorizationGate {
	return &AuthorizationGate{db: db, repomanager: m}
}

// Admit returns the archive when clientID may perform access on it. An
// empty clientID is an anonymous requester.
func (g *AuthorizationGate) Admit(ctx context.Context, archiveID, clientID string, access privilege.Access) (*models.ArchiveOwner, error) {
	return g.AdmitTx(ctx, g.db, archiveID, clientID, access)
}

func (g *AuthorizationGate) AdmitTx(ctx context.Context, db dbx.DBTX, archiveID, clientID string, access privilege.Access) (*models.ArchiveOwner, error) {
	a, err := g.repomanager.Archives(db).Get(ctx, archiveID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "Archive not found.")
		}
		return nil, err
	}

	class := privilege.Other
	if clientID != "" {
		owner, err := g.repomanager.Owners(db).GetByClientID(ctx, clientID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.Errorf(common.ErrorForbidden, msgInvalidToken)
			}
			return nil, err
		}
		if owner.ID == a.OwnerID {
			class = privilege.Owner
		}
	}

	if !privilege.FromStored(a.OwnerMode).Evaluate(class, access) {
		return nil, common.Errorf(common.ErrorForbidden, "Not privileged to do so.")
	}
	return a, nil
}
