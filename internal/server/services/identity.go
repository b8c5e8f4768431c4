// Package services contains server-side business logic: identity and
// credentials, the per-archive authorization gate, archive ingestion,
// listings and single-archive operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/dbx"
	"github.com/dmitrijs2005/opacity/internal/server/auth"
	"github.com/dmitrijs2005/opacity/internal/server/config"
	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const msgInvalidToken = "Authentication token is invalid."

// Bootstrap is the identity created by an anonymous upload.
type Bootstrap struct {
	Client *models.Client
	Owner  *models.Owner
}

// IdentityService creates and resolves owners and clients and mints the
// bearer credentials that carry a client id.
type IdentityService struct {
	db                         *sql.DB
	repomanager                repomanager.RepositoryManager
	jwtSecret                  []byte
	credentialValidityDuration time.Duration
	maxNameLength              int
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:                         db,
		repomanager:                m,
		jwtSecret:                  []byte(cfg.SecretKey),
		credentialValidityDuration: cfg.CredentialValidityDuration,
		maxNameLength:              cfg.MaxNameLength,
	}
}

// VerifyCredential checks the token signature and expiry and returns the
// client id it carries.
func (s *IdentityService) VerifyCredential(token string) (string, error) {
	cid, err := auth.ParseClientID(token, s.jwtSecret)
	if err != nil {
		return "", &common.DetailedError{Kind: common.ErrorUnauthenticated, Msg: msgInvalidToken}
	}
	return cid, nil
}

// IssueCredential signs a credential for clientID.
func (s *IdentityService) IssueCredential(clientID string) (string, error) {
	token, err := auth.GenerateToken(clientID, s.jwtSecret, s.credentialValidityDuration)
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return token, nil
}

// ResolveOwnerByClient returns the owner of clientID, or common.ErrorNotFound.
func (s *IdentityService) ResolveOwnerByClient(ctx context.Context, clientID string) (*models.Owner, error) {
	return s.ResolveOwnerByClientTx(ctx, s.db, clientID)
}

func (s *IdentityService) ResolveOwnerByClientTx(ctx context.Context, db dbx.DBTX, clientID string) (*models.Owner, error) {
	return s.repomanager.Owners(db).GetByClientID(ctx, clientID)
}

// ValidateBootstrapNames checks the names an anonymous upload supplies. The
// returned owner name is nil when absent or equal to the client name.
func (s *IdentityService) ValidateBootstrapNames(clientName, ownerName *string) (string, *string, error) {
	cn, err := ValidateName(clientName, "client name", s.maxNameLength)
	if err != nil {
		return "", nil, err
	}
	if ownerName == nil {
		return cn, nil, nil
	}
	on, err := ValidateName(ownerName, "owner name", s.maxNameLength)
	if err != nil {
		return "", nil, err
	}
	if on == cn {
		return cn, nil, nil
	}
	return cn, &on, nil
}

// BootstrapAnonymousTx creates a fresh owner holding one fresh client.
func (s *IdentityService) BootstrapAnonymousTx(ctx context.Context, db dbx.DBTX, clientName, ownerName *string) (*Bootstrap, error) {
	cn, on, err := s.ValidateBootstrapNames(clientName, ownerName)
	if err != nil {
		return nil, err
	}

	owner, err := s.repomanager.Owners(db).Create(ctx, on)
	if err != nil {
		return nil, fmt.Errorf("error creating owner: %w", err)
	}

	client := &models.Client{ID: uuid.NewString(), Name: cn, OwnerID: owner.ID}
	if err := s.repomanager.Clients(db).Create(ctx, client); err != nil {
		return nil, fmt.Errorf("error creating client: %w", err)
	}

	return &Bootstrap{Client: client, Owner: owner}, nil
}

// BootstrapAnonymous runs BootstrapAnonymousTx in its own transaction and
// signs a credential for the new client.
func (s *IdentityService) BootstrapAnonymous(ctx context.Context, clientName, ownerName *string) (*Bootstrap, string, error) {
	var b *Bootstrap
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		b, err = s.BootstrapAnonymousTx(ctx, tx, clientName, ownerName)
		return err
	})
	if err != nil {
		return nil, "", dbx.Classify(err)
	}

	token, err := s.IssueCredential(b.Client.ID)
	if err != nil {
		return nil, "", err
	}
	return b, token, nil
}

// Whoami returns the client and owner names behind clientID.
func (s *IdentityService) Whoami(ctx context.Context, clientID string) (*models.ClientOwner, error) {
	co, err := s.repomanager.Clients(s.db).GetWithOwner(ctx, clientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorForbidden, msgInvalidToken)
		}
		return nil, err
	}
	return co, nil
}

// UpdateWhoami renames the client and/or its owner. With neither field
// supplied it returns common.ErrorNotModified.
func (s *IdentityService) UpdateWhoami(ctx context.Context, clientID string, clientName, ownerName *string) error {
	if clientName == nil && ownerName == nil {
		return common.ErrorNotModified
	}

	var cn, on string
	var err error
	if clientName != nil {
		if cn, err = ValidateName(clientName, "client name", s.maxNameLength); err != nil {
			return err
		}
	}
	if ownerName != nil {
		if on, err = ValidateName(ownerName, "owner name", s.maxNameLength); err != nil {
			return err
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		co, err := s.repomanager.Clients(tx).GetWithOwner(ctx, clientID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.Errorf(common.ErrorForbidden, msgInvalidToken)
			}
			return err
		}
		if clientName != nil {
			if err := s.repomanager.Clients(tx).UpdateName(ctx, clientID, cn); err != nil {
				return err
			}
		}
		if ownerName != nil {
			if err := s.repomanager.Owners(tx).UpdateName(ctx, co.OwnerID, &on); err != nil {
				return err
			}
		}
		return nil
	})
	return dbx.Classify(err)
}
