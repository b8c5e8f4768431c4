package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dmitrijs2005/opacity/internal/archive"
	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/dbx"
	"github.com/dmitrijs2005/opacity/internal/logging"
	"github.com/dmitrijs2005/opacity/internal/server/blobstore"
	"github.com/dmitrijs2005/opacity/internal/server/config"
	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/opacity/internal/teex"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/samber/lo"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"
)

// IngestInput is a validated upload form.
type IngestInput struct {
	Content  io.Reader
	FileName string
	Name     *string

	// ClientID comes from a verified credential. When empty the upload is
	// anonymous and ClientName is required.
	ClientID   string
	ClientName *string
	OwnerName  *string
}

// IngestResult carries Credential only when the upload minted a new client.
type IngestResult struct {
	ArchiveID  string
	Credential string
}

// IngestionService stores an uploaded archive: the raw bytes go to the blob
// store while a parse of the same stream validates the content, and the
// metadata is committed only once both have succeeded.
type IngestionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	identity    *IdentityService
	enricher    Enricher
	logger      logging.Logger

	maxNameLength int
	newArchiveID  func() string
}

func NewIngestionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	blobs blobstore.Store, identity *IdentityService, enricher Enricher, logger logging.Logger) *IngestionService {
	return &IngestionService{
		db:            db,
		repomanager:   m,
		blobs:         blobs,
		identity:      identity,
		enricher:      enricher,
		logger:        logger.With("module", "ingest"),
		maxNameLength: cfg.MaxNameLength,
		newArchiveID:  func() string { return ksuid.New().String() },
	}
}

func (s *IngestionService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	nameSource := in.Name
	if nameSource == nil {
		nameSource = &in.FileName
	}
	name, err := ValidateName(nameSource, "archive name", s.maxNameLength)
	if err != nil {
		return nil, err
	}
	if in.ClientID == "" {
		if _, _, err := s.identity.ValidateBootstrapNames(in.ClientName, in.OwnerName); err != nil {
			return nil, err
		}
	}

	archiveID := s.newArchiveID()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tee := teex.New(ctx, in.Content)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := s.blobs.Put(gctx, archiveID, tee.Right(), common.ArchiveContentType); err != nil {
			tee.Abort(err)
			return fmt.Errorf("store blob: %w", err)
		}
		return nil
	})

	var parseErr error
	parsed := make(chan *archive.Archive, 1)
	g.Go(func() error {
		a, err := parseContent(tee.Left())
		if err != nil {
			parseErr = err
			tee.Abort(err)
			return err
		}
		parsed <- a
		return nil
	})

	var content *archive.Archive
	select {
	case content = <-parsed:
	case <-gctx.Done():
		err := g.Wait()
		if parseErr != nil {
			err = parseErr
		}
		s.discardBlob(ctx, archiveID, nil)
		return nil, err
	}

	var (
		minted  *Bootstrap
		pending []string
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ownerID, b, err := s.resolveOwner(ctx, tx, in)
		if err != nil {
			return err
		}
		minted = b

		pending, err = s.record(ctx, tx, archiveID, name, ownerID, content)
		if err != nil {
			return err
		}

		// the record commits only once the blob is durable
		return g.Wait()
	})
	if err != nil {
		cancel()
		s.discardBlob(ctx, archiveID, g.Wait)
		return nil, dbx.Classify(err)
	}

	res := &IngestResult{ArchiveID: archiveID}
	if minted != nil {
		if res.Credential, err = s.identity.IssueCredential(minted.Client.ID); err != nil {
			return nil, err
		}
	}

	s.logger.Info(ctx, "archive ingested", "archive_id", archiveID, "quizzes", len(content.Quizzes), "new_client", minted != nil)

	if len(pending) > 0 {
		s.enricher.Trigger(context.WithoutCancel(ctx), pending)
	}
	return res, nil
}

func (s *IngestionService) resolveOwner(ctx context.Context, tx dbx.DBTX, in IngestInput) (string, *Bootstrap, error) {
	if in.ClientID != "" {
		owner, err := s.identity.ResolveOwnerByClientTx(ctx, tx, in.ClientID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return "", nil, common.Errorf(common.ErrorForbidden, msgInvalidToken)
			}
			return "", nil, err
		}
		return owner.ID, nil, nil
	}

	b, err := s.identity.BootstrapAnonymousTx(ctx, tx, in.ClientName, in.OwnerName)
	if err != nil {
		return "", nil, err
	}
	return b.Owner.ID, b, nil
}

// record writes the archive row and its dimension counts and returns the
// names of dimensions that still lack a label.
func (s *IngestionService) record(ctx context.Context, tx dbx.DBTX, archiveID, name, ownerID string, content *archive.Archive) ([]string, error) {
	counts := content.DimensionQuizCounts()
	names := lo.Keys(counts)
	sort.Strings(names)

	dims, err := s.repomanager.Dimensions(tx).Ensure(ctx, names)
	if err != nil {
		return nil, err
	}

	updateTime, ok := content.UpdateTime()
	if !ok {
		updateTime = content.Creation
	}

	if err := s.repomanager.Archives(tx).Create(ctx, &models.Archive{
		ID:         archiveID,
		Name:       name,
		OwnerID:    ownerID,
		UpdateTime: updateTime,
	}); err != nil {
		return nil, err
	}

	for _, n := range names {
		if err := s.repomanager.Dimensions(tx).AttachToArchive(ctx, archiveID, dims[n].ID, counts[n]); err != nil {
			return nil, err
		}
	}

	return lo.Filter(names, func(n string, _ int) bool { return dims[n].Emoji == nil }), nil
}

// discardBlob removes a blob written for an upload that did not commit.
// wait, when set, reports whether the write finished; a nil wait means the
// caller already waited and the blob may or may not exist.
func (s *IngestionService) discardBlob(ctx context.Context, archiveID string, wait func() error) {
	if wait != nil && wait() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, archiveID); err != nil {
		s.logger.Error(ctx, "failed to discard blob", "archive_id", archiveID, "error", err)
	}
}

// parseContent gunzips and decodes r, detaching r once done so the sibling
// branch keeps receiving the rest of the stream.
func parseContent(r io.ReadCloser) (*archive.Archive, error) {
	defer r.Close()

	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, contentError(err)
	}
	defer zr.Close()

	a, err := archive.Decode(zr)
	if err != nil {
		return nil, contentError(err)
	}
	// read to the gzip trailer so the checksum is verified
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return nil, contentError(err)
	}
	return a, nil
}

// contentError turns malformed-content failures into validation errors and
// passes transport failures through.
func contentError(err error) error {
	var (
		pe *archive.ParseError
		ce flate.CorruptInputError
	)
	switch {
	case errors.As(err, &pe):
		return common.Errorf(common.ErrorValidation, "Invalid content: %s.", pe.Msg)
	case errors.Is(err, gzip.ErrHeader), errors.Is(err, gzip.ErrChecksum), errors.As(err, &ce),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return common.Errorf(common.ErrorValidation, "Invalid content: %s.", err.Error())
	}
	return err
}
