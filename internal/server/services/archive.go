package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/opacity/internal/archive"
	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/dbx"
	"github.com/dmitrijs2005/opacity/internal/logging"
	"github.com/dmitrijs2005/opacity/internal/privilege"
	"github.com/dmitrijs2005/opacity/internal/server/blobstore"
	"github.com/dmitrijs2005/opacity/internal/server/config"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
	"github.com/klauspost/compress/gzip"
)

// Download is either a redirect to a presigned URL or a blob to stream.
// NotModified is set when the caller's ETag still matches; nothing is
// counted then.
type Download struct {
	RedirectURL string
	Body        io.ReadCloser
	Info        blobstore.Info
	FileName    string
	NotModified bool
}

// QuizPreview is the rendered text of one quiz.
type QuizPreview struct {
	Name    string
	Preview string
}

// ArchiveService implements operations on one stored archive.
type ArchiveService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	blobs         blobstore.Store
	presigner     blobstore.Presigner
	gate          *AuthorizationGate
	logger        logging.Logger
	maxNameLength int
}

// NewArchiveService builds the service. presigner may be nil, in which case
// downloads are streamed.
func NewArchiveService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	blobs blobstore.Store, presigner blobstore.Presigner, gate *AuthorizationGate, logger logging.Logger) *ArchiveService {
	return &ArchiveService{
		db:            db,
		repomanager:   m,
		blobs:         blobs,
		presigner:     presigner,
		gate:          gate,
		logger:        logger.With("module", "archive"),
		maxNameLength: cfg.MaxNameLength,
	}
}

func notFoundArchive(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.Errorf(common.ErrorNotFound, "Archive not found.")
	}
	return err
}

// Download counts one download and hands out the archive bytes.
func (s *ArchiveService) Download(ctx context.Context, archiveID, clientID, ifNoneMatch string) (*Download, error) {
	if _, err := s.gate.Admit(ctx, archiveID, clientID, privilege.Read); err != nil {
		return nil, err
	}
	d := &Download{FileName: archiveID + common.ArchiveExtension}

	if s.presigner != nil {
		url, err := s.presigner.PresignGet(ctx, archiveID, d.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := s.repomanager.Archives(s.db).IncrementDownloads(ctx, archiveID); err != nil {
			return nil, notFoundArchive(err)
		}
		d.RedirectURL = url
		return d, nil
	}

	if ifNoneMatch != "" {
		info, err := s.blobs.Head(ctx, archiveID)
		if err != nil {
			return nil, notFoundArchive(err)
		}
		if info.ETag != "" && info.ETag == ifNoneMatch {
			d.Info = info
			d.NotModified = true
			return d, nil
		}
	}

	rc, info, err := s.blobs.Get(ctx, archiveID)
	if err != nil {
		return nil, notFoundArchive(err)
	}
	if _, err := s.repomanager.Archives(s.db).IncrementDownloads(ctx, archiveID); err != nil {
		_ = rc.Close()
		return nil, notFoundArchive(err)
	}
	if info.ContentType == "" {
		info.ContentType = common.ArchiveContentType
	}
	d.Body, d.Info = rc, info
	return d, nil
}

// Delete removes the record and the blob together: the record deletion
// commits only after the blob is gone.
func (s *ArchiveService) Delete(ctx context.Context, archiveID, clientID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.gate.AdmitTx(ctx, tx, archiveID, clientID, privilege.Write); err != nil {
			return err
		}
		if err := s.repomanager.Archives(tx).Delete(ctx, archiveID); err != nil {
			return notFoundArchive(err)
		}
		if err := s.blobs.Delete(ctx, archiveID); err != nil {
			return fmt.Errorf("delete blob: %w", err)
		}
		return nil
	})
	if err != nil {
		return dbx.Classify(err)
	}
	s.logger.Info(ctx, "archive deleted", "archive_id", archiveID)
	return nil
}

// Rename sets the display name. A nil name is common.ErrorNotModified.
func (s *ArchiveService) Rename(ctx context.Context, archiveID, clientID string, name *string) error {
	if name == nil {
		return common.ErrorNotModified
	}
	n, err := ValidateName(name, "archive name", s.maxNameLength)
	if err != nil {
		return err
	}
	if _, err := s.gate.Admit(ctx, archiveID, clientID, privilege.Write); err != nil {
		return err
	}
	if err := s.repomanager.Archives(s.db).Rename(ctx, archiveID, n); err != nil {
		return dbx.Classify(notFoundArchive(err))
	}
	return nil
}

// Preview renders every quiz of the stored archive as one line of text.
func (s *ArchiveService) Preview(ctx context.Context, archiveID string) ([]QuizPreview, error) {
	if _, err := s.gate.Admit(ctx, archiveID, "", privilege.Read); err != nil {
		return nil, err
	}

	rc, _, err := s.blobs.Get(ctx, archiveID)
	if err != nil {
		return nil, notFoundArchive(err)
	}
	defer rc.Close()

	zr, err := gzip.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("open stored archive %s: %w", archiveID, err)
	}
	defer zr.Close()

	a, err := archive.Decode(zr)
	if err != nil {
		return nil, fmt.Errorf("decode stored archive %s: %w", archiveID, err)
	}

	previews := make([]QuizPreview, 0, len(a.Quizzes))
	for _, q := range a.Quizzes {
		text, err := archive.Preview(q)
		if err != nil {
			return nil, err
		}
		previews = append(previews, QuizPreview{Name: q.Name, Preview: text})
	}
	return previews, nil
}
