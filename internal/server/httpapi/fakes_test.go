package httpapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/logging"
	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/services"
)

// --- fakes ---

type fakeIdentity struct {
	tokens      map[string]string
	whoami      func(ctx context.Context, clientID string) (*models.ClientOwner, error)
	updateCalls [][2]*string
	updateErr   error
}

func (f *fakeIdentity) VerifyCredential(token string) (string, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return "", common.Errorf(common.ErrorUnauthenticated, "Authentication token is invalid.")
}

func (f *fakeIdentity) Whoami(ctx context.Context, clientID string) (*models.ClientOwner, error) {
	return f.whoami(ctx, clientID)
}

func (f *fakeIdentity) UpdateWhoami(_ context.Context, _ string, clientName, ownerName *string) error {
	f.updateCalls = append(f.updateCalls, [2]*string{clientName, ownerName})
	if clientName == nil && ownerName == nil {
		return common.ErrorNotModified
	}
	return f.updateErr
}

type fakeIngester struct {
	got     services.IngestInput
	content []byte
	result  *services.IngestResult
	err     error
}

func (f *fakeIngester) Ingest(_ context.Context, in services.IngestInput) (*services.IngestResult, error) {
	f.got = in
	f.content, _ = io.ReadAll(in.Content)
	return f.result, f.err
}

type fakeArchives struct {
	download   func(archiveID, clientID, ifNoneMatch string) (*services.Download, error)
	deleteErr  error
	renamed    []*string
	renameErr  error
	preview    []services.QuizPreview
	previewErr error
}

func (f *fakeArchives) Download(_ context.Context, archiveID, clientID, ifNoneMatch string) (*services.Download, error) {
	return f.download(archiveID, clientID, ifNoneMatch)
}

func (f *fakeArchives) Delete(context.Context, string, string) error { return f.deleteErr }

func (f *fakeArchives) Rename(_ context.Context, _, _ string, name *string) error {
	f.renamed = append(f.renamed, name)
	if name == nil {
		return common.ErrorNotModified
	}
	return f.renameErr
}

func (f *fakeArchives) Preview(context.Context, string) ([]services.QuizPreview, error) {
	return f.preview, f.previewErr
}

type fakeQueries struct {
	listIn     services.ListInput
	page       *services.Page
	listErr    error
	metadata   *models.ArchiveSummary
	metaClient string
	metaErr    error
	first      string
	dims       []*models.DimensionCount
	dimsErr    error
}

func (f *fakeQueries) List(_ context.Context, in services.ListInput) (*services.Page, error) {
	f.listIn = in
	return f.page, f.listErr
}

func (f *fakeQueries) Metadata(_ context.Context, _, clientID string) (*models.ArchiveSummary, error) {
	f.metaClient = clientID
	return f.metadata, f.metaErr
}

func (f *fakeQueries) Dimensions(_ context.Context, first string) ([]*models.DimensionCount, error) {
	f.first = first
	return f.dims, f.dimsErr
}

type fakeLikes struct {
	liked   map[string]bool
	summary *services.LikeSummary
}

func (f *fakeLikes) Summary(context.Context, string) (*services.LikeSummary, error) {
	return f.summary, nil
}

func (f *fakeLikes) Like(_ context.Context, _, clientID string) error {
	if f.liked[clientID] {
		return common.Errorf(common.ErrorConflict, "Already liked.")
	}
	f.liked[clientID] = true
	return nil
}

func (f *fakeLikes) Unlike(_ context.Context, _, clientID string) error {
	if !f.liked[clientID] {
		return common.Errorf(common.ErrorNotFound, "Not liked.")
	}
	delete(f.liked, clientID)
	return nil
}

// --- helpers ---

type fixture struct {
	identity *fakeIdentity
	ingester *fakeIngester
	archives *fakeArchives
	queries  *fakeQueries
	likes    *fakeLikes
	handler  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		identity: &fakeIdentity{tokens: map[string]string{"good": "c1"}},
		ingester: &fakeIngester{},
		archives: &fakeArchives{},
		queries:  &fakeQueries{},
		likes:    &fakeLikes{liked: map[string]bool{}},
	}
	f.handler = NewRouter(Services{
		Identity: f.identity,
		Ingester: f.ingester,
		Archives: f.archives,
		Queries:  f.queries,
		Likes:    f.likes,
	}, 1<<20, logging.NewNop())
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// multipartBody builds a form; a non-nil file is sent as the "content" part.
func multipartBody(t *testing.T, fields map[string]string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("content", "quiz.psarchive")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
