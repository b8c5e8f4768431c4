package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	key, filename string
	err           error
}

func (f *fakePresigner) PresignGet(_ context.Context, key, filename string) (string, error) {
	f.key, f.filename = key, filename
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example/" + key, nil
}

type archiveFixture struct {
	svc   *ArchiveService
	store *store
	blobs *memBlobs
	mock  sqlmock.Sqlmock
}

func newArchiveFixture(t *testing.T, presigner *fakePresigner) *archiveFixture {
	t.Helper()
	db, mock := newMockDB(t)
	st := newStore()
	rm := repoMgr{st}
	blobs := newMemBlobs()

	var svc *ArchiveService
	if presigner != nil {
		svc = NewArchiveService(db, rm, testConfig(), blobs, presigner, NewAuthorizationGate(db, rm), logging.NewNop())
	} else {
		svc = NewArchiveService(db, rm, testConfig(), blobs, nil, NewAuthorizationGate(db, rm), logging.NewNop())
	}

	o := st.addOwner("owner-client", nil)
	st.addOwner("other-client", nil)
	st.addArchive("a1", o)
	blobs.objects["a1"] = gz(t, taggedArchive)

	return &archiveFixture{svc: svc, store: st, blobs: blobs, mock: mock}
}

func TestDownload_StreamsAndCounts(t *testing.T) {
	f := newArchiveFixture(t, nil)

	d, err := f.svc.Download(context.Background(), "a1", "", "")
	require.NoError(t, err)
	defer d.Body.Close()

	b, _ := io.ReadAll(d.Body)
	assert.Equal(t, f.blobs.objects["a1"], b)
	assert.Equal(t, "a1.psarchive", d.FileName)
	assert.Equal(t, common.ArchiveContentType, d.Info.ContentType)
	assert.Equal(t, int64(1), f.store.archives["a1"].Downloads)

	d2, err := f.svc.Download(context.Background(), "a1", "other-client", "")
	require.NoError(t, err)
	_ = d2.Body.Close()
	assert.Equal(t, int64(2), f.store.archives["a1"].Downloads)
}

func TestDownload_NotModifiedDoesNotCount(t *testing.T) {
	f := newArchiveFixture(t, nil)

	d, err := f.svc.Download(context.Background(), "a1", "", `"a1"`)
	require.NoError(t, err)
	assert.True(t, d.NotModified)
	assert.Nil(t, d.Body)
	assert.Equal(t, int64(0), f.store.archives["a1"].Downloads)
}

func TestDownload_Presigned(t *testing.T) {
	p := &fakePresigner{}
	f := newArchiveFixture(t, p)

	d, err := f.svc.Download(context.Background(), "a1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a1", d.RedirectURL)
	assert.Equal(t, "a1.psarchive", p.filename)
	assert.Equal(t, int64(1), f.store.archives["a1"].Downloads)

	p.err = errors.New("sign-fail")
	_, err = f.svc.Download(context.Background(), "a1", "", "")
	assert.ErrorContains(t, err, "sign-fail")
	assert.Equal(t, int64(1), f.store.archives["a1"].Downloads)
}

func TestDownload_Unknown(t *testing.T) {
	f := newArchiveFixture(t, nil)

	_, err := f.svc.Download(context.Background(), "nope", "", "")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_RemovesRecordAndBlob(t *testing.T) {
	f := newArchiveFixture(t, nil)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	require.NoError(t, f.svc.Delete(context.Background(), "a1", "owner-client"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.NotContains(t, f.store.archives, "a1")
	assert.False(t, f.blobs.has("a1"))

	_, err := f.svc.Download(context.Background(), "a1", "", "")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_NotOwner(t *testing.T) {
	f := newArchiveFixture(t, nil)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	err := f.svc.Delete(context.Background(), "a1", "other-client")
	assert.ErrorIs(t, err, common.ErrorForbidden)
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.True(t, f.blobs.has("a1"))
}

func TestRename(t *testing.T) {
	f := newArchiveFixture(t, nil)

	assert.ErrorIs(t, f.svc.Rename(context.Background(), "a1", "owner-client", nil), common.ErrorNotModified)
	assert.ErrorIs(t, f.svc.Rename(context.Background(), "a1", "other-client", ptr("x")), common.ErrorForbidden)

	require.NoError(t, f.svc.Rename(context.Background(), "a1", "owner-client", ptr("new   name")))
	assert.Equal(t, "new name", f.store.archives["a1"].Name)
}

func TestPreview(t *testing.T) {
	f := newArchiveFixture(t, nil)

	previews, err := f.svc.Preview(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, []QuizPreview{{Name: "a", Preview: "a"}, {Name: "b", Preview: "b"}}, previews)

	_, err = f.svc.Preview(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
