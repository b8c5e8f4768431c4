package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/dbx"
	"github.com/dmitrijs2005/opacity/internal/server/blobstore"
	"github.com/dmitrijs2005/opacity/internal/server/config"
	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/archives"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/clients"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/dimensions"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/likes"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/owners"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
	"github.com/klauspost/compress/gzip"
)

// --- helpers ---

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	cfg.PageSize = 2
	return cfg
}

func gz(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func ptr[T any](v T) *T { return &v }

// --- store ---

type store struct {
	mu        sync.Mutex
	owners    map[string]*models.Owner
	clients   map[string]*models.Client
	archives  map[string]*models.ArchiveOwner
	dims      map[string]*models.Dimension
	dimCounts map[string]map[int64]int
	likes     map[[2]string]bool
	listRows  []*models.ArchiveSummary
	lastList  archives.ListQuery
	nextOwner int
	nextDim   int64

	archiveCreateErr error
}

func newStore() *store {
	return &store{
		owners:    map[string]*models.Owner{},
		clients:   map[string]*models.Client{},
		archives:  map[string]*models.ArchiveOwner{},
		dims:      map[string]*models.Dimension{},
		dimCounts: map[string]map[int64]int{},
		likes:     map[[2]string]bool{},
	}
}

func (s *store) addOwner(clientID string, mode *int) *models.Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOwner++
	o := &models.Owner{ID: fmt.Sprintf("owner-%d", s.nextOwner), Mode: mode}
	s.owners[o.ID] = o
	s.clients[clientID] = &models.Client{ID: clientID, Name: clientID, OwnerID: o.ID}
	return o
}

func (s *store) addArchive(id string, owner *models.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[id] = &models.ArchiveOwner{
		Archive:   models.Archive{ID: id, Name: id, OwnerID: owner.ID, UpdateTime: time.Unix(0, 0)},
		OwnerName: owner.Name,
		OwnerMode: owner.Mode,
	}
}

type repoMgr struct{ s *store }

var _ repomanager.RepositoryManager = repoMgr{}

func (m repoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m repoMgr) Owners(dbx.DBTX) owners.Repository { return fakeOwners{m.s} }
func (m repoMgr) Clients(dbx.DBTX) clients.Repository { return fakeClients{m.s} }
func (m repoMgr) Archives(dbx.DBTX) archives.Repository { return fakeArchives{m.s} }
func (m repoMgr) Dimensions(dbx.DBTX) dimensions.Repository { return fakeDimensions{m.s} }
func (m repoMgr) Likes(dbx.DBTX) likes.Repository { return fakeLikes{m.s} }

type fakeOwners struct{ s *store }

func (f fakeOwners) Create(_ context.Context, name *string) (*models.Owner, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.nextOwner++
	o := &models.Owner{ID: fmt.Sprintf("owner-%d", f.s.nextOwner), Name: name}
	f.s.owners[o.ID] = o
	return o, nil
}

func (f fakeOwners) GetByClientID(_ context.Context, clientID string) (*models.Owner, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.clients[clientID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.s.owners[c.OwnerID], nil
}

func (f fakeOwners) UpdateName(_ context.Context, ownerID string, name *string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.owners[ownerID]
	if !ok {
		return common.ErrorNotFound
	}
	o.Name = name
	return nil
}

type fakeClients struct{ s *store }

func (f fakeClients) Create(_ context.Context, c *models.Client) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.clients[c.ID] = c
	return nil
}

func (f fakeClients) GetWithOwner(_ context.Context, clientID string) (*models.ClientOwner, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.clients[clientID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	o := f.s.owners[c.OwnerID]
	return &models.ClientOwner{Client: *c, OwnerName: o.Name, OwnerMode: o.Mode}, nil
}

func (f fakeClients) UpdateName(_ context.Context, clientID, name string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.clients[clientID]
	if !ok {
		return common.ErrorNotFound
	}
	c.Name = name
	return nil
}

type fakeArchives struct{ s *store }

func (f fakeArchives) Create(_ context.Context, a *models.Archive) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.archiveCreateErr != nil {
		return f.s.archiveCreateErr
	}
	o := f.s.owners[a.OwnerID]
	a.UploadTime = time.Now()
	f.s.archives[a.ID] = &models.ArchiveOwner{Archive: *a, OwnerName: o.Name, OwnerMode: o.Mode}
	return nil
}

func (f fakeArchives) Get(_ context.Context, id string) (*models.ArchiveOwner, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.archives[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f fakeArchives) Summary(ctx context.Context, id string) (*models.ArchiveSummary, error) {
	a, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ArchiveSummary{ID: a.ID, Name: a.Name, OwnerName: a.OwnerName,
		UploadTime: a.UploadTime, UpdateTime: a.UpdateTime, Downloads: a.Downloads}, nil
}

func (f fakeArchives) List(_ context.Context, q archives.ListQuery) ([]*models.ArchiveSummary, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.lastList = q
	rows := f.s.listRows
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (f fakeArchives) Rename(_ context.Context, id, name string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.archives[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Name = name
	return nil
}

func (f fakeArchives) IncrementDownloads(_ context.Context, id string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.archives[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	a.Downloads++
	return a.Downloads, nil
}

func (f fakeArchives) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.archives[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.archives, id)
	return nil
}

type fakeDimensions struct{ s *store }

func (f fakeDimensions) Ensure(_ context.Context, names []string) (map[string]*models.Dimension, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[string]*models.Dimension{}
	for _, n := range names {
		d, ok := f.s.dims[n]
		if !ok {
			f.s.nextDim++
			d = &models.Dimension{ID: f.s.nextDim, Name: n}
			f.s.dims[n] = d
		}
		out[n] = d
	}
	return out, nil
}

func (f fakeDimensions) AttachToArchive(_ context.Context, archiveID string, dimensionID int64, quizCount int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.dimCounts[archiveID] == nil {
		f.s.dimCounts[archiveID] = map[int64]int{}
	}
	f.s.dimCounts[archiveID][dimensionID] = quizCount
	return nil
}

func (f fakeDimensions) Get(_ context.Context, id int64) (*models.Dimension, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, d := range f.s.dims {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeDimensions) ForArchives(_ context.Context, ids []string) (map[string][]models.DimensionCount, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[string][]models.DimensionCount{}
	for _, id := range ids {
		for dimID, n := range f.s.dimCounts[id] {
			for _, d := range f.s.dims {
				if d.ID == dimID {
					out[id] = append(out[id], models.DimensionCount{Dimension: *d, QuizCount: int64(n)})
				}
			}
		}
		sort.Slice(out[id], func(i, j int) bool { return out[id][i].ID < out[id][j].ID })
	}
	return out, nil
}

func (f fakeDimensions) Top(_ context.Context, first int) ([]*models.DimensionCount, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.DimensionCount
	for _, d := range f.s.dims {
		out = append(out, &models.DimensionCount{Dimension: *d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > first {
		out = out[:first]
	}
	return out, nil
}

func (f fakeDimensions) SetEmoji(_ context.Context, name, emoji string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if d, ok := f.s.dims[name]; ok {
		d.Emoji = &emoji
	}
	return nil
}

type fakeLikes struct{ s *store }

func (f fakeLikes) Create(_ context.Context, ownerID, archiveID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	k := [2]string{ownerID, archiveID}
	if f.s.likes[k] {
		return common.ErrorConflict
	}
	f.s.likes[k] = true
	return nil
}

func (f fakeLikes) Delete(_ context.Context, ownerID, archiveID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	k := [2]string{ownerID, archiveID}
	if !f.s.likes[k] {
		return common.ErrorNotFound
	}
	delete(f.s.likes, k)
	return nil
}

func (f fakeLikes) Count(_ context.Context, archiveID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k := range f.s.likes {
		if k[1] == archiveID {
			n++
		}
	}
	return n, nil
}

func (f fakeLikes) People(_ context.Context, archiveID string, limit int) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	people := []string{}
	for k := range f.s.likes {
		if o := f.s.owners[k[0]]; k[1] == archiveID && o.Name != nil && len(people) < limit {
			people = append(people, *o.Name)
		}
	}
	return people, nil
}

// --- blobs ---

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string][]byte{}} }

func (m *memBlobs) Put(_ context.Context, key string, r io.Reader, contentType string) (blobstore.Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return blobstore.Info{}, err
	}
	if m.putErr != nil {
		return blobstore.Info{}, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return blobstore.Info{ETag: `"` + key + `"`, Size: int64(len(b)), ContentType: contentType}, nil
}

func (m *memBlobs) Get(ctx context.Context, key string) (io.ReadCloser, blobstore.Info, error) {
	info, err := m.Head(ctx, key)
	if err != nil {
		return nil, blobstore.Info{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(m.objects[key])), info, nil
}

func (m *memBlobs) Head(_ context.Context, key string) (blobstore.Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return blobstore.Info{}, common.ErrorNotFound
	}
	return blobstore.Info{ETag: `"` + key + `"`, Size: int64(len(b)), ContentType: common.ArchiveContentType}, nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memBlobs) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// --- enricher ---

type recordingEnricher struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingEnricher) Trigger(_ context.Context, names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), names...))
}

func (r *recordingEnricher) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
