package blobstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/opacity/internal/common"
	"golang.org/x/crypto/blake2b"
)

// FSStore keeps blobs as files under one directory. The ETag of a blob is
// its BLAKE2b-256 digest, kept next to it in a ".etag" file.
type FSStore struct {
	root string
}

// NewFSStore creates root (relative paths resolve against the working
// directory) if it does not exist.
func NewFSStore(root string) (*FSStore, error) {
	dir, err := EnsureDir(root)
	if err != nil {
		return nil, err
	}
	return &FSStore{root: dir}, nil
}

// EnsureDir creates dirName, resolved against the working directory when
// relative, and returns its absolute path.
func EnsureDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

func (s *FSStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("bad blob key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

// ctxReader stops a copy as soon as ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	p, err := s.path(key)
	if err != nil {
		return Info{}, err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return Info{}, fmt.Errorf("create temp: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	h, err := blake2b.New256(nil)
	if err != nil {
		return Info{}, err
	}

	n, err := io.Copy(io.MultiWriter(tmp, h), ctxReader{ctx: ctx, r: r})
	if err != nil {
		return Info{}, fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Info{}, fmt.Errorf("close blob %s: %w", key, err)
	}

	etag := `"` + hex.EncodeToString(h.Sum(nil)) + `"`
	if err := os.WriteFile(p+".etag", []byte(etag), 0o660); err != nil {
		return Info{}, fmt.Errorf("write etag %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(p + ".etag")
		return Info{}, fmt.Errorf("rename blob %s: %w", key, err)
	}
	committed = true

	return Info{ETag: etag, Size: n, ContentType: contentType}, nil
}

func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, Info, error) {
	info, err := s.Head(ctx, key)
	if err != nil {
		return nil, Info{}, err
	}
	p, _ := s.path(key)
	f, err := os.Open(p)
	if err != nil {
		return nil, Info{}, mapFSErr(err)
	}
	return f, info, nil
}

func (s *FSStore) Head(_ context.Context, key string) (Info, error) {
	p, err := s.path(key)
	if err != nil {
		return Info{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		return Info{}, mapFSErr(err)
	}
	etag, err := os.ReadFile(p + ".etag")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Info{}, err
	}
	return Info{ETag: string(etag), Size: st.Size(), ContentType: common.ArchiveContentType}, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Remove(p + ".etag"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func mapFSErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return common.ErrorNotFound
	}
	return err
}
