package teex

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader, out *[]byte, errOut *error, wg *sync.WaitGroup) {
	t.Helper()
	go func() {
		defer wg.Done()
		*out, *errOut = io.ReadAll(r)
	}()
}

func TestTee_BothBranchesSeeEverything(t *testing.T) {
	payload := bytes.Repeat([]byte("opacity-"), 20000)
	tee := New(context.Background(), bytes.NewReader(payload))

	var left, right []byte
	var lerr, rerr error
	var wg sync.WaitGroup
	wg.Add(2)
	readAll(t, tee.Left(), &left, &lerr, &wg)
	readAll(t, tee.Right(), &right, &rerr, &wg)
	wg.Wait()

	require.NoError(t, lerr)
	require.NoError(t, rerr)
	assert.Equal(t, payload, left)
	assert.Equal(t, payload, right)
	assert.NoError(t, tee.Wait())
}

func TestTee_DetachedBranchDoesNotBlockOther(t *testing.T) {
	payload := bytes.Repeat([]byte{7}, 5*chunkSize)
	tee := New(context.Background(), bytes.NewReader(payload))

	head := make([]byte, 10)
	_, err := io.ReadFull(tee.Left(), head)
	require.NoError(t, err)
	require.NoError(t, tee.Left().Close())

	got, err := io.ReadAll(tee.Right())
	require.NoError(t, err)
	assert.Len(t, got, len(payload))
	assert.NoError(t, tee.Wait())
}

func TestTee_AbortFailsBothBranches(t *testing.T) {
	src, srcW := io.Pipe()
	tee := New(context.Background(), src)

	go func() { _, _ = srcW.Write([]byte("partial")) }()

	buf := make([]byte, 7)
	_, err := io.ReadFull(tee.Left(), buf)
	require.NoError(t, err)

	bad := errors.New("invalid content")
	tee.Abort(bad)

	_, err = io.ReadAll(tee.Right())
	assert.ErrorIs(t, err, bad)
	_, err = tee.Left().Read(buf)
	assert.ErrorIs(t, err, bad)

	_ = srcW.Close()
	assert.ErrorIs(t, tee.Wait(), bad)
}

func TestTee_AbortStopsConsumingSource(t *testing.T) {
	src := &countingReader{r: strings.NewReader(strings.Repeat("x", 100*chunkSize))}
	tee := New(context.Background(), src)

	buf := make([]byte, 1)
	_, err := tee.Left().Read(buf)
	require.NoError(t, err)

	tee.Abort(errors.New("stop"))
	_ = tee.Wait()

	assert.Less(t, src.reads(), 10)
}

func TestTee_ContextCancelAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src, _ := io.Pipe()
	tee := New(ctx, src)

	cancel()

	_, err := io.ReadAll(tee.Right())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTee_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	tee := New(context.Background(), io.MultiReader(strings.NewReader("abc"), &failingReader{err: boom}))

	var left, right []byte
	var lerr, rerr error
	var wg sync.WaitGroup
	wg.Add(2)
	readAll(t, tee.Left(), &left, &lerr, &wg)
	readAll(t, tee.Right(), &right, &rerr, &wg)
	wg.Wait()

	assert.ErrorIs(t, lerr, boom)
	assert.ErrorIs(t, rerr, boom)
	assert.ErrorIs(t, tee.Wait(), boom)
}

type countingReader struct {
	mu sync.Mutex
	n  int
	r  io.Reader
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return c.r.Read(p)
}

func (c *countingReader) reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }
