// Package teex splits one io.Reader into two independently consumed
// readers without buffering the whole stream.
//
// A single pump goroutine reads the source chunk by chunk and hands each
// chunk to both branches through io.Pipe, so the slower branch paces the
// source. A branch that is closed normally is detached and the other
// branch keeps receiving data; Abort stops both branches and the pump.
package teex

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

const chunkSize = 32 * 1024

// Branch is one side of a Tee.
type Branch struct {
	r        *io.PipeReader
	w        *io.PipeWriter
	detached atomic.Bool
}

func (b *Branch) Read(p []byte) (int, error) { return b.r.Read(p) }

// Close detaches the branch: the pump stops feeding it and keeps feeding
// the other branch.
func (b *Branch) Close() error {
	b.detached.Store(true)
	return b.r.Close()
}

// Tee fans one source out to a Left and a Right branch.
type Tee struct {
	left, right *Branch

	abortOnce sync.Once
	aborted   atomic.Bool
	abortErr  error

	done    chan struct{}
	readErr error
}

// New starts pumping src into two branches. Cancelling ctx aborts the tee
// with the context error.
func New(ctx context.Context, src io.Reader) *Tee {
	t := &Tee{
		left:  newBranch(),
		right: newBranch(),
		done:  make(chan struct{}),
	}

	go t.pump(src)
	go func() {
		select {
		case <-ctx.Done():
			t.Abort(ctx.Err())
		case <-t.done:
		}
	}()

	return t
}

func newBranch() *Branch {
	r, w := io.Pipe()
	return &Branch{r: r, w: w}
}

func (t *Tee) Left() *Branch  { return t.left }
func (t *Tee) Right() *Branch { return t.right }

// Abort fails both branches with err and stops consuming the source once
// the in-flight read returns.
func (t *Tee) Abort(err error) {
	if err == nil {
		err = io.ErrClosedPipe
	}
	t.abortOnce.Do(func() {
		t.abortErr = err
		t.aborted.Store(true)
		_ = t.left.w.CloseWithError(err)
		_ = t.right.w.CloseWithError(err)
	})
}

// Wait blocks until the pump exits and returns the source read error, or
// the abort reason if the tee was aborted.
func (t *Tee) Wait() error {
	<-t.done
	if t.aborted.Load() {
		return t.abortErr
	}
	return t.readErr
}

func (t *Tee) pump(src io.Reader) {
	defer close(t.done)

	branches := []*Branch{t.left, t.right}
	buf := make([]byte, chunkSize)

	for {
		if t.aborted.Load() || allDetached(branches) {
			return
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			for _, b := range branches {
				if b.detached.Load() {
					continue
				}
				if _, err := b.w.Write(buf[:n]); err != nil {
					if b.detached.Load() || t.aborted.Load() {
						continue
					}
					t.Abort(err)
					return
				}
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				rerr = nil
			} else {
				t.readErr = rerr
			}
			for _, b := range branches {
				_ = b.w.CloseWithError(rerr)
			}
			return
		}
	}
}

func allDetached(bs []*Branch) bool {
	for _, b := range bs {
		if !b.detached.Load() {
			return false
		}
	}
	return true
}
