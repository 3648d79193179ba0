// Package testutil holds conformance tests for dh.Store and dh.HostStore implementations.
package testutil

import (
	"bytes"
	"context"
	stderrs "errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/quick"

	"github.com/bobg/dh"
)

// ReadWrite permits testing a Store implementation
// by writing random content to it,
// then reading it back out to make sure it's the same.
// It also checks that a second Put of the same content is a no-op.
func ReadWrite(ctx context.Context, t *testing.T, s dh.Store) {
	f := func(data []byte) bool {
		id := dh.ID{Hash: dh.HashBytes(data), Ext: "bin"}

		added, err := s.Put(ctx, id, data)
		if err != nil {
			t.Logf("Put %s: %s", id, err)
			return false
		}
		has, err := s.Has(ctx, id.Hash)
		if err != nil {
			t.Logf("Has %s: %s", id, err)
			return false
		}
		if !has {
			t.Logf("Has %s: false after Put (added=%v)", id, added)
			return false
		}

		got, err := s.Get(ctx, id)
		if err != nil {
			t.Logf("Get %s: %s", id, err)
			return false
		}
		if !bytes.Equal(got, data) {
			t.Logf("Get %s: content mismatch", id)
			return false
		}

		added, err = s.Put(ctx, id, data)
		if err != nil {
			t.Logf("second Put %s: %s", id, err)
			return false
		}
		if added {
			t.Logf("second Put %s: added=true", id)
			return false
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

// Refuse checks that s will not store content under the wrong hash.
func Refuse(ctx context.Context, t *testing.T, s dh.Store) {
	id := dh.ID{Hash: dh.HashString("expected"), Ext: "txt"}
	added, err := s.Put(ctx, id, []byte("something else"))
	if !stderrs.Is(err, dh.ErrHashMismatch) {
		t.Errorf("got error %v, want ErrHashMismatch", err)
	}
	if added {
		t.Error("mismatched content was added")
	}
	has, err := s.Has(ctx, id.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("store has mismatched content")
	}
	_, err = s.Get(ctx, id)
	if !stderrs.Is(err, dh.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

// ConcurrentPut writes the same content from many goroutines at once
// and checks that exactly one of them added it.
func ConcurrentPut(ctx context.Context, t *testing.T, s dh.Store) {
	const n = 20

	var (
		data  = []byte("contended content")
		id    = dh.ID{Hash: dh.HashBytes(data), Ext: "txt"}
		added int32
		wg    sync.WaitGroup
		errs  = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Put(ctx, id, data)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				atomic.AddInt32(&added, 1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if added != 1 {
		t.Errorf("content added %d times, want 1", added)
	}
}
