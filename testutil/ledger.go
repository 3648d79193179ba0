package testutil

import (
	"context"
	stderrs "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/dh"
	"github.com/bobg/dh/ledger"
)

// TestAddress is a well-formed address for use in ledger tests.
const TestAddress = "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"

// Chain tests a ledger.Store implementation
// by submitting n claims and checking the resulting chain:
// each block links to the one before it,
// the first links to Genesis,
// and every claim has exactly one owner record.
func Chain(ctx context.Context, t *testing.T, s ledger.Store, n int) {
	l := ledger.New(s)

	var blocks []*ledger.Block
	for i := 0; i < n; i++ {
		fh := dh.HashString(fmt.Sprintf("file %d", i)).String()
		b, err := l.Submit(ctx, TestAddress, fh)
		if err != nil {
			t.Fatalf("submitting claim %d: %s", i, err)
		}
		blocks = append(blocks, b)
	}

	chain, err := l.Chain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(blocks, chain); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
	for i, b := range chain {
		want := ledger.Genesis
		if i > 0 {
			want = chain[i-1].BlockHash
		}
		if b.PreviousHash != want {
			t.Errorf("block %d: previous hash %s, want %s", i, b.PreviousHash, want)
		}
		owner, err := l.Owner(ctx, b.FileHash)
		if err != nil {
			t.Errorf("owner of block %d: %s", i, err)
		} else if owner != TestAddress {
			t.Errorf("owner of block %d is %s, want %s", i, owner, TestAddress)
		}
	}

	tip, err := s.Tip(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tip.Height != int64(n) {
		t.Errorf("tip height %d, want %d", tip.Height, n)
	}

	if err := l.Verify(ctx); err != nil {
		t.Error(err)
	}
}

// Duplicate tests that a second claim of the same file hash
// fails with dh.ErrDuplicate and leaves the ledger unchanged.
func Duplicate(ctx context.Context, t *testing.T, s ledger.Store) {
	var (
		l  = ledger.New(s)
		fh = dh.HashString("contested").String()
	)

	if _, err := l.Submit(ctx, TestAddress, fh); err != nil {
		t.Fatal(err)
	}
	_, err := l.Submit(ctx, "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", fh)
	if !stderrs.Is(err, dh.ErrDuplicate) {
		t.Errorf("got error %v, want ErrDuplicate", err)
	}

	chain, err := l.Chain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 1 {
		t.Errorf("got %d blocks, want 1", len(chain))
	}
	owner, err := l.Owner(ctx, fh)
	if err != nil {
		t.Fatal(err)
	}
	if owner != TestAddress {
		t.Errorf("owner is %s, want %s", owner, TestAddress)
	}

	var owners int
	err = s.Owners(ctx, func(string, string) error {
		owners++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if owners != 1 {
		t.Errorf("got %d owner records, want 1", owners)
	}
}

// ConcurrentSubmit tests that concurrent claims produce a single unforked chain.
func ConcurrentSubmit(ctx context.Context, t *testing.T, s ledger.Store) {
	const n = 10

	l := ledger.New(s)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fh := dh.HashString(fmt.Sprintf("concurrent %d", i)).String()
			_, errs[i] = l.Submit(ctx, TestAddress, fh)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("submission %d: %s", i, err)
		}
	}

	chain, err := l.Chain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != n {
		t.Errorf("got %d blocks, want %d", len(chain), n)
	}
	if err := l.Verify(ctx); err != nil {
		t.Error(err)
	}
}
