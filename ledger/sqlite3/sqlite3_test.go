package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bobg/dh/ledger"
	"github.com/bobg/dh/testutil"
)

func TestChain(t *testing.T) {
	ctx := context.Background()
	withTestStore(ctx, t, func(s *Store) {
		testutil.Chain(ctx, t, s, 5)
	})
}

func TestDuplicate(t *testing.T) {
	ctx := context.Background()
	withTestStore(ctx, t, func(s *Store) {
		testutil.Duplicate(ctx, t, s)
	})
}

func TestConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	withTestStore(ctx, t, func(s *Store) {
		testutil.ConcurrentSubmit(ctx, t, s)
	})
}

func TestNoFork(t *testing.T) {
	ctx := context.Background()
	withTestStore(ctx, t, func(s *Store) {
		l := ledger.New(s)
		first, err := l.Submit(ctx, testutil.TestAddress, "00000000000000000000000000000000000000000000000000000000000000aa")
		if err != nil {
			t.Fatal(err)
		}

		fork := &ledger.Block{
			Version:      ledger.Version,
			PreviousHash: ledger.Genesis,
			FileHash:     "00000000000000000000000000000000000000000000000000000000000000bb",
			Address:      testutil.TestAddress,
			Nonce:        "00",
		}
		if fork.BlockHash, err = fork.ComputeHash(); err != nil {
			t.Fatal(err)
		}
		err = s.PutBlock(ctx, fork, 1)
		if !errors.Is(err, ledger.ErrIntegrity) {
			t.Errorf("got error %v, want ErrIntegrity", err)
		}

		tip, err := s.Tip(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if tip.Hash != first.BlockHash {
			t.Errorf("tip moved to %s", tip.Hash)
		}
	})
}

func withTestStore(ctx context.Context, t *testing.T, fn func(*Store)) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "ledger.db")+"?_busy_timeout=5000")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	s, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	fn(s)
}
