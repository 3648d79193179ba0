package sqlite3

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/bobg/dh/testutil"
)

func TestHosts(t *testing.T) {
	ctx := context.Background()
	withTestStore(ctx, t, func(s *Store) {
		testutil.Hosts(ctx, t, s)
	})
	withTestStore(ctx, t, func(s *Store) {
		testutil.ConcurrentHosts(ctx, t, s)
	})
}

func withTestStore(ctx context.Context, t *testing.T, fn func(*Store)) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "hosts.db")+"?_busy_timeout=5000")
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
