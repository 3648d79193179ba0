package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/dh"
	"github.com/bobg/dh/testutil"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	testutil.ReadWrite(ctx, t, New(t.TempDir()))
	testutil.Refuse(ctx, t, New(t.TempDir()))
	testutil.ConcurrentPut(ctx, t, New(t.TempDir()))
}

func TestLayout(t *testing.T) {
	var (
		ctx  = context.Background()
		root = t.TempDir()
		s    = New(root)
		data = []byte("hello, world\n")
		id   = dh.ID{Hash: dh.HashBytes(data), Ext: "txt"}
	)

	added, err := s.Put(ctx, id, data)
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Fatal("not added")
	}

	dir := filepath.Join(root, "data", id.Hash.String())
	got, err := os.ReadFile(filepath.Join(dir, id.Hash.String()+".txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	// A second copy under another extension is not written.
	other := dh.ID{Hash: id.Hash, Ext: "md"}
	added, err = s.Put(ctx, other, data)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("second copy added")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("got entries %v, want exactly one file", names)
	}
}

func TestProvenance(t *testing.T) {
	var (
		ctx  = context.Background()
		root = t.TempDir()
		s    = New(root)
		data = []byte("provenance")
		id   = dh.ID{Hash: dh.HashBytes(data), Ext: "txt"}
		peer = "http://peer.example"
	)

	if _, err := s.Put(ctx, id, data); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkProvenance(ctx, id, peer); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(root, "data", id.Hash.String(), dh.HashString(peer).String())
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != peer {
		t.Errorf("got %q, want %q", got, peer)
	}

	// The marker sits beside the content and must not hide it.
	has, err := s.Has(ctx, id.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Error("Has is false")
	}
}

func TestHasMarkerOnly(t *testing.T) {
	var (
		ctx = context.Background()
		s   = New(t.TempDir())
		id  = dh.ID{Hash: dh.HashString("absent"), Ext: "txt"}
	)
	if err := s.MarkProvenance(ctx, id, "http://peer.example"); err != nil {
		t.Fatal(err)
	}
	has, err := s.Has(ctx, id.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("a provenance marker alone counts as content")
	}
}
