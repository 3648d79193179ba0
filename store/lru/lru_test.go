package lru

import (
	"context"
	"testing"

	"github.com/bobg/dh"
	"github.com/bobg/dh/store/mem"
	"github.com/bobg/dh/testutil"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	for _, f := range []func(context.Context, *testing.T, dh.Store){testutil.ReadWrite, testutil.Refuse, testutil.ConcurrentPut} {
		s, err := New(mem.New(), 1000)
		if err != nil {
			t.Fatal(err)
		}
		f(ctx, t, s)
	}
}

func TestCachedPutStillVerifies(t *testing.T) {
	var (
		ctx  = context.Background()
		data = []byte("cached")
		id   = dh.ID{Hash: dh.HashBytes(data), Ext: "txt"}
	)
	s, err := New(mem.New(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = s.Put(ctx, id, data); err != nil {
		t.Fatal(err)
	}
	if _, err = s.Put(ctx, id, []byte("not cached")); err == nil {
		t.Error("mismatched content accepted")
	}
}
