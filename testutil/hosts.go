package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/dh"
)

// Hosts tests a HostStore implementation:
// hosts come back in the order added,
// duplicates are ignored,
// and hashes do not interfere with each other.
func Hosts(ctx context.Context, t *testing.T, hs dh.HostStore) {
	var (
		h1 = dh.HashString("one")
		h2 = dh.HashString("two")
	)

	got, err := hs.Hosts(ctx, h1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v for a fresh hash, want nothing", got)
	}

	steps := []struct {
		h         dh.Hash
		peer      string
		wantAdded bool
	}{
		{h: h1, peer: "http://a.example", wantAdded: true},
		{h: h1, peer: "http://b.example", wantAdded: true},
		{h: h1, peer: "http://a.example", wantAdded: false},
		{h: h2, peer: "http://b.example", wantAdded: true},
	}
	for i, step := range steps {
		added, err := hs.AddHost(ctx, step.h, step.peer)
		if err != nil {
			t.Fatalf("step %d: %s", i, err)
		}
		if added != step.wantAdded {
			t.Errorf("step %d: got added=%v, want %v", i, added, step.wantAdded)
		}
	}

	check := func(h dh.Hash, want []string) {
		got, err := hs.Hosts(ctx, h)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("hosts of %s mismatch (-want +got):\n%s", h, diff)
		}
	}
	check(h1, []string{"http://a.example", "http://b.example"})
	check(h2, []string{"http://b.example"})
}

// ConcurrentHosts adds the same peers for one hash from many goroutines
// and checks that each appears exactly once.
func ConcurrentHosts(ctx context.Context, t *testing.T, hs dh.HostStore) {
	var (
		h     = dh.HashString("concurrent")
		peers = []string{"http://a.example", "http://b.example", "http://c.example"}
		wg    sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		for _, peer := range peers {
			wg.Add(1)
			go func(peer string) {
				defer wg.Done()
				if _, err := hs.AddHost(ctx, h, peer); err != nil {
					t.Error(err)
				}
			}(peer)
		}
	}
	wg.Wait()

	got, err := hs.Hosts(ctx, h)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]int)
	for _, p := range got {
		seen[p]++
	}
	for _, p := range peers {
		if seen[p] != 1 {
			t.Errorf("peer %s appears %d times, want 1", p, seen[p])
		}
	}
	if len(got) != len(peers) {
		t.Errorf("got %d hosts, want %d", len(got), len(peers))
	}
}
