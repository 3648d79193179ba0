// Package mem implements an in-memory host store.
package mem

import (
	"context"
	"sync"

	"github.com/bobg/dh"
	"github.com/bobg/dh/hosts"
)

var _ dh.HostStore = &Store{}

// Store is a memory-based implementation of dh.HostStore.
type Store struct {
	mu    sync.Mutex
	hosts map[dh.Hash][]string
}

// New produces a new Store.
func New() *Store {
	return &Store{hosts: make(map[dh.Hash][]string)}
}

func (s *Store) AddHost(_ context.Context, h dh.Hash, peer string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.hosts[h] {
		if p == peer {
			return false, nil
		}
	}
	s.hosts[h] = append(s.hosts[h], peer)
	return true, nil
}

func (s *Store) Hosts(_ context.Context, h dh.Hash) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.hosts[h]...), nil
}

func init() {
	hosts.Register("mem", func(context.Context, map[string]interface{}) (dh.HostStore, error) {
		return New(), nil
	})
}
