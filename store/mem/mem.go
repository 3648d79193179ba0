// Package mem implements an in-memory content store.
package mem

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/dh"
	"github.com/bobg/dh/store"
)

var _ dh.Store = &Store{}

// Store is a memory-based implementation of dh.Store.
type Store struct {
	mu         sync.Mutex
	exts       map[dh.Hash]string
	blobs      map[dh.Hash][]byte
	provenance map[dh.Hash][]string
}

// New produces a new Store.
func New() *Store {
	return &Store{
		exts:       make(map[dh.Hash]string),
		blobs:      make(map[dh.Hash][]byte),
		provenance: make(map[dh.Hash][]string),
	}
}

// Has tells whether content for h is present.
func (s *Store) Has(_ context.Context, h dh.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.blobs[h]
	return ok, nil
}

// Get gets the content stored under id.
func (s *Store) Get(_ context.Context, id dh.ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[id.Hash]
	if !ok || s.exts[id.Hash] != id.Ext {
		return nil, dh.ErrNotFound
	}
	return b, nil
}

// Put adds content to the store if it wasn't already present.
func (s *Store) Put(_ context.Context, id dh.ID, data []byte) (bool, error) {
	if err := dh.Verify(id, data); err != nil {
		return false, errors.Wrapf(err, "storing %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id.Hash]; ok {
		return false, nil
	}
	s.blobs[id.Hash] = append([]byte(nil), data...)
	s.exts[id.Hash] = id.Ext
	return true, nil
}

// MarkProvenance records peer as a supplier of id.
func (s *Store) MarkProvenance(_ context.Context, id dh.ID, peer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.provenance[id.Hash] {
		if p == peer {
			return nil
		}
	}
	s.provenance[id.Hash] = append(s.provenance[id.Hash], peer)
	return nil
}

// Provenance returns the peers recorded by MarkProvenance for h.
func (s *Store) Provenance(h dh.Hash) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.provenance[h]...)
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (dh.Store, error) {
		return New(), nil
	})
}
