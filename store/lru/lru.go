// Package lru implements a content store that acts as a least-recently-used cache for a nested store.
package lru

import (
	"context"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/dh"
	"github.com/bobg/dh/store"
)

var _ dh.Store = &Store{}

// Store implements a memory-based least-recently-used cache for a content store.
// Only positive answers are cached:
// content, once present, never goes away.
// Writes pass through to the underlying store.
type Store struct {
	c *lru.Cache // dh.ID -> []byte, dh.Hash -> struct{}
	s dh.Store

	// MaxBlob is the size of the largest blob that will be cached.
	// Larger blobs are always read from the nested store.
	MaxBlob int
}

// DefaultMaxBlob is the default value of Store.MaxBlob.
const DefaultMaxBlob = 1 << 20

// New produces a new Store backed by `s` and caching up to `size` entries.
func New(s dh.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c, MaxBlob: DefaultMaxBlob}, err
}

// Has tells whether content for h is present.
func (s *Store) Has(ctx context.Context, h dh.Hash) (bool, error) {
	if _, ok := s.c.Get(h); ok {
		return true, nil
	}
	ok, err := s.s.Has(ctx, h)
	if err != nil {
		return false, err
	}
	if ok {
		s.c.Add(h, struct{}{})
	}
	return ok, nil
}

// Get gets the content stored under id.
func (s *Store) Get(ctx context.Context, id dh.ID) ([]byte, error) {
	if got, ok := s.c.Get(id); ok {
		return got.([]byte), nil
	}
	b, err := s.s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache(id, b)
	return b, nil
}

// Put adds content to the nested store if it wasn't already present.
func (s *Store) Put(ctx context.Context, id dh.ID, data []byte) (bool, error) {
	if _, ok := s.c.Get(id.Hash); ok {
		if err := dh.Verify(id, data); err != nil {
			return false, errors.Wrapf(err, "storing %s", id)
		}
		return false, nil
	}
	added, err := s.s.Put(ctx, id, data)
	if err != nil {
		return false, err
	}
	s.c.Add(id.Hash, struct{}{})
	if added {
		s.cache(id, data)
	}
	return added, nil
}

func (s *Store) cache(id dh.ID, b []byte) {
	if len(b) <= s.MaxBlob {
		s.c.Add(id, b)
	}
}

// MarkProvenance passes through to the nested store.
func (s *Store) MarkProvenance(ctx context.Context, id dh.ID, peer string) error {
	return s.s.MarkProvenance(ctx, id, peer)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (dh.Store, error) {
		size, ok := conf["size"].(json.Number)
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		n, err := size.Int64()
		if err != nil {
			return nil, errors.Wrapf(err, "parsing size %v", size)
		}
		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, int(n))
	})
}
