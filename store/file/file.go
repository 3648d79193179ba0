// Package file implements a content store as a file hierarchy.
//
// Content with ID <hash>.<ext> lives at data/<hash>/<hash>.<ext> beneath the store's root.
// The same directory may also hold provenance markers,
// each named by the hash of the URL of a peer that supplied the content
// and containing that URL.
package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/dh"
	"github.com/bobg/dh/store"
)

var _ dh.Store = &Store{}

// Store is a file-based implementation of dh.Store.
type Store struct {
	root string

	// Writes of the same hash serialize on locks[hash[0]].
	// Across processes, the atomicity of os.Link does the same job.
	locks [256]sync.Mutex
}

// New produces a new Store storing data beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

// DataDir is the directory holding all content directories.
func (s *Store) DataDir() string {
	return filepath.Join(s.root, "data")
}

func (s *Store) dir(h dh.Hash) string {
	return filepath.Join(s.DataDir(), h.String())
}

// Path is the location of the file for id.
func (s *Store) Path(id dh.ID) string {
	return filepath.Join(s.dir(id.Hash), id.Filename())
}

// Has tells whether any content file for h is present,
// whatever its extension.
func (s *Store) Has(_ context.Context, h dh.Hash) (bool, error) {
	return s.has(h)
}

func (s *Store) has(h dh.Hash) (bool, error) {
	dir := s.dir(h)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "reading dir %s", dir)
	}
	prefix := h.String() + "."
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Get gets the content stored under id.
func (s *Store) Get(_ context.Context, id dh.ID) ([]byte, error) {
	path := s.Path(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, dh.ErrNotFound
	}
	return data, errors.Wrapf(err, "reading %s", path)
}

// Put adds content to the store if no content with the same hash is present.
// The content is written to a temporary file first
// and then linked into place,
// so a partially written file is never visible under its final name.
func (s *Store) Put(_ context.Context, id dh.ID, data []byte) (bool, error) {
	if err := dh.Verify(id, data); err != nil {
		return false, errors.Wrapf(err, "storing %s", id)
	}

	mu := &s.locks[id.Hash[0]]
	mu.Lock()
	defer mu.Unlock()

	ok, err := s.has(id.Hash)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	dir := s.dir(id.Hash)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return false, errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return false, errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpname := tmp.Name()
	defer os.Remove(tmpname)

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		return false, errors.Wrapf(err, "writing data to %s", tmpname)
	}
	if err = tmp.Close(); err != nil {
		return false, errors.Wrapf(err, "closing %s", tmpname)
	}

	path := s.Path(id)
	err = os.Link(tmpname, path)
	if os.IsExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "linking %s to %s", tmpname, path)
	}
	return true, nil
}

// ProvenancePath is the location of the marker recording that peer supplied the content for h.
func (s *Store) ProvenancePath(h dh.Hash, peer string) string {
	return filepath.Join(s.dir(h), dh.HashString(peer).String())
}

// MarkProvenance writes a marker file named by the hash of peer,
// containing peer,
// into the directory of id.
func (s *Store) MarkProvenance(_ context.Context, id dh.ID, peer string) error {
	dir := s.dir(id.Hash)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}
	path := s.ProvenancePath(id.Hash, peer)
	return errors.Wrapf(os.WriteFile(path, []byte(peer), 0644), "writing %s", path)
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (dh.Store, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
