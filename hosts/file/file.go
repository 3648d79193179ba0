// Package file implements a host store as a directory of text files.
//
// The hosts of hash H are listed in servers/H.txt beneath the store's root,
// one peer URL per line,
// in the order they were confirmed.
package file

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bobg/flock"
	"github.com/google/renameio"
	"github.com/pkg/errors"

	"github.com/bobg/dh"
	"github.com/bobg/dh/hosts"
)

var _ dh.HostStore = &Store{}

// Store is a file-based implementation of dh.HostStore.
type Store struct {
	root    string
	mu      sync.Mutex // serializes writers in this process
	flocker flock.Locker
}

// New produces a new Store keeping its files beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

// Dir is the directory holding the per-hash files.
func (s *Store) Dir() string {
	return filepath.Join(s.root, "servers")
}

// Path is the file listing the hosts of h.
func (s *Store) Path(h dh.Hash) string {
	return filepath.Join(s.Dir(), h.String()+".txt")
}

func (s *Store) lockPath() string {
	return filepath.Join(s.Dir(), "LOCK")
}

// Serializes writers across processes.
// Caller must hold s.mu.
func (s *Store) lock() error {
	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", s.Dir())
	}
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "creating %s", s.lockPath())
	}
	f.Close()
	return errors.Wrapf(s.flocker.Lock(s.lockPath()), "locking %s", s.lockPath())
}

func (s *Store) unlock() error {
	return s.flocker.Unlock(s.lockPath())
}

// AddHost appends peer to the file for h if it is not already listed there.
// The file is replaced atomically.
func (s *Store) AddHost(_ context.Context, h dh.Hash, peer string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()

	existing, err := s.hosts(h)
	if err != nil {
		return false, err
	}
	for _, p := range existing {
		if p == peer {
			return false, nil
		}
	}

	buf := new(bytes.Buffer)
	for _, p := range append(existing, peer) {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	path := s.Path(h)
	err = renameio.WriteFile(path, buf.Bytes(), 0644)
	return err == nil, errors.Wrapf(err, "writing %s", path)
}

// Hosts reads the hosts of h.
func (s *Store) Hosts(_ context.Context, h dh.Hash) ([]string, error) {
	return s.hosts(h)
}

func (s *Store) hosts(h dh.Hash) ([]string, error) {
	path := s.Path(h)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	var result []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			result = append(result, line)
		}
	}
	return result, errors.Wrapf(sc.Err(), "reading %s", path)
}

func init() {
	hosts.Register("file", func(_ context.Context, conf map[string]interface{}) (dh.HostStore, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
