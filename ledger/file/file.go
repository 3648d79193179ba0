// Package file implements a ledger store as a file hierarchy.
//
// Beneath the store's root,
// each block lives in blocks/<block hash>.json
// and each ownership record in files_ownership/<file hash>.txt,
// containing the owner's address.
// The tip pointer is blocks/TIP.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bobg/flock"
	"github.com/google/renameio"
	"github.com/pkg/errors"

	"github.com/bobg/dh"
	"github.com/bobg/dh/ledger"
)

var _ ledger.Store = &Store{}

// Store is a file-based implementation of ledger.Store.
type Store struct {
	root    string
	mu      sync.Mutex
	flocker flock.Locker
}

// New produces a new Store keeping its files beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) blocksDir() string {
	return filepath.Join(s.root, "blocks")
}

func (s *Store) ownersDir() string {
	return filepath.Join(s.root, "files_ownership")
}

// BlockPath is the location of the block with the given hash.
func (s *Store) BlockPath(hash string) string {
	return filepath.Join(s.blocksDir(), hash+".json")
}

// OwnerPath is the location of the ownership record for filehash.
func (s *Store) OwnerPath(filehash string) string {
	return filepath.Join(s.ownersDir(), filehash+".txt")
}

func (s *Store) tipPath() string {
	return filepath.Join(s.blocksDir(), "TIP")
}

func (s *Store) lockPath() string {
	return filepath.Join(s.blocksDir(), "LOCK")
}

// Owner implements ledger.Store.
func (s *Store) Owner(_ context.Context, filehash string) (string, error) {
	path := s.OwnerPath(filehash)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", errors.Wrapf(dh.ErrNotFound, "owner of %s", filehash)
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	return strings.TrimSpace(string(data)), nil
}

// PutOwner implements ledger.Store.
// The record file is created exclusively,
// so an existing record is never overwritten.
func (s *Store) PutOwner(_ context.Context, filehash, address string) error {
	if err := os.MkdirAll(s.ownersDir(), 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", s.ownersDir())
	}
	path := s.OwnerPath(filehash)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return errors.Wrapf(dh.ErrDuplicate, "owner of %s", filehash)
	}
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if _, err = f.WriteString(address); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Wrapf(err, "writing %s", path)
	}
	if err = f.Close(); err != nil {
		os.Remove(path)
		return errors.Wrapf(err, "closing %s", path)
	}
	return nil
}

// DeleteOwner implements ledger.Store.
func (s *Store) DeleteOwner(_ context.Context, filehash string) error {
	path := s.OwnerPath(filehash)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(err, "removing %s", path)
}

// Owners implements ledger.Store.
// Records are visited in file hash order.
func (s *Store) Owners(ctx context.Context, f func(filehash, address string) error) error {
	entries, err := os.ReadDir(s.ownersDir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", s.ownersDir())
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		filehash := strings.TrimSuffix(name, ".txt")
		address, err := s.Owner(ctx, filehash)
		if err != nil {
			return err
		}
		if err = f(filehash, address); err != nil {
			return err
		}
	}
	return nil
}

// Tip implements ledger.Store.
func (s *Store) Tip(context.Context) (ledger.Tip, error) {
	var tip ledger.Tip
	path := s.tipPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return tip, nil
	}
	if err != nil {
		return tip, errors.Wrapf(err, "reading %s", path)
	}
	err = json.Unmarshal(data, &tip)
	return tip, errors.Wrapf(err, "decoding %s", path)
}

// PutBlock implements ledger.Store.
// The block file is written first and the tip file replaced after,
// both atomically.
// If the tip cannot be replaced the block file is removed.
func (s *Store) PutBlock(ctx context.Context, b *ledger.Block, height int64) error {
	tip, err := s.Tip(ctx)
	if err != nil {
		return err
	}
	prev := tip.Hash
	if prev == "" {
		prev = ledger.Genesis
	}
	if tip.Height != height-1 || prev != b.PreviousHash {
		return errors.Wrapf(ledger.ErrIntegrity, "block at height %d with previous hash %s does not extend tip %d/%s", height, b.PreviousHash, tip.Height, prev)
	}

	if err = os.MkdirAll(s.blocksDir(), 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", s.blocksDir())
	}

	j, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding block")
	}
	path := s.BlockPath(b.BlockHash)
	if _, err = os.Stat(path); err == nil {
		return errors.Wrapf(dh.ErrDuplicate, "block %s", b.BlockHash)
	}
	if err = renameio.WriteFile(path, j, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	j, err = json.Marshal(ledger.Tip{Height: height, Hash: b.BlockHash})
	if err != nil {
		os.Remove(path)
		return errors.Wrap(err, "encoding tip")
	}
	if err = renameio.WriteFile(s.tipPath(), j, 0644); err != nil {
		os.Remove(path)
		return errors.Wrapf(err, "writing %s", s.tipPath())
	}
	return nil
}

// Block implements ledger.Store.
func (s *Store) Block(_ context.Context, hash string) (*ledger.Block, error) {
	path := s.BlockPath(hash)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(dh.ErrNotFound, "block %s", hash)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var b ledger.Block
	err = json.Unmarshal(data, &b)
	return &b, errors.Wrapf(err, "decoding %s", path)
}

// Lock implements ledger.Store.
// It serializes callers in this process with a mutex
// and across processes with a file lock on blocks/LOCK.
func (s *Store) Lock(context.Context) (func() error, error) {
	s.mu.Lock()

	if err := os.MkdirAll(s.blocksDir(), 0755); err != nil {
		s.mu.Unlock()
		return nil, errors.Wrapf(err, "ensuring path %s exists", s.blocksDir())
	}
	lockPath := s.lockPath()
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		s.mu.Unlock()
		return nil, errors.Wrapf(err, "creating %s", lockPath)
	}
	f.Close()
	if err = s.flocker.Lock(lockPath); err != nil {
		s.mu.Unlock()
		return nil, errors.Wrapf(err, "locking %s", lockPath)
	}

	return func() error {
		defer s.mu.Unlock()
		return errors.Wrapf(s.flocker.Unlock(lockPath), "unlocking %s", lockPath)
	}, nil
}

func init() {
	ledger.Register("file", func(_ context.Context, conf map[string]interface{}) (ledger.Store, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
