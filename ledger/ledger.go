// Package ledger implements a notary:
// an append-only chain of blocks,
// each recording that an identity address claims ownership of a file hash.
//
// Each block carries the hash of the block before it,
// and the first carries Genesis.
// A file hash can be claimed only once.
// Its ownership record and its block are created together,
// and if the block cannot be written the ownership record is removed again.
//
// The last block is found through a tip pointer
// (a height and a block hash)
// that is advanced only when a block is written.
package ledger

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh"
)

// ErrIntegrity is the error produced when a stored chain fails verification.
var ErrIntegrity = errors.New("ledger integrity violation")

// Tip identifies the last block of a chain.
// The zero Tip denotes an empty chain.
type Tip struct {
	Height int64  `json:"height"`
	Hash   string `json:"hash"`
}

// Store is the persistence layer of a Ledger.
type Store interface {
	// Owner returns the address owning filehash,
	// or an error wrapping dh.ErrNotFound.
	Owner(ctx context.Context, filehash string) (string, error)

	// PutOwner records address as the owner of filehash.
	// If filehash already has an owner,
	// it returns an error wrapping dh.ErrDuplicate and changes nothing.
	PutOwner(ctx context.Context, filehash, address string) error

	// DeleteOwner removes the ownership record for filehash.
	// It is used only to undo a PutOwner whose block could not be written.
	DeleteOwner(ctx context.Context, filehash string) error

	// Owners calls f for each ownership record.
	Owners(ctx context.Context, f func(filehash, address string) error) error

	// Tip returns the current tip.
	Tip(context.Context) (Tip, error)

	// PutBlock stores b as the block at the given height
	// and makes it the tip.
	// The previous tip must be at height-1 with hash b.PreviousHash.
	PutBlock(ctx context.Context, b *Block, height int64) error

	// Block returns the block with the given hash,
	// or an error wrapping dh.ErrNotFound.
	Block(ctx context.Context, hash string) (*Block, error)

	// Lock acquires exclusive access to the ledger,
	// across processes where the store supports that.
	// The caller must call the returned function to release it.
	Lock(context.Context) (unlock func() error, err error)
}

var (
	legacyAddrRegex = regexp.MustCompile(`^[13][a-km-zA-HJ-NP-Z1-9]{25,34}$`)
	bech32AddrRegex = regexp.MustCompile(`(?i)^bc1[a-z0-9]{39,59}$`)
)

// ValidAddress tells whether s has the shape of a Bitcoin address.
// It does not check the address's checksum.
func ValidAddress(s string) bool {
	return legacyAddrRegex.MatchString(s) || bech32AddrRegex.MatchString(s)
}

// Ledger is a notary chain kept in a Store.
type Ledger struct {
	Store Store

	// ValidAddress, if set, replaces the package-level ValidAddress.
	ValidAddress func(string) bool

	// Now, if set, replaces time.Now.
	Now func() time.Time
}

// New produces a Ledger with default address validation.
func New(s Store) *Ledger {
	return &Ledger{Store: s}
}

func (l *Ledger) validAddress(s string) bool {
	if l.ValidAddress != nil {
		return l.ValidAddress(s)
	}
	return ValidAddress(s)
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Submit records address as the owner of filehash
// and appends a block attesting to it.
// It returns an error wrapping dh.ErrInvalidInput for malformed arguments,
// dh.ErrDuplicate if filehash is already owned,
// or dh.ErrIO if the new block could not be stored.
// In all those cases the ledger is unchanged.
func (l *Ledger) Submit(ctx context.Context, address, filehash string) (*Block, error) {
	address = strings.TrimSpace(address)
	filehash = strings.ToLower(strings.TrimSpace(filehash))

	if !dh.ValidHash(filehash) {
		return nil, errors.Wrapf(dh.ErrInvalidInput, "file hash %q", filehash)
	}
	if !l.validAddress(address) {
		return nil, errors.Wrapf(dh.ErrInvalidInput, "address %q", address)
	}

	unlock, err := l.Store.Lock(ctx)
	if err != nil {
		return nil, errors.Wrapf(dh.ErrIO, "locking ledger: %s", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			log.Errorf("unlocking ledger: %s", err)
		}
	}()

	if err := l.Store.PutOwner(ctx, filehash, address); err != nil {
		if errors.Is(err, dh.ErrDuplicate) {
			return nil, err
		}
		return nil, errors.Wrapf(dh.ErrIO, "recording owner of %s: %s", filehash, err)
	}

	b, err := l.appendBlock(ctx, address, filehash)
	if err != nil {
		if err2 := l.Store.DeleteOwner(ctx, filehash); err2 != nil {
			log.Errorf("rolling back owner of %s: %s", filehash, err2)
		}
		return nil, errors.Wrapf(dh.ErrIO, "appending block for %s: %s", filehash, err)
	}
	return b, nil
}

func (l *Ledger) appendBlock(ctx context.Context, address, filehash string) (*Block, error) {
	tip, err := l.Store.Tip(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting tip")
	}
	prev := tip.Hash
	if prev == "" {
		prev = Genesis
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	b := &Block{
		Version:      Version,
		Timestamp:    l.now().Unix(),
		PreviousHash: prev,
		FileHash:     filehash,
		Address:      address,
		Nonce:        nonce,
	}
	if b.BlockHash, err = b.ComputeHash(); err != nil {
		return nil, err
	}
	if err = l.Store.PutBlock(ctx, b, tip.Height+1); err != nil {
		return nil, errors.Wrapf(err, "storing block %s", b.BlockHash)
	}
	return b, nil
}

// Owner returns the address owning filehash,
// or an error wrapping dh.ErrNotFound.
func (l *Ledger) Owner(ctx context.Context, filehash string) (string, error) {
	filehash = strings.ToLower(strings.TrimSpace(filehash))
	if !dh.ValidHash(filehash) {
		return "", errors.Wrapf(dh.ErrInvalidInput, "file hash %q", filehash)
	}
	return l.Store.Owner(ctx, filehash)
}

// Block returns the block with the given hash,
// or an error wrapping dh.ErrNotFound.
func (l *Ledger) Block(ctx context.Context, hash string) (*Block, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if !dh.ValidHash(hash) {
		return nil, errors.Wrapf(dh.ErrInvalidInput, "block hash %q", hash)
	}
	return l.Store.Block(ctx, hash)
}

// Chain returns all blocks, first to last.
// A tip pointer that is inconsistent with the blocks it names
// is reported as an error wrapping ErrIntegrity.
func (l *Ledger) Chain(ctx context.Context) ([]*Block, error) {
	tip, err := l.Store.Tip(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting tip")
	}
	switch {
	case tip.Height < 0:
		return nil, errors.Wrapf(ErrIntegrity, "tip height %d", tip.Height)
	case tip.Height == 0 && tip.Hash != "" && tip.Hash != Genesis:
		return nil, errors.Wrapf(ErrIntegrity, "tip at height 0 names block %s", tip.Hash)
	}

	var (
		result []*Block
		hash   = tip.Hash
	)
	for height := tip.Height; height > 0; height-- {
		if hash == Genesis || hash == "" {
			return nil, errors.Wrapf(ErrIntegrity, "chain ends below height %d, tip is at %d", height, tip.Height)
		}
		if !dh.ValidHash(hash) {
			return nil, errors.Wrapf(ErrIntegrity, "malformed block hash %q at height %d", hash, height)
		}
		b, err := l.Store.Block(ctx, hash)
		if err != nil {
			return nil, errors.Wrapf(err, "getting block %s at height %d", hash, height)
		}
		result = append(result, b)
		hash = b.PreviousHash
	}
	if tip.Height > 0 && hash != Genesis {
		return nil, errors.Wrapf(ErrIntegrity, "first block has previous hash %s", hash)
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// Verify checks the whole ledger:
// that every block's hash is correct,
// that the blocks are linked back to Genesis,
// and that ownership records and blocks correspond one to one.
// Problems are reported as errors wrapping ErrIntegrity.
func (l *Ledger) Verify(ctx context.Context) error {
	chain, err := l.Chain(ctx)
	if errors.Is(err, dh.ErrNotFound) {
		return errors.Wrapf(ErrIntegrity, "%s", err)
	}
	if err != nil {
		return err
	}

	var (
		prev    = Genesis
		claimed = make(map[string]string)
	)
	for i, b := range chain {
		h, err := b.ComputeHash()
		if err != nil {
			return err
		}
		if h != b.BlockHash {
			return errors.Wrapf(ErrIntegrity, "block %d: computed hash %s, stored %s", i+1, h, b.BlockHash)
		}
		if b.PreviousHash != prev {
			return errors.Wrapf(ErrIntegrity, "block %d: previous hash %s, want %s", i+1, b.PreviousHash, prev)
		}
		if _, ok := claimed[b.FileHash]; ok {
			return errors.Wrapf(ErrIntegrity, "block %d: file hash %s claimed twice", i+1, b.FileHash)
		}
		claimed[b.FileHash] = b.Address
		prev = b.BlockHash
	}

	var owners int
	err = l.Store.Owners(ctx, func(filehash, address string) error {
		owners++
		want, ok := claimed[filehash]
		if !ok {
			return errors.Wrapf(ErrIntegrity, "owner record for %s has no block", filehash)
		}
		if want != address {
			return errors.Wrapf(ErrIntegrity, "owner of %s is %s, block says %s", filehash, address, want)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if owners != len(claimed) {
		return errors.Wrapf(ErrIntegrity, "%d owner records for %d blocks", owners, len(claimed))
	}
	return nil
}
