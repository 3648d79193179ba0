// Package sqlite3 implements a ledger store in a Sqlite database.
//
// The tip is the block with the greatest height.
// Unique constraints on height and previous_hash
// keep concurrent writers, even in other processes, from forking the chain.
package sqlite3

import (
	"context"
	"database/sql"
	"sync"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/dh"
	"github.com/bobg/dh/ledger"
)

var _ ledger.Store = &Store{}

// Store is a Sqlite-based ledger store.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Schema is the SQL that New executes.
// It creates the `owners` and `blocks` tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS owners (
  filehash TEXT NOT NULL PRIMARY KEY,
  address TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS blocks (
  block_hash TEXT NOT NULL PRIMARY KEY,
  height INTEGER NOT NULL UNIQUE,
  version TEXT NOT NULL,
  timestamp INTEGER NOT NULL,
  previous_hash TEXT NOT NULL UNIQUE,
  filehash TEXT NOT NULL UNIQUE,
  identity_address TEXT NOT NULL,
  nonce TEXT NOT NULL
);
`

// New produces a new Store using `db` for storage.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Owner implements ledger.Store.
func (s *Store) Owner(ctx context.Context, filehash string) (string, error) {
	const q = `SELECT address FROM owners WHERE filehash = $1`

	var address string
	err := s.db.QueryRowContext(ctx, q, filehash).Scan(&address)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(dh.ErrNotFound, "owner of %s", filehash)
	}
	return address, errors.Wrapf(err, "querying owner of %s", filehash)
}

// PutOwner implements ledger.Store.
func (s *Store) PutOwner(ctx context.Context, filehash, address string) error {
	const q = `INSERT OR IGNORE INTO owners (filehash, address) VALUES ($1, $2)`

	res, err := s.db.ExecContext(ctx, q, filehash, address)
	if err != nil {
		return errors.Wrapf(err, "inserting owner of %s", filehash)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return errors.Wrapf(dh.ErrDuplicate, "owner of %s", filehash)
	}
	return nil
}

// DeleteOwner implements ledger.Store.
func (s *Store) DeleteOwner(ctx context.Context, filehash string) error {
	const q = `DELETE FROM owners WHERE filehash = $1`

	_, err := s.db.ExecContext(ctx, q, filehash)
	return errors.Wrapf(err, "deleting owner of %s", filehash)
}

// Owners implements ledger.Store.
// Records are visited in file hash order.
func (s *Store) Owners(ctx context.Context, f func(filehash, address string) error) error {
	const q = `SELECT filehash, address FROM owners ORDER BY filehash`

	type pair struct{ filehash, address string }
	var pairs []pair
	err := sqlutil.ForQueryRows(ctx, s.db, q, func(filehash, address string) {
		pairs = append(pairs, pair{filehash: filehash, address: address})
	})
	if err != nil {
		return errors.Wrap(err, "querying owners")
	}
	for _, p := range pairs {
		if err := f(p.filehash, p.address); err != nil {
			return err
		}
	}
	return nil
}

// Tip implements ledger.Store.
func (s *Store) Tip(ctx context.Context) (ledger.Tip, error) {
	return tip(ctx, s.db)
}

type queryRower interface {
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func tip(ctx context.Context, db queryRower) (ledger.Tip, error) {
	const q = `SELECT height, block_hash FROM blocks ORDER BY height DESC LIMIT 1`

	var t ledger.Tip
	err := db.QueryRowContext(ctx, q).Scan(&t.Height, &t.Hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Tip{}, nil
	}
	return t, errors.Wrap(err, "querying tip")
}

// PutBlock implements ledger.Store.
// The tip check and the insert happen in one transaction.
func (s *Store) PutBlock(ctx context.Context, b *ledger.Block, height int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	t, err := tip(ctx, tx)
	if err != nil {
		return err
	}
	prev := t.Hash
	if prev == "" {
		prev = ledger.Genesis
	}
	if t.Height != height-1 || prev != b.PreviousHash {
		return errors.Wrapf(ledger.ErrIntegrity, "block at height %d with previous hash %s does not extend tip %d/%s", height, b.PreviousHash, t.Height, prev)
	}

	const q = `
INSERT INTO blocks (block_hash, height, version, timestamp, previous_hash, filehash, identity_address, nonce)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err = tx.ExecContext(ctx, q, b.BlockHash, height, b.Version, b.Timestamp, b.PreviousHash, b.FileHash, b.Address, b.Nonce)
	if err != nil {
		return errors.Wrapf(err, "inserting block %s", b.BlockHash)
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Block implements ledger.Store.
func (s *Store) Block(ctx context.Context, hash string) (*ledger.Block, error) {
	const q = `
SELECT block_hash, version, timestamp, previous_hash, filehash, identity_address, nonce
FROM blocks WHERE block_hash = $1
`
	var b ledger.Block
	err := s.db.QueryRowContext(ctx, q, hash).Scan(&b.BlockHash, &b.Version, &b.Timestamp, &b.PreviousHash, &b.FileHash, &b.Address, &b.Nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(dh.ErrNotFound, "block %s", hash)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "querying block %s", hash)
	}
	return &b, nil
}

// Lock implements ledger.Store.
// It serializes callers in this process only.
// Other processes are kept from forking the chain by the schema's unique constraints.
func (s *Store) Lock(context.Context) (func() error, error) {
	s.mu.Lock()
	return func() error {
		s.mu.Unlock()
		return nil
	}, nil
}

func init() {
	ledger.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (ledger.Store, error) {
		file, ok := conf["file"].(string)
		if !ok {
			return nil, errors.New(`missing "file" parameter`)
		}
		db, err := sql.Open("sqlite3", file)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", file)
		}
		return New(ctx, db)
	})
}
