// Package sqlite3 implements a host store in a Sqlite database.
package sqlite3

import (
	"context"
	"database/sql"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/dh"
	"github.com/bobg/dh/hosts"
)

var _ dh.HostStore = &Store{}

// Store is a Sqlite-based host store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `hosts` table if it does not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS hosts (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  hash TEXT NOT NULL,
  peer TEXT NOT NULL,
  UNIQUE (hash, peer)
);
`

// New produces a new Store using `db` for storage.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// AddHost implements dh.HostStore.
func (s *Store) AddHost(ctx context.Context, h dh.Hash, peer string) (bool, error) {
	const q = `INSERT OR IGNORE INTO hosts (hash, peer) VALUES ($1, $2)`

	res, err := s.db.ExecContext(ctx, q, h.String(), peer)
	if err != nil {
		return false, errors.Wrapf(err, "adding host %s for %s", peer, h)
	}
	aff, err := res.RowsAffected()
	return aff > 0, err
}

// Hosts implements dh.HostStore.
func (s *Store) Hosts(ctx context.Context, h dh.Hash) ([]string, error) {
	const q = `SELECT peer FROM hosts WHERE hash = $1 ORDER BY seq`

	var result []string
	err := sqlutil.ForQueryRows(ctx, s.db, q, h.String(), func(peer string) {
		result = append(result, peer)
	})
	return result, errors.Wrapf(err, "querying hosts of %s", h)
}

func init() {
	hosts.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (dh.HostStore, error) {
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
