// Package redis implements a host store in Redis.
//
// The hosts of each hash are a sorted set whose scores come from a shared counter,
// so they list in the order they were added.
package redis

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bobg/dh"
	"github.com/bobg/dh/hosts"
)

var _ dh.HostStore = &Store{}

// DefaultPrefix is the default prefix for Store keys.
const DefaultPrefix = "dh:hosts:"

// Store is a Redis-based host store.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
}

// New produces a new Store whose keys begin with prefix.
func New(rdb goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(h dh.Hash) string {
	return s.prefix + h.String()
}

func (s *Store) seqKey() string {
	return s.prefix + "seq"
}

// AddHost implements dh.HostStore.
func (s *Store) AddHost(ctx context.Context, h dh.Hash, peer string) (bool, error) {
	key := s.key(h)

	// Existing hosts keep their sequence number.
	_, err := s.rdb.ZScore(ctx, key, peer).Result()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, goredis.Nil) {
		return false, errors.Wrapf(err, "checking host %s for %s", peer, h)
	}

	seq, err := s.rdb.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return false, errors.Wrap(err, "incrementing host sequence")
	}
	n, err := s.rdb.ZAddNX(ctx, key, goredis.Z{Score: float64(seq), Member: peer}).Result()
	if err != nil {
		return false, errors.Wrapf(err, "adding host %s for %s", peer, h)
	}
	return n > 0, nil
}

// Hosts implements dh.HostStore.
func (s *Store) Hosts(ctx context.Context, h dh.Hash) ([]string, error) {
	result, err := s.rdb.ZRange(ctx, s.key(h), 0, -1).Result()
	return result, errors.Wrapf(err, "querying hosts of %s", h)
}

func init() {
	hosts.Register("redis", func(_ context.Context, conf map[string]interface{}) (dh.HostStore, error) {
		addr, ok := conf["addr"].(string)
		if !ok {
			return nil, errors.New(`missing "addr" parameter`)
		}
		opts := &goredis.Options{Addr: addr}
		if pw, ok := conf["password"].(string); ok {
			opts.Password = pw
		}
		if db, ok := conf["db"].(json.Number); ok {
			n, err := db.Int64()
			if err != nil {
				return nil, errors.Wrapf(err, "parsing db %v", db)
			}
			opts.DB = int(n)
		}
		prefix, _ := conf["prefix"].(string)
		return New(goredis.NewClient(opts), prefix), nil
	})
}
