// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh"
	"github.com/bobg/dh/store"
)

var _ dh.Store = &Store{}

type Store struct {
	s      dh.Store
	logger log.FieldLogger
}

// New produces a Store logging to logger.
// If logger is nil, the standard logrus logger is used.
func New(s dh.Store, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{s: s, logger: logger}
}

func (s *Store) Has(ctx context.Context, h dh.Hash) (bool, error) {
	ok, err := s.s.Has(ctx, h)
	l := s.logger.WithField("hash", h)
	if err != nil {
		l.WithError(err).Error("Has")
	} else {
		l.Debugf("Has: %v", ok)
	}
	return ok, err
}

func (s *Store) Get(ctx context.Context, id dh.ID) ([]byte, error) {
	b, err := s.s.Get(ctx, id)
	l := s.logger.WithField("id", id)
	if err != nil {
		l.WithError(err).Error("Get")
	} else {
		l.Debugf("Get: %d bytes", len(b))
	}
	return b, err
}

func (s *Store) Put(ctx context.Context, id dh.ID, data []byte) (bool, error) {
	added, err := s.s.Put(ctx, id, data)
	l := s.logger.WithField("id", id)
	if err != nil {
		l.WithError(err).Error("Put")
	} else {
		l.Infof("Put %d bytes, added=%v", len(data), added)
	}
	return added, err
}

func (s *Store) MarkProvenance(ctx context.Context, id dh.ID, peer string) error {
	err := s.s.MarkProvenance(ctx, id, peer)
	l := s.logger.WithFields(log.Fields{"id": id, "peer": peer})
	if err != nil {
		l.WithError(err).Warn("MarkProvenance")
	} else {
		l.Debug("MarkProvenance")
	}
	return err
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (dh.Store, error) {
		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, nil), nil
	})
}
