// Package gcs implements a content store on Google Cloud Storage.
//
// Objects use the same layout as the file store:
// data/<hash>/<hash>.<ext> for content
// and data/<hash>/<sha256(peer)> for provenance markers.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/dh"
	"github.com/bobg/dh/store"
)

var _ dh.Store = &Store{}

// Store is a Google Cloud Storage-based implementation of dh.Store.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

func dirName(h dh.Hash) string {
	return "data/" + h.String() + "/"
}

func objName(id dh.ID) string {
	return dirName(id.Hash) + id.Filename()
}

// Has tells whether any content object for h is present.
func (s *Store) Has(ctx context.Context, h dh.Hash) (bool, error) {
	prefix := dirName(h) + h.String() + "."
	iter := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	_, err := iter.Next()
	if stderrs.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "listing objects with prefix %s", prefix)
	}
	return true, nil
}

// Get gets the content stored under id.
func (s *Store) Get(ctx context.Context, id dh.ID) ([]byte, error) {
	name := objName(id)
	r, err := s.bucket.Object(name).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, dh.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading info of object %s", name)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	return b, errors.Wrapf(err, "reading contents of object %s", name)
}

// Put adds content to the store if it wasn't already present.
// The object is written with a does-not-exist precondition,
// so concurrent writers of the same ID cannot clobber each other.
func (s *Store) Put(ctx context.Context, id dh.ID, data []byte) (bool, error) {
	if err := dh.Verify(id, data); err != nil {
		return false, errors.Wrapf(err, "storing %s", id)
	}

	ok, err := s.Has(ctx, id.Hash)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	var (
		name = objName(id)
		obj  = s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true})
		w    = obj.NewWriter(ctx)
	)
	if _, err = w.Write(data); err != nil {
		w.Close()
		return false, errors.Wrapf(err, "writing object %s", name)
	}
	err = w.Close()
	var e *googleapi.Error
	if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "writing object %s", name)
	}
	return true, nil
}

// MarkProvenance writes a marker object named by the hash of peer.
func (s *Store) MarkProvenance(ctx context.Context, id dh.ID, peer string) error {
	var (
		name = dirName(id.Hash) + dh.HashString(peer).String()
		w    = s.bucket.Object(name).NewWriter(ctx)
	)
	if _, err := io.WriteString(w, peer); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing object %s", name)
	}
	return errors.Wrapf(w.Close(), "writing object %s", name)
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (dh.Store, error) {
		var options []option.ClientOption
		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		options = append(options, option.WithCredentialsFile(creds))
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}
