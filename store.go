package dh

import "context"

// Store is a local, hash-addressed content store.
// Content is stored under its ID
// and at most one copy is kept per Hash.
type Store interface {
	// Has tells whether content with the given hash is present.
	Has(context.Context, Hash) (bool, error)

	// Get gets the content stored under id,
	// or ErrNotFound.
	Get(context.Context, ID) ([]byte, error)

	// Put stores data under id if no content with id.Hash is present.
	// It returns true iff the data had to be added.
	// Data that does not hash to id.Hash is refused with an error wrapping ErrHashMismatch.
	Put(ctx context.Context, id ID, data []byte) (added bool, err error)

	// MarkProvenance records that peer supplied the content for id.
	// It is informational only.
	MarkProvenance(ctx context.Context, id ID, peer string) error
}

// HostStore records the peers confirmed to serve a given hash.
// Records are append-only:
// a peer once added is never removed.
type HostStore interface {
	// AddHost adds peer to the hosts of h if it is not already there.
	// It returns true iff peer had to be added.
	AddHost(ctx context.Context, h Hash, peer string) (added bool, err error)

	// Hosts returns the known hosts of h,
	// in the order they were added.
	// The result may be empty.
	Hosts(ctx context.Context, h Hash) ([]string, error)
}
