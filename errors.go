package dh

import "errors"

var (
	// ErrInvalidInput means a malformed identifier, hash, or address.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNetwork means a peer was unreachable, timed out, or answered with a non-OK status.
	ErrNetwork = errors.New("network error")

	// ErrHashMismatch means fetched bytes failed verification.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrIO means a local storage failure.
	ErrIO = errors.New("i/o error")

	// ErrDuplicate means a record already exists and was not overwritten.
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound is the error returned when a Store or HostStore lacks the requested item.
	ErrNotFound = errors.New("not found")
)
