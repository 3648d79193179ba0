package dh

import "fmt"

// MismatchError is the error produced by Verify
// when content does not hash to the identifier it was fetched under.
type MismatchError struct {
	Want, Got Hash
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("hash mismatch: want %s, got %s", e.Want, e.Got)
}

// Unwrap makes errors.Is(err, ErrHashMismatch) true for a *MismatchError.
func (e *MismatchError) Unwrap() error {
	return ErrHashMismatch
}

// Verify recomputes the hash of data and checks it against id.
// It returns nil if they agree and a *MismatchError if they don't.
// Data that fails verification must be discarded by the caller.
func Verify(id ID, data []byte) error {
	got := HashBytes(data)
	if got != id.Hash {
		return &MismatchError{Want: id.Hash, Got: got}
	}
	return nil
}
