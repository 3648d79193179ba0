package dh

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// Hash is the identity of a piece of content: the sha256 hash of its bytes.
type Hash [sha256.Size]byte

// Zero is the zero value of a Hash.
var Zero Hash

// HashLen is the length of the hex encoding of a Hash.
const HashLen = 2 * sha256.Size

// HashBytes computes the Hash of b.
func HashBytes(b []byte) Hash {
	return sha256.Sum256(b)
}

// HashString computes the Hash of the bytes of s.
func HashString(s string) Hash {
	return HashBytes([]byte(s))
}

// String returns the lowercase hex encoding of h.
// It is always HashLen characters long.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero tells whether h is the zero Hash,
// which stands for "no hash" rather than the hash of any content.
func (h Hash) IsZero() bool {
	return h == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ValidHash tells whether s is exactly HashLen hex digits.
// Upper- and lowercase digits are both accepted.
func ValidHash(s string) bool {
	if len(s) != HashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case '0' <= c && c <= '9':
		case 'a' <= c && c <= 'f':
		case 'A' <= c && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// HashFromHex parses the hex encoding of a Hash.
// Parsing is case-insensitive.
func HashFromHex(s string) (Hash, error) {
	var out Hash
	if !ValidHash(s) {
		return out, errors.Wrapf(ErrInvalidInput, "bad hash %q", s)
	}
	_, err := hex.Decode(out[:], []byte(strings.ToLower(s)))
	return out, err
}
