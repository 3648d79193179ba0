package dh

import (
	"strings"

	"github.com/pkg/errors"
)

// ID identifies a piece of content by its claimed hash and a filename extension.
// The claim is only a claim:
// nothing fetched under an ID is trusted until Verify accepts it.
type ID struct {
	Hash Hash
	Ext  string
}

// ParseID parses a filename of the form <hash>.<extension>.
// The filename is split at its first dot;
// everything after it, including any further dots, is the extension.
func ParseID(filename string) (ID, error) {
	filename = strings.TrimSpace(filename)
	i := strings.IndexByte(filename, '.')
	if i < 0 {
		return ID{}, errors.Wrapf(ErrInvalidInput, "no extension in %q", filename)
	}
	ext := filename[i+1:]
	if ext == "" {
		return ID{}, errors.Wrapf(ErrInvalidInput, "empty extension in %q", filename)
	}
	if strings.ContainsAny(ext, `/\`) {
		return ID{}, errors.Wrapf(ErrInvalidInput, "path separator in extension of %q", filename)
	}
	h, err := HashFromHex(filename[:i])
	if err != nil {
		return ID{}, errors.Wrapf(err, "parsing %q", filename)
	}
	return ID{Hash: h, Ext: ext}, nil
}

// Filename is the canonical <hash>.<extension> form of id.
func (id ID) Filename() string {
	return id.Hash.String() + "." + id.Ext
}

func (id ID) String() string {
	return id.Filename()
}
