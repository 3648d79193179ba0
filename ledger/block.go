package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gibson042/canonicaljson-go"
	"github.com/pkg/errors"

	"github.com/bobg/dh"
)

// Version is the version string of newly created blocks.
const Version = "1.0"

// NonceLen is the number of random bytes in a block nonce.
const NonceLen = 16

// Genesis is the PreviousHash of the first block in a chain.
var Genesis = strings.Repeat("0", dh.HashLen)

// Block is a single notarized ownership claim,
// linked to the block before it.
type Block struct {
	BlockHash    string `json:"block_hash"`
	Version      string `json:"version"`
	Timestamp    int64  `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	FileHash     string `json:"filehash"`
	Address      string `json:"identity_address"`
	Nonce        string `json:"nonce"`
}

// The fields of a block that its hash covers.
type payload struct {
	Version      string `json:"version"`
	Timestamp    int64  `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	FileHash     string `json:"filehash"`
	Address      string `json:"identity_address"`
	Nonce        string `json:"nonce"`
}

// ComputeHash computes the hash of b:
// the SHA-256 of the canonical JSON encoding of all fields but BlockHash.
func (b *Block) ComputeHash() (string, error) {
	p := payload{
		Version:      b.Version,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		FileHash:     b.FileHash,
		Address:      b.Address,
		Nonce:        b.Nonce,
	}
	j, err := canonicaljson.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "encoding block")
	}
	return dh.HashBytes(j).String(), nil
}

func newNonce() (string, error) {
	var buf [NonceLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.Wrap(err, "generating nonce")
	}
	return hex.EncodeToString(buf[:]), nil
}
