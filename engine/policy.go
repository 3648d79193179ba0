package engine

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/dh"
)

// Policy says what to do with the remaining peers
// once one of them has supplied verified content for an identifier.
type Policy int

const (
	// AllMatches checks every peer for every identifier,
	// building a complete list of hosts.
	AllMatches Policy = iota

	// FirstMatch stops scanning an identifier at its first verified copy.
	// Which peer that is depends on timing.
	FirstMatch
)

func (p Policy) String() string {
	switch p {
	case AllMatches:
		return "all"
	case FirstMatch:
		return "first"
	}
	return "unknown"
}

// ParsePolicy parses "all" or "first".
// The empty string means AllMatches.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AllMatches, nil
	case "first":
		return FirstMatch, nil
	}
	return 0, errors.Wrapf(dh.ErrInvalidInput, "unknown policy %q", s)
}

// State is the final disposition of one input identifier.
type State int

const (
	// NotFound means no peer supplied content that verified, and none supplied content that didn't.
	NotFound State = iota

	// Verified means at least one peer supplied content that verified.
	Verified

	// Rejected means at least one peer supplied content that failed verification
	// and none supplied content that verified.
	Rejected

	// Failed means verified content could not be stored locally.
	Failed

	// Invalid means the input line was not a well-formed identifier.
	Invalid

	// Skipped means the content was already stored and scanning was skipped.
	Skipped

	// Canceled means the run was canceled before the identifier was fully scanned.
	Canceled
)

func (s State) String() string {
	switch s {
	case NotFound:
		return "not-found"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	case Invalid:
		return "invalid"
	case Skipped:
		return "skipped"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// Outcome is the result of checking one peer for one identifier.
type Outcome int

const (
	// Absent means the peer's existence probe failed.
	Absent Outcome = iota

	// Accepted means the peer supplied content that verified.
	Accepted

	// NetworkError means the peer claimed the content but fetching it failed.
	NetworkError

	// HashMismatch means the peer supplied content that failed verification.
	HashMismatch

	// IOError means verified content could not be stored or its host recorded.
	IOError

	// Unneeded means the check was skipped under FirstMatch.
	Unneeded

	// Interrupted means the check was abandoned because the run was canceled.
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Absent:
		return "not-found"
	case Accepted:
		return "verified"
	case NetworkError:
		return "network-error"
	case HashMismatch:
		return "hash-mismatch"
	case IOError:
		return "io-error"
	case Unneeded:
		return "skipped"
	case Interrupted:
		return "canceled"
	}
	return "unknown"
}
