package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/dh"
)

// Report is the outcome of a run.
type Report struct {
	RunID    string
	Policy   Policy
	Started  time.Time
	Finished time.Time

	// Items has one entry per distinct input line, in input order.
	Items []ItemResult

	// Pairs has one entry per (identifier, peer) check,
	// ordered by identifier and then by peer.
	Pairs []PairResult

	Stats *Stats
}

// ItemResult is the disposition of one input identifier.
type ItemResult struct {
	Input string
	ID    dh.ID // zero when State is Invalid
	State State

	// Hosts are the peers that supplied verified content in this run.
	Hosts []string

	Err error
}

// PairResult is the outcome of checking one peer for one identifier.
type PairResult struct {
	Time    time.Time
	Peer    string
	ID      dh.ID
	Outcome Outcome

	// Actual is the hash of the fetched content,
	// when there was any.
	Actual dh.Hash

	// Added tells whether accepted content was new to the local store.
	Added bool

	Err error

	item, peer int
}

// Counts summarizes a Report.
type Counts struct {
	Items    int
	Found    int // pairs whose existence probe succeeded
	Verified int
	Rejected int
	NotFound int
	Failed   int
	Invalid  int
	Skipped  int
	Canceled int
}

// Counts tallies the items and pairs of r.
func (r *Report) Counts() Counts {
	var c Counts
	c.Items = len(r.Items)
	for _, item := range r.Items {
		switch item.State {
		case Verified:
			c.Verified++
		case Rejected:
			c.Rejected++
		case NotFound:
			c.NotFound++
		case Failed:
			c.Failed++
		case Invalid:
			c.Invalid++
		case Skipped:
			c.Skipped++
		case Canceled:
			c.Canceled++
		}
	}
	for _, pair := range r.Pairs {
		switch pair.Outcome {
		case Accepted, NetworkError, HashMismatch, IOError:
			c.Found++
		}
	}
	return c
}

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"timestamp", "peer", "file", "expected_hash", "actual_hash", "status"}

// WriteCSV writes one row per pair
// and one per invalid or skipped input line.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}
	for _, item := range r.Items {
		var expected string
		switch item.State {
		case Invalid:
		case Skipped:
			expected = item.ID.Hash.String()
		default:
			continue
		}
		row := []string{r.Started.UTC().Format(time.RFC3339), "", item.Input, expected, "", item.State.String()}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}
	for _, pair := range r.Pairs {
		var actual string
		if !pair.Actual.IsZero() {
			actual = pair.Actual.String()
		}
		row := []string{
			pair.Time.UTC().Format(time.RFC3339),
			pair.Peer,
			pair.ID.Filename(),
			pair.ID.Hash.String(),
			actual,
			pair.Outcome.String(),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing CSV")
}

// Summary writes a human-readable account of r.
func (r *Report) Summary(w io.Writer) error {
	c := r.Counts()

	var b strings.Builder
	fmt.Fprintf(&b, "run %s (policy %s), %s\n", r.RunID, r.Policy, r.Finished.Sub(r.Started).Round(time.Millisecond))
	fmt.Fprintf(&b, "%d items: %d verified, %d rejected, %d not found, %d failed, %d invalid, %d skipped, %d canceled\n",
		c.Items, c.Verified, c.Rejected, c.NotFound, c.Failed, c.Invalid, c.Skipped, c.Canceled)
	fmt.Fprintf(&b, "%d peer responses claimed content\n", c.Found)

	for _, item := range r.Items {
		fmt.Fprintf(&b, "  %-10s %s", item.State, item.Input)
		if len(item.Hosts) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(item.Hosts, " "))
		}
		if item.Err != nil {
			fmt.Fprintf(&b, " (%s)", item.Err)
		}
		b.WriteString("\n")
	}

	if r.Stats != nil {
		b.WriteString("Peers:\n")
		for _, pc := range r.Stats.PeerRanking() {
			fmt.Fprintf(&b, "  %5d %s\n", pc.Count, pc.Peer)
		}
		b.WriteString("Hashes:\n")
		for _, hc := range r.Stats.HashRanking() {
			fmt.Fprintf(&b, "  %5d %s\n", hc.Count, hc.Hash)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
