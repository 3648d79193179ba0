// Package engine scans peers for content,
// verifies what they supply,
// and stores it locally.
//
// A run takes a list of identifiers and checks every configured peer for each of them,
// with a bounded number of checks in flight at once.
// Every check is a cheap existence probe followed,
// if the peer claims the content,
// by a full fetch and verification.
// Verified content goes into the local store
// and its supplier is recorded as a host of it.
//
// Failures of individual checks never abort a run.
// They are recorded in the Report.
package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/dh"
	"github.com/bobg/dh/peers"
)

// DefaultWorkers is the number of checks in flight when Engine.Workers is unset.
const DefaultWorkers = 10

// ErrNoPeers is returned by Run when there are no peers to scan.
var ErrNoPeers = errors.New("no peers")

// Locator probes peers for content and fetches it.
// It is implemented by *locator.Client.
type Locator interface {
	Exists(ctx context.Context, peer string, id dh.ID) bool
	Fetch(ctx context.Context, peer string, id dh.ID) ([]byte, error)
}

// Engine runs scans.
type Engine struct {
	Store    dh.Store
	Registry *peers.Registry
	Locator  Locator
	Policy   Policy

	// Workers is the maximum number of checks in flight.
	Workers int

	// SkipStored means identifiers whose hash is already in Store are not scanned.
	SkipStored bool

	Logger log.FieldLogger
}

type item struct {
	ItemResult

	mu       sync.Mutex
	verified bool
	mismatch bool
	ioErr    error
	pending  int // pairs not yet resolved
}

// Run scans the peers of e.Registry for the identifiers in ids.
// Blank lines in ids are ignored,
// and repeated identifiers are scanned once.
//
// The error result is non-nil only when the run could not start,
// or when ctx was canceled.
// In the latter case the partial Report is returned too.
func (e *Engine) Run(ctx context.Context, ids []string) (*Report, error) {
	if e.Store == nil {
		return nil, errors.New("no store")
	}
	if e.Registry == nil || len(e.Registry.Peers) == 0 {
		return nil, ErrNoPeers
	}
	if e.Locator == nil {
		return nil, errors.New("no locator")
	}

	rep := &Report{
		RunID:   uuid.New().String(),
		Policy:  e.Policy,
		Started: time.Now(),
	}

	logger := e.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger = logger.WithField("run", rep.RunID)

	var (
		items    []*item
		seen     = make(map[string]bool)
		hashes   []dh.Hash
		peerList = e.Registry.Peers
	)
	for _, line := range ids {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := dh.ParseID(line)
		if err != nil {
			logger.WithField("input", line).Warn(err)
			items = append(items, &item{ItemResult: ItemResult{Input: line, State: Invalid, Err: err}})
			continue
		}
		if seen[id.String()] {
			continue
		}
		seen[id.String()] = true
		items = append(items, &item{ItemResult: ItemResult{Input: line, ID: id}, pending: len(peerList)})
		hashes = append(hashes, id.Hash)
	}

	rep.Stats = NewStats(peerList, hashes)

	var (
		pairsMu sync.Mutex
		g       errgroup.Group
	)

	workers := e.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	g.SetLimit(workers)

	addPair := func(it *item, pr PairResult) {
		pr.Time = time.Now()
		pairsMu.Lock()
		rep.Pairs = append(rep.Pairs, pr)
		pairsMu.Unlock()

		it.mu.Lock()
		defer it.mu.Unlock()
		switch pr.Outcome {
		case Accepted:
			it.verified = true
			it.Hosts = append(it.Hosts, pr.Peer)
		case HashMismatch:
			it.mismatch = true
		case IOError:
			if it.ioErr == nil {
				it.ioErr = pr.Err
			}
		}
		if pr.Outcome != Interrupted {
			it.pending--
		}
	}

scan:
	for i, it := range items {
		if it.State == Invalid {
			continue
		}
		if e.SkipStored {
			has, err := e.Store.Has(ctx, it.ID.Hash)
			if err != nil {
				it.State = Failed
				it.Err = errors.Wrapf(dh.ErrIO, "checking store for %s: %s", it.ID, err)
				continue
			}
			if has {
				it.State = Skipped
				continue
			}
		}

		for j, peer := range peerList {
			if ctx.Err() != nil {
				break scan
			}
			g.Go(func() error {
				pr := e.check(ctx, it, peer, rep.Stats, logger)
				pr.item, pr.peer = i, j
				addPair(it, pr)
				return nil
			})
		}
	}

	_ = g.Wait()

	for _, it := range items {
		switch it.State {
		case Invalid, Skipped, Failed:
		default:
			switch {
			case it.verified:
				it.State = Verified
			case it.ioErr != nil:
				it.State = Failed
				it.Err = it.ioErr
			case it.pending > 0 && ctx.Err() != nil:
				it.State = Canceled
			case it.mismatch:
				it.State = Rejected
			default:
				it.State = NotFound
			}
		}
		rep.Items = append(rep.Items, it.ItemResult)
	}

	sortPairs(rep.Pairs)
	rep.Finished = time.Now()

	c := rep.Counts()
	logger.WithFields(log.Fields{
		"items":     c.Items,
		"verified":  c.Verified,
		"rejected":  c.Rejected,
		"not_found": c.NotFound,
		"failed":    c.Failed,
	}).Info("run complete")

	return rep, ctx.Err()
}

func (e *Engine) check(ctx context.Context, it *item, peer string, stats *Stats, logger log.FieldLogger) PairResult {
	pr := PairResult{Peer: peer, ID: it.ID}

	if ctx.Err() != nil {
		pr.Outcome = Interrupted
		return pr
	}
	if e.Policy == FirstMatch {
		it.mu.Lock()
		done := it.verified
		it.mu.Unlock()
		if done {
			pr.Outcome = Unneeded
			return pr
		}
	}

	logger = logger.WithFields(log.Fields{"peer": peer, "id": it.ID.String()})

	if !e.Locator.Exists(ctx, peer, it.ID) {
		if ctx.Err() != nil {
			pr.Outcome = Interrupted
			return pr
		}
		pr.Outcome = Absent
		return pr
	}

	data, err := e.Locator.Fetch(ctx, peer, it.ID)
	if err != nil {
		if ctx.Err() != nil {
			pr.Outcome = Interrupted
			return pr
		}
		logger.Warn(err)
		pr.Outcome, pr.Err = NetworkError, err
		return pr
	}

	pr.Actual = dh.HashBytes(data)
	if err := dh.Verify(it.ID, data); err != nil {
		logger.Warn(err)
		pr.Outcome, pr.Err = HashMismatch, err
		return pr
	}

	added, err := e.Store.Put(ctx, it.ID, data)
	if err != nil {
		logger.Error(err)
		pr.Outcome, pr.Err = IOError, errors.Wrapf(dh.ErrIO, "storing %s: %s", it.ID, err)
		return pr
	}
	pr.Added = added

	if err := e.Store.MarkProvenance(ctx, it.ID, peer); err != nil {
		logger.Warnf("marking provenance: %s", err)
	}

	if e.Registry.Hosts != nil {
		if _, err := e.Registry.RecordHost(ctx, it.ID.Hash, peer); err != nil {
			logger.Error(err)
			pr.Outcome, pr.Err = IOError, errors.Wrapf(dh.ErrIO, "recording host: %s", err)
			return pr
		}
	}

	stats.Record(peer, it.ID.Hash)
	logger.WithField("added", added).Info("verified")
	pr.Outcome = Accepted
	return pr
}

func sortPairs(pairs []PairResult) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].item != pairs[j].item {
			return pairs[i].item < pairs[j].item
		}
		return pairs[i].peer < pairs[j].peer
	})
}
