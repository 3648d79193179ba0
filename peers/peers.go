// Package peers loads the operator-maintained list of peers
// and records which of them are confirmed hosts of which content.
package peers

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh"
	"github.com/bobg/dh/locator"
)

// ErrNoSources is reported by Load when no source at all could be read.
var ErrNoSources = errors.New("no peer sources could be read")

// Normalize trims whitespace and trailing slashes from a peer URL.
func Normalize(peer string) string {
	return strings.TrimRight(strings.TrimSpace(peer), "/")
}

// Parse reads peer URLs from r,
// one per line.
// Blank lines and lines beginning with # are ignored.
func Parse(r io.Reader) ([]string, error) {
	var result []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if p := Normalize(line); p != "" {
			result = append(result, p)
		}
	}
	return result, sc.Err()
}

// Load reads peer URLs from each of the given sources and merges them.
// A source may be a file,
// a directory (every regular file in it is read, in name order),
// or an http or https URL of a remote list,
// fetched with cl and so subject to its timeouts and size limit.
// If cl is nil a Client with the default timeouts is used.
//
// The result is deduplicated and in first-seen order.
// A source that cannot be read is not fatal:
// its error is logged and returned in the error slice,
// and loading continues with the remaining sources.
// The same goes for a single unreadable file in a directory source.
// If every source fails,
// the error slice also contains ErrNoSources.
func Load(ctx context.Context, cl *locator.Client, sources ...string) ([]string, []error) {
	if cl == nil {
		cl = locator.New(0, 0)
	}

	var (
		result []string
		seen   = make(map[string]bool)
		errs   []error
		loaded int
	)
	for _, src := range sources {
		peers, softErrs, err := loadSource(ctx, cl, src)
		errs = append(errs, softErrs...)
		if err != nil {
			log.WithField("source", src).WithError(err).Warn("skipping unreadable peer source")
			errs = append(errs, err)
			continue
		}
		loaded++
		for _, p := range peers {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}
	if loaded == 0 && len(sources) > 0 {
		errs = append(errs, ErrNoSources)
	}
	return result, errs
}

func loadSource(ctx context.Context, cl *locator.Client, src string) ([]string, []error, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		peers, err := loadURL(ctx, cl, src)
		return peers, nil, err
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "statting %s", src)
	}
	if !info.IsDir() {
		peers, err := loadFile(src)
		return peers, nil, err
	}
	return loadDir(src)
}

// loadDir reads every regular file in dir.
// Files that cannot be read are logged and skipped;
// the directory as a whole fails only if none of its files could be read.
func loadDir(dir string) ([]string, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading dir %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		result   []string
		softErrs []error
		read     int
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		filename := filepath.Join(dir, e.Name())
		peers, err := loadFile(filename)
		if err != nil {
			log.WithField("file", filename).WithError(err).Warn("skipping unreadable peer list")
			softErrs = append(softErrs, err)
			continue
		}
		read++
		result = append(result, peers...)
	}
	if read == 0 && len(softErrs) > 0 {
		return nil, softErrs, errors.Errorf("no file in %s could be read", dir)
	}
	return result, softErrs, nil
}

func loadFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	defer f.Close()

	peers, err := Parse(f)
	return peers, errors.Wrapf(err, "reading %s", filename)
}

func loadURL(ctx context.Context, cl *locator.Client, u string) ([]string, error) {
	data, err := cl.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	peers, err := Parse(bytes.NewReader(data))
	return peers, errors.Wrapf(err, "reading %s", u)
}

// Registry is the set of peers to scan
// together with the record of which of them are confirmed hosts of which hashes.
type Registry struct {
	Peers []string
	Hosts dh.HostStore
}

// RecordHost records peer as a confirmed host of h.
// It is idempotent.
func (r *Registry) RecordHost(ctx context.Context, h dh.Hash, peer string) (bool, error) {
	added, err := r.Hosts.AddHost(ctx, h, peer)
	return added, errors.Wrapf(err, "recording host %s for %s", peer, h)
}

// HostsFor returns the known confirmed hosts of h.
// The result may be empty.
func (r *Registry) HostsFor(ctx context.Context, h dh.Hash) ([]string, error) {
	hosts, err := r.Hosts.Hosts(ctx, h)
	return hosts, errors.Wrapf(err, "getting hosts for %s", h)
}
