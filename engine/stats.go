package engine

import (
	"sort"
	"sync"

	"github.com/bobg/dh"
)

// Stats aggregates the verified results of a single run.
// It is safe for concurrent use.
type Stats struct {
	mu sync.Mutex

	peers  []string
	hashes []dh.Hash

	perPeer map[string]int
	perHash map[dh.Hash]map[string]struct{}
}

// NewStats produces an empty Stats.
// The order of peers and hashes breaks ties in the rankings.
func NewStats(peers []string, hashes []dh.Hash) *Stats {
	s := &Stats{
		perPeer: make(map[string]int),
		perHash: make(map[dh.Hash]map[string]struct{}),
	}
	for _, p := range peers {
		if _, ok := s.perPeer[p]; !ok {
			s.perPeer[p] = 0
			s.peers = append(s.peers, p)
		}
	}
	for _, h := range hashes {
		if _, ok := s.perHash[h]; !ok {
			s.perHash[h] = make(map[string]struct{})
			s.hashes = append(s.hashes, h)
		}
	}
	return s
}

// Record notes that peer supplied verified content for h.
// Recording the same pair again has no effect on the hash count.
func (s *Stats) Record(peer string, h dh.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.perPeer[peer]; !ok {
		s.peers = append(s.peers, peer)
	}
	hosts, ok := s.perHash[h]
	if !ok {
		hosts = make(map[string]struct{})
		s.perHash[h] = hosts
		s.hashes = append(s.hashes, h)
	}
	if _, ok := hosts[peer]; ok {
		return
	}
	hosts[peer] = struct{}{}
	s.perPeer[peer]++
}

// PeerCount is a peer and the number of distinct items it supplied.
type PeerCount struct {
	Peer  string
	Count int
}

// HashCount is a hash and the number of distinct peers that supplied it.
type HashCount struct {
	Hash  dh.Hash
	Count int
}

// PeerRanking lists peers by descending count.
func (s *Stats) PeerRanking() []PeerCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]PeerCount, 0, len(s.peers))
	for _, p := range s.peers {
		result = append(result, PeerCount{Peer: p, Count: s.perPeer[p]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// HashRanking lists hashes by descending count.
func (s *Stats) HashRanking() []HashCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]HashCount, 0, len(s.hashes))
	for _, h := range s.hashes {
		result = append(result, HashCount{Hash: h, Count: len(s.perHash[h])})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}
