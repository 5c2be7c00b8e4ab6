package memdb

import (
	"os"
	"sort"

	"github.com/bytedance/sonic"
)

// oversampleNarrow and oversampleWide are the multipliers applied to TopK when fetching
// candidates from the vector index before structural filters are
// applied. A query with no structural filter beyond MinReward only
// ever discards episodes the index itself would have ranked lower, so
// a narrow 2x window is enough; a query with tag/time/source/user
// filters can discard much deeper into the candidate list, so it asks
// for 4x.
const (
	oversampleNarrow = 2
	oversampleWide   = 4
)

// MemoryStore is an in-memory episodic memory store: episodes are
// held in a dense slice, keyed into a vector index by position, with
// no persistence of its own beyond explicit SaveToFile/LoadFromFile
// snapshots.
type MemoryStore struct {
	dim      int
	index    IndexBackend
	episodes []Episode
}

// NewMemoryStore returns a MemoryStore backed by an exact (brute
// force) index.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, index: NewExactIndex()}
}

// NewMemoryStoreWithMaxElements returns a MemoryStore backed by an
// HNSW index capped at maxElements.
func NewMemoryStoreWithMaxElements(dim int, maxElements int) *MemoryStore {
	return &MemoryStore{dim: dim, index: NewHnswIndex(maxElements)}
}

// Dim returns the store's fixed embedding dimensionality.
func (s *MemoryStore) Dim() int {
	return s.dim
}

// Len returns the number of stored episodes.
func (s *MemoryStore) Len() int {
	return len(s.episodes)
}

// StoreEpisode inserts ep into the vector index and the episode table.
// Returns DimensionMismatchError if ep's embedding length does not
// match the store's dimensionality, and whatever error the underlying
// index returns (e.g. CapacityExceededError for an HNSW-backed store
// at capacity) without mutating the episode table.
func (s *MemoryStore) StoreEpisode(ep Episode) error {
	if len(ep.StateEmbedding) != s.dim {
		return &DimensionMismatchError{Expected: s.dim, Got: len(ep.StateEmbedding)}
	}
	if _, err := s.index.Insert(ep.StateEmbedding); err != nil {
		return err
	}
	s.episodes = append(s.episodes, ep)
	return nil
}

// StoreEpisodes inserts eps in order, stopping at the first error.
// Episodes preceding the failed one remain stored.
func (s *MemoryStore) StoreEpisodes(eps []Episode) error {
	for _, ep := range eps {
		if err := s.StoreEpisode(ep); err != nil {
			return err
		}
	}
	return nil
}

// scoredEpisode pairs an episode with its query distance for sorting.
type scoredEpisode struct {
	episode  *Episode
	distance float32
}

// QuerySimilar runs a similarity search with the default min_reward=0,
// topK filter.
func (s *MemoryStore) QuerySimilar(query []float32, topK int) ([]Episode, error) {
	return s.QuerySimilarWithOptions(query, NewQueryOptions(0, topK))
}

// QuerySimilarWithOptions returns up to opts.TopK episodes nearest to
// query by L2 distance, restricted to episodes matching opts; equal
// distances put the more recent Timestamp first (no Timestamp sorts
// as oldest). The
// index is asked for opts.TopK * mult candidates first (mult=2 absent
// structural filters, 4 otherwise) to keep the common case cheap while
// still surfacing enough candidates for a selective filter to not
// starve the result set; it is possible, for a sufficiently narrow
// filter, for fewer than TopK matches to come back even when more
// exist in the store.
func (s *MemoryStore) QuerySimilarWithOptions(query []float32, opts QueryOptions) ([]Episode, error) {
	if len(query) != s.dim {
		return nil, &DimensionMismatchError{Expected: s.dim, Got: len(query)}
	}
	if opts.TopK <= 0 || len(s.episodes) == 0 {
		return nil, nil
	}

	mult := oversampleNarrow
	if opts.hasStructuralFilter() {
		mult = oversampleWide
	}
	candidateK := opts.TopK * mult

	candidates, err := s.index.Search(query, candidateK)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredEpisode, 0, len(candidates))
	for _, c := range candidates {
		if int(c.Key) >= len(s.episodes) {
			continue
		}
		ep := &s.episodes[c.Key]
		if !opts.Matches(ep) {
			continue
		}
		scored = append(scored, scoredEpisode{episode: ep, distance: c.Distance})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i].distance, scored[j].distance
		if a != a || b != b {
			return false
		}
		if a != b {
			return a < b
		}
		return tsOrMin(*scored[i].episode) > tsOrMin(*scored[j].episode)
	})

	if len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}

	out := make([]Episode, len(scored))
	for i, sc := range scored {
		out[i] = *sc.episode
	}
	return out, nil
}

// PruneOlderThan removes every episode with a Timestamp set and less
// than cutoff; episodes with no Timestamp are kept.
func (s *MemoryStore) PruneOlderThan(cutoff int64) (int, error) {
	return s.pruneTo(func(kept []Episode) []Episode {
		out := kept[:0]
		for _, ep := range kept {
			if ep.Timestamp == nil || *ep.Timestamp >= cutoff {
				out = append(out, ep)
			}
		}
		return out
	})
}

// PruneKeepNewest keeps only the n episodes with the most recent
// Timestamp (episodes without one sort as oldest). Returns the number
// removed.
func (s *MemoryStore) PruneKeepNewest(n int) (int, error) {
	return s.pruneTo(func(kept []Episode) []Episode {
		sort.SliceStable(kept, func(i, j int) bool {
			return tsOrMin(kept[i]) > tsOrMin(kept[j])
		})
		if len(kept) > n {
			kept = kept[:n]
		}
		return kept
	})
}

// PruneKeepHighestReward keeps only the n episodes with the highest
// Reward, breaking ties by most recent Timestamp. Returns the number
// removed.
func (s *MemoryStore) PruneKeepHighestReward(n int) (int, error) {
	return s.pruneTo(func(kept []Episode) []Episode {
		sort.SliceStable(kept, func(i, j int) bool {
			a, b := kept[i].Reward, kept[j].Reward
			if a != b {
				return a > b
			}
			return tsOrMin(kept[i]) > tsOrMin(kept[j])
		})
		if len(kept) > n {
			kept = kept[:n]
		}
		return kept
	})
}

// pruneTo applies filter to the current episode set and rebuilds the
// index and episode table from the result. Returns the number of
// episodes removed; a zero or negative result leaves the store
// untouched.
func (s *MemoryStore) pruneTo(filter func([]Episode) []Episode) (int, error) {
	all := make([]Episode, len(s.episodes))
	copy(all, s.episodes)
	original := len(all)

	kept := filter(all)
	removed := original - len(kept)
	if removed <= 0 {
		return 0, nil
	}

	newIndex, err := s.rebuildIndex(kept)
	if err != nil {
		return 0, err
	}
	s.index = newIndex
	s.episodes = kept
	return removed, nil
}

// rebuildIndex constructs a fresh backend of the same kind as s.index
// and inserts every episode in kept, in order. A rebuilt HNSW backend's
// capacity is never allowed to shrink below DefaultMaxElements or
// dim*2, even if the store was originally constructed with a smaller
// custom capacity.
func (s *MemoryStore) rebuildIndex(kept []Episode) (IndexBackend, error) {
	var fresh IndexBackend
	if kindOf(s.index) == backendExact {
		fresh = NewExactIndex()
	} else {
		max := DefaultMaxElements
		if len(kept) > max {
			max = len(kept)
		}
		if s.dim*2 > max {
			max = s.dim * 2
		}
		fresh = NewHnswIndex(max)
	}
	for i := range kept {
		if _, err := fresh.Insert(kept[i].StateEmbedding); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

// memoryStoreSnapshot is the on-disk shape written by SaveToFile and
// read back by LoadFromFile/LoadFromFileExact: episodes only, since
// the vector index is always rebuilt from them on load.
type memoryStoreSnapshot struct {
	Dim      int       `json:"dim"`
	Episodes []Episode `json:"episodes"`
}

// SaveToFile writes every stored episode to path as JSON. The vector
// index is not serialized; LoadFromFile rebuilds it from the episodes.
func (s *MemoryStore) SaveToFile(path string) error {
	snap := memoryStoreSnapshot{Dim: s.dim, Episodes: s.episodes}
	data, err := sonic.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFromFile reads a snapshot written by SaveToFile and rebuilds an
// HNSW-backed MemoryStore capped at maxElements from it.
func LoadFromFile(path string, maxElements int) (*MemoryStore, error) {
	snap, err := readMemoryStoreSnapshot(path)
	if err != nil {
		return nil, err
	}
	s := NewMemoryStoreWithMaxElements(snap.Dim, maxElements)
	if err := s.StoreEpisodes(snap.Episodes); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFromFileExact reads a snapshot written by SaveToFile and
// rebuilds an exact-backed MemoryStore from it.
func LoadFromFileExact(path string) (*MemoryStore, error) {
	snap, err := readMemoryStoreSnapshot(path)
	if err != nil {
		return nil, err
	}
	s := NewMemoryStore(snap.Dim)
	if err := s.StoreEpisodes(snap.Episodes); err != nil {
		return nil, err
	}
	return s, nil
}

func readMemoryStoreSnapshot(path string) (*memoryStoreSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap memoryStoreSnapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
