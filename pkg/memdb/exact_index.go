package memdb

import "sort"

// ScoredKey is a single (internal key, distance) result returned by an
// IndexBackend search.
type ScoredKey struct {
	Key      uint64
	Distance float32
}

// ExactIndex is a brute-force vector index: O(n) per query, dense
// monotonic keys from 0, deterministic ordering. Use for small episode
// sets or when exact recall matters more than query latency.
type ExactIndex struct {
	vectors [][]float32
}

// NewExactIndex returns an empty ExactIndex.
func NewExactIndex() *ExactIndex {
	return &ExactIndex{}
}

// NewExactIndexFromVectors builds an ExactIndex from pre-existing
// vectors (e.g. loaded from a checkpoint); key i is vectors[i].
func NewExactIndexFromVectors(vectors [][]float32) *ExactIndex {
	return &ExactIndex{vectors: vectors}
}

// Insert appends vec and returns its 0-based position as the key.
func (idx *ExactIndex) Insert(vec []float32) (uint64, error) {
	key := uint64(len(idx.vectors))
	stored := make([]float32, len(vec))
	copy(stored, vec)
	idx.vectors = append(idx.vectors, stored)
	return key, nil
}

// Search returns the k nearest vectors to query by L2 distance,
// ascending, truncated to k. Ties (including NaN distances, which
// compare equal to everything) break by insertion key via a stable
// sort.
func (idx *ExactIndex) Search(query []float32, k int) ([]ScoredKey, error) {
	results := make([]ScoredKey, len(idx.vectors))
	for i, v := range idx.vectors {
		results[i] = ScoredKey{Key: uint64(i), Distance: l2Distance(query, v)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Distance, results[j].Distance
		if a != a || b != b { // NaN compares equal to everything
			return false
		}
		return a < b
	})
	if k < 0 {
		k = 0
	}
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of stored vectors.
func (idx *ExactIndex) Len() int {
	return len(idx.vectors)
}

var _ IndexBackend = (*ExactIndex)(nil)
