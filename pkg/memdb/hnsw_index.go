package memdb

import (
	"bufio"
	"io"
	"math"

	"github.com/coder/hnsw"
)

// hnswLevelMultiplier is 1/ln(16), the level-generation factor the
// original spec fixes for M=16.
var hnswLevelMultiplier = 1.0 / math.Log(16)

// DefaultMaxElements is the HNSW backend capacity used when the caller
// does not specify one explicitly.
const DefaultMaxElements = 20_000

// HnswIndex is a thin wrapper over github.com/coder/hnsw, a pure-Go
// HNSW approximate nearest-neighbor library. It fixes the graph
// parameters the original spec calls for (M=16, EfSearch=32,
// Ml=1/ln(16), Euclidean distance) and layers a capacity ceiling on
// top, since coder/hnsw itself never refuses an insert.
type HnswIndex struct {
	graph       *hnsw.Graph[uint64]
	maxElements int
	nextKey     uint64
}

// NewHnswIndex constructs an empty HnswIndex with the given capacity.
func NewHnswIndex(maxElements int) *HnswIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.M = 16
	graph.EfSearch = 32
	graph.Ml = hnswLevelMultiplier
	graph.Distance = hnsw.EuclideanDistance

	return &HnswIndex{
		graph:       graph,
		maxElements: maxElements,
	}
}

// Insert adds vec and returns its internal key. Returns
// CapacityExceededError once maxElements insertions have occurred;
// the graph is left unchanged in that case.
func (idx *HnswIndex) Insert(vec []float32) (uint64, error) {
	if int(idx.nextKey) >= idx.maxElements {
		return 0, &CapacityExceededError{MaxElements: idx.maxElements}
	}
	key := idx.nextKey
	idx.nextKey++

	stored := make([]float32, len(vec))
	copy(stored, vec)
	idx.graph.Add(hnsw.MakeNode(key, stored))
	return key, nil
}

// Search returns up to k approximate nearest neighbors to query.
func (idx *HnswIndex) Search(query []float32, k int) ([]ScoredKey, error) {
	if k <= 0 || idx.graph.Len() == 0 {
		return nil, nil
	}
	nodes := idx.graph.Search(query, k)
	results := make([]ScoredKey, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, ScoredKey{
			Key:      n.Key,
			Distance: idx.graph.Distance(query, n.Value),
		})
	}
	return results, nil
}

// Len returns the number of vectors inserted into the graph.
func (idx *HnswIndex) Len() int {
	return idx.graph.Len()
}

// Export serializes the graph structure (not the capacity/nextKey
// bookkeeping) to w, for use by callers that persist the raw index
// rather than replaying episodes.
func (idx *HnswIndex) Export(w io.Writer) error {
	return idx.graph.Export(w)
}

// Import restores a previously exported graph from r.
func (idx *HnswIndex) Import(r io.Reader) error {
	return idx.graph.Import(bufio.NewReader(r))
}

var _ IndexBackend = (*HnswIndex)(nil)
