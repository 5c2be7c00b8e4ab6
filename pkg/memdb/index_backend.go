package memdb

// IndexBackend is the uniform contract both vector index
// implementations (ExactIndex, HnswIndex) satisfy. MemoryStore and
// DiskStore never branch on which concrete backend they hold beyond
// choosing it at construction and at post-prune rebuild time.
type IndexBackend interface {
	// Insert adds vec and returns an opaque internal key. Exact keys
	// are dense and monotonic from 0; HNSW keys are opaque and must
	// not be assumed dense by the caller.
	Insert(vec []float32) (uint64, error)

	// Search returns up to k (key, distance) pairs ordered by
	// ascending distance.
	Search(query []float32, k int) ([]ScoredKey, error)

	// Len returns the number of vectors currently stored.
	Len() int
}

// backendKind identifies which concrete IndexBackend a store holds, so
// that pruning rebuilds preserve the same kind of index.
type backendKind int

const (
	backendExact backendKind = iota
	backendHnsw
)

func kindOf(b IndexBackend) backendKind {
	if _, ok := b.(*ExactIndex); ok {
		return backendExact
	}
	return backendHnsw
}
