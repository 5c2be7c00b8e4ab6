package memdb

// Store is the common contract shared by MemoryStore and DiskStore.
// Presentation layers (cmd/agentmemdb, internal/mcpserver) are written
// against it so they don't need a code path per backend; callers that
// need backend-specific operations (MemoryStore.SaveToFile,
// DiskStore.Checkpoint) still type assert or hold the concrete type.
type Store interface {
	// Dim returns the embedding dimensionality this store was opened with.
	Dim() int

	// Len returns the number of episodes currently stored.
	Len() int

	// StoreEpisode inserts a single episode.
	StoreEpisode(ep Episode) error

	// QuerySimilar returns up to topK nearest episodes to query, unfiltered.
	QuerySimilar(query []float32, topK int) ([]Episode, error)

	// QuerySimilarWithOptions returns up to opts.TopK nearest episodes
	// matching opts's structural filters.
	QuerySimilarWithOptions(query []float32, opts QueryOptions) ([]Episode, error)

	// PruneOlderThan removes episodes with Timestamp < cutoffMs and
	// returns the number removed.
	PruneOlderThan(cutoffMs int64) (int, error)

	// PruneKeepNewest keeps only the n episodes with the most recent
	// Timestamp (episodes without one sort as oldest) and returns the
	// number removed.
	PruneKeepNewest(n int) (int, error)

	// PruneKeepHighestReward keeps only the n episodes with the highest
	// Reward, breaking ties by most recent Timestamp, and returns the
	// number removed.
	PruneKeepHighestReward(n int) (int, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DiskStore)(nil)
)
