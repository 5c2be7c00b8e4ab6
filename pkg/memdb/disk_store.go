package memdb

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	episodesLogFile      = "episodes.jsonl"
	metaFile             = "meta.json"
	exactCheckpointFile  = "exact_checkpoint.json"
	diskLockFile         = ".lock"
	diskIndexTypeHnsw    = "hnsw"
	diskIndexTypeExact   = "exact"
	diskDefaultMaxElemts = 20_000
)

// diskMeta is the on-disk shape of meta.json: the fixed parameters a
// DiskStore was opened with, so a later open of the same directory
// can rebuild the same kind of index.
type diskMeta struct {
	Dim                 int    `json:"dim"`
	IndexType           string `json:"index_type"`
	MaxElements         int    `json:"max_elements"`
	CheckpointLineCount *int   `json:"checkpoint_line_count,omitempty"`
}

// exactCheckpoint is the on-disk shape of exact_checkpoint.json: a
// full snapshot of episodes for an exact-backed DiskStore, letting
// open skip replaying the whole log when the checkpoint is still
// valid (same line count as the log).
type exactCheckpoint struct {
	Episodes []Episode `json:"episodes"`
}

// DiskOptions configures DiskStore.OpenWithOptions.
type DiskOptions struct {
	Dim int
	// IndexType is "hnsw" or "exact"; zero value behaves as "hnsw".
	IndexType string
	// MaxElements bounds an HNSW-backed store; unused for exact.
	MaxElements int
	// UseCheckpoint enables, for an exact-backed store only, writing
	// an episode snapshot on Checkpoint() that a later Open can load
	// instead of replaying the whole log.
	UseCheckpoint bool
}

// HnswDiskOptions returns options for an HNSW-backed DiskStore.
func HnswDiskOptions(dim, maxElements int) DiskOptions {
	return DiskOptions{Dim: dim, IndexType: diskIndexTypeHnsw, MaxElements: maxElements}
}

// ExactDiskOptions returns options for an exact-backed DiskStore.
func ExactDiskOptions(dim int) DiskOptions {
	return DiskOptions{Dim: dim, IndexType: diskIndexTypeExact}
}

// ExactDiskOptionsWithCheckpoint returns options for an exact-backed
// DiskStore with checkpointing enabled.
func ExactDiskOptionsWithCheckpoint(dim int) DiskOptions {
	return DiskOptions{Dim: dim, IndexType: diskIndexTypeExact, UseCheckpoint: true}
}

// DiskStore is a durable episodic memory store: episodes live in an
// append-only JSONL log on disk, with the vector index and an id-keyed
// episode table held in RAM and rebuilt from the log (or a checkpoint)
// on open. A directory-scoped advisory lock enforces a single writer.
//
// DiskStore has no SaveToFile: the append-only log is already its
// persistence mechanism, and a second snapshot format would just be a
// second source of truth to keep in sync.
type DiskStore struct {
	dim           int
	episodes      map[uuid.UUID]Episode
	index         IndexBackend
	keyToUUID     map[uint64]uuid.UUID
	path          string
	logFile       *os.File
	useCheckpoint bool
	lock          *flock.Flock
}

// Open opens or creates an HNSW-backed DiskStore at path with the
// default capacity of 20,000 episodes.
func Open(path string, dim int) (*DiskStore, error) {
	return OpenWithOptions(path, HnswDiskOptions(dim, diskDefaultMaxElemts))
}

// PeekDim reads meta.json at path, if present, and returns the store's
// fixed dimensionality without acquiring the single-writer lock. It lets
// callers that don't already know a store's dim (the CLI, the MCP
// adapter) open an existing store without guessing. Returns ok=false,
// no error, if the directory has no meta.json yet (store not created).
func PeekDim(path string) (dim int, ok bool, err error) {
	metaPath := filepath.Join(path, metaFile)
	if _, statErr := os.Stat(metaPath); statErr != nil {
		return 0, false, nil
	}
	meta, err := readDiskMeta(metaPath)
	if err != nil {
		return 0, false, err
	}
	return meta.Dim, true, nil
}

// OpenWithOptions opens or creates a DiskStore at path per opts.
func OpenWithOptions(path string, opts DiskOptions) (*DiskStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	lock := flock.New(filepath.Join(path, diskLockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store at %s is already open by another process", path)
	}

	store, err := openLocked(path, opts)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	store.lock = lock
	return store, nil
}

func openLocked(path string, opts DiskOptions) (*DiskStore, error) {
	metaPath := filepath.Join(path, metaFile)
	logPath := filepath.Join(path, episodesLogFile)

	var (
		dim       int
		indexType string
		index     IndexBackend
		episodes  map[uuid.UUID]Episode
		keyToUUID map[uint64]uuid.UUID
	)

	if _, err := os.Stat(metaPath); err == nil {
		meta, err := readDiskMeta(metaPath)
		if err != nil {
			return nil, err
		}
		if meta.Dim != opts.Dim {
			return nil, &DimensionMismatchError{Expected: meta.Dim, Got: opts.Dim}
		}
		dim = meta.Dim
		indexType = meta.IndexType

		if _, err := os.Stat(logPath); err == nil {
			checkpointPath := filepath.Join(path, exactCheckpointFile)
			tryCheckpoint := opts.UseCheckpoint && meta.IndexType == diskIndexTypeExact
			if _, statErr := os.Stat(checkpointPath); statErr != nil {
				tryCheckpoint = false
			}

			if tryCheckpoint {
				lineCount, err := countLogLines(logPath)
				if err != nil {
					return nil, err
				}
				if meta.CheckpointLineCount != nil && *meta.CheckpointLineCount == lineCount {
					episodes, keyToUUID, index, err = loadFromCheckpoint(checkpointPath, meta.Dim)
				} else {
					episodes, keyToUUID, index, err = replayLog(logPath, meta.Dim, meta.MaxElements, meta.IndexType)
				}
				if err != nil {
					return nil, err
				}
			} else {
				var err error
				episodes, keyToUUID, index, err = replayLog(logPath, meta.Dim, meta.MaxElements, meta.IndexType)
				if err != nil {
					return nil, err
				}
			}
		} else {
			episodes = make(map[uuid.UUID]Episode)
			keyToUUID = make(map[uint64]uuid.UUID)
			index = newBackend(meta.IndexType, meta.MaxElements)
		}
	} else {
		indexType = opts.IndexType
		if indexType == "" {
			indexType = diskIndexTypeHnsw
		}
		dim = opts.Dim
		index = newBackend(indexType, opts.MaxElements)
		episodes = make(map[uuid.UUID]Episode)
		keyToUUID = make(map[uint64]uuid.UUID)

		meta := diskMeta{Dim: opts.Dim, IndexType: indexType, MaxElements: opts.MaxElements}
		if err := writeDiskMeta(metaPath, meta); err != nil {
			return nil, err
		}
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open episode log: %w", err)
	}

	return &DiskStore{
		dim:           dim,
		episodes:      episodes,
		index:         index,
		keyToUUID:     keyToUUID,
		path:          path,
		logFile:       logFile,
		useCheckpoint: opts.UseCheckpoint,
	}, nil
}

func newBackend(indexType string, maxElements int) IndexBackend {
	if indexType == diskIndexTypeExact {
		return NewExactIndex()
	}
	return NewHnswIndex(maxElements)
}

// Close releases the store's lock file and closes the episode log.
func (s *DiskStore) Close() error {
	logErr := s.logFile.Close()
	var lockErr error
	if s.lock != nil {
		lockErr = s.lock.Unlock()
	}
	if logErr != nil {
		return logErr
	}
	return lockErr
}

// Dim returns the store's fixed embedding dimensionality.
func (s *DiskStore) Dim() int {
	return s.dim
}

// Len returns the number of stored episodes.
func (s *DiskStore) Len() int {
	return len(s.episodes)
}

// StoreEpisode appends ep to the log (synced to disk before
// returning) and inserts it into the in-memory index and episode
// table.
func (s *DiskStore) StoreEpisode(ep Episode) error {
	if len(ep.StateEmbedding) != s.dim {
		return &DimensionMismatchError{Expected: s.dim, Got: len(ep.StateEmbedding)}
	}

	line, err := sonic.Marshal(ep)
	if err != nil {
		return fmt.Errorf("serialize episode: %w", err)
	}
	if _, err := s.logFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write episode log: %w", err)
	}
	if err := s.logFile.Sync(); err != nil {
		return fmt.Errorf("sync episode log: %w", err)
	}

	key, err := s.index.Insert(ep.StateEmbedding)
	if err != nil {
		return err
	}
	s.keyToUUID[key] = ep.ID
	s.episodes[ep.ID] = ep
	return nil
}

// QuerySimilar runs a similarity search with the default min_reward=0,
// topK filter.
func (s *DiskStore) QuerySimilar(query []float32, topK int) ([]Episode, error) {
	return s.QuerySimilarWithOptions(query, NewQueryOptions(0, topK))
}

// QuerySimilarWithOptions returns up to opts.TopK episodes nearest to
// query, restricted to episodes matching opts. Unlike MemoryStore,
// the oversampling window widens only for tags_any/time_after/
// time_before filters (matching the original on-disk implementation);
// tags_all/task id prefix/source/user id filters still apply but do
// not by themselves widen the candidate window. Results are ordered as
// in MemoryStore: distance ascending, then more recent Timestamp first.
func (s *DiskStore) QuerySimilarWithOptions(query []float32, opts QueryOptions) ([]Episode, error) {
	if len(query) != s.dim {
		return nil, &DimensionMismatchError{Expected: s.dim, Got: len(query)}
	}
	if opts.TopK <= 0 || len(s.episodes) == 0 {
		return nil, nil
	}

	mult := oversampleNarrow
	if opts.TagsAny != nil || opts.TimeAfter != nil || opts.TimeBefore != nil {
		mult = oversampleWide
	}

	candidates, err := s.index.Search(query, opts.TopK*mult)
	if err != nil {
		return nil, err
	}

	out := make([]Episode, 0, len(candidates))
	dist := make(map[uuid.UUID]float32, len(candidates))
	for _, c := range candidates {
		id, ok := s.keyToUUID[c.Key]
		if !ok {
			continue
		}
		ep, ok := s.episodes[id]
		if !ok {
			continue
		}
		if !opts.Matches(&ep) {
			continue
		}
		out = append(out, ep)
		dist[id] = c.Distance
	}
	sort.SliceStable(out, func(i, j int) bool {
		if a, b := dist[out[i].ID], dist[out[j].ID]; a != b {
			return a < b
		}
		return tsOrMin(out[i]) > tsOrMin(out[j])
	})
	if len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out, nil
}

// Checkpoint persists the current episode set to exact_checkpoint.json
// so the next Open can skip replaying the log. A no-op when
// checkpointing isn't enabled or the store isn't exact-backed, and
// when the log has changed underneath the in-memory key table since
// the last successful write (a defensive check against a torn write).
func (s *DiskStore) Checkpoint() error {
	if !s.useCheckpoint {
		return nil
	}
	if kindOf(s.index) != backendExact {
		return nil
	}

	logPath := filepath.Join(s.path, episodesLogFile)
	lineCount, err := countLogLines(logPath)
	if err != nil {
		return err
	}

	episodes := make([]Episode, 0, s.index.Len())
	for key := 0; key < s.index.Len(); key++ {
		id, ok := s.keyToUUID[uint64(key)]
		if !ok {
			continue
		}
		if ep, ok := s.episodes[id]; ok {
			episodes = append(episodes, ep)
		}
	}
	if len(episodes) != lineCount {
		return nil
	}

	data, err := sonic.Marshal(exactCheckpoint{Episodes: episodes})
	if err != nil {
		return fmt.Errorf("serialize checkpoint: %w", err)
	}
	checkpointPath := filepath.Join(s.path, exactCheckpointFile)
	if err := os.WriteFile(checkpointPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	metaPath := filepath.Join(s.path, metaFile)
	meta, err := readDiskMeta(metaPath)
	if err != nil {
		return err
	}
	meta.CheckpointLineCount = &lineCount
	return writeDiskMeta(metaPath, *meta)
}

// PruneOlderThan removes every episode with a Timestamp set and less
// than cutoffMs, compacting the log; episodes with no Timestamp are
// kept. Returns the number removed.
func (s *DiskStore) PruneOlderThan(cutoffMs int64) (int, error) {
	return s.pruneTo(func(kept []Episode) []Episode {
		out := kept[:0]
		for _, ep := range kept {
			if ep.Timestamp == nil || *ep.Timestamp >= cutoffMs {
				out = append(out, ep)
			}
		}
		return out
	})
}

// PruneKeepNewest keeps only the n episodes with the most recent
// Timestamp (episodes without one sort as oldest), compacting the
// log. Returns the number removed.
func (s *DiskStore) PruneKeepNewest(n int) (int, error) {
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
// Reward, breaking ties by most recent Timestamp, compacting the log.
// Returns the number removed.
func (s *DiskStore) PruneKeepHighestReward(n int) (int, error) {
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

func tsOrMin(ep Episode) int64 {
	if ep.Timestamp == nil {
		return -1 << 63
	}
	return *ep.Timestamp
}

// pruneTo applies filterAndSort to the current episode set, rebuilds
// the index and episode table from the result, and rewrites the log
// to contain exactly the surviving episodes. Returns the number of
// episodes removed; a zero result leaves the store untouched.
func (s *DiskStore) pruneTo(filterAndSort func([]Episode) []Episode) (int, error) {
	all := make([]Episode, 0, len(s.episodes))
	for _, ep := range s.episodes {
		all = append(all, ep)
	}
	original := len(all)

	kept := filterAndSort(all)
	removed := original - len(kept)
	if removed <= 0 {
		return 0, nil
	}

	maxElements := diskDefaultMaxElemts
	if maxElements < len(kept) {
		maxElements = len(kept)
	}
	if maxElements < s.dim*2 {
		maxElements = s.dim * 2
	}

	var fresh IndexBackend
	if kindOf(s.index) == backendExact {
		fresh = NewExactIndex()
	} else {
		fresh = NewHnswIndex(maxElements)
	}

	episodes := make(map[uuid.UUID]Episode, len(kept))
	keyToUUID := make(map[uint64]uuid.UUID, len(kept))
	for _, ep := range kept {
		key, err := fresh.Insert(ep.StateEmbedding)
		if err != nil {
			return 0, err
		}
		keyToUUID[key] = ep.ID
		episodes[ep.ID] = ep
	}

	if err := s.rewriteLog(kept); err != nil {
		return 0, err
	}

	s.index = fresh
	s.episodes = episodes
	s.keyToUUID = keyToUUID
	if err := s.removeCheckpointIfExists(); err != nil {
		return 0, err
	}
	return removed, nil
}

// rewriteLog replaces the episode log with exactly the given
// episodes, one JSON object per line, fsynced before the writer
// returns. The store's log file handle is reopened in append mode
// afterward so subsequent StoreEpisode calls keep working.
func (s *DiskStore) rewriteLog(kept []Episode) error {
	if err := s.logFile.Close(); err != nil {
		return fmt.Errorf("close log for compaction: %w", err)
	}

	logPath := filepath.Join(s.path, episodesLogFile)
	f, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create log for compaction: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, ep := range kept {
		line, err := sonic.Marshal(ep)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("serialize episode: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			_ = f.Close()
			return fmt.Errorf("write log: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush log: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close compacted log: %w", err)
	}

	reopened, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("reopen log: %w", err)
	}
	s.logFile = reopened
	return nil
}

func (s *DiskStore) removeCheckpointIfExists() error {
	p := filepath.Join(s.path, exactCheckpointFile)
	if _, err := os.Stat(p); err != nil {
		return nil
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}

func countLogLines(logPath string) (int, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return 0, fmt.Errorf("open log for count: %w", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan log: %w", err)
	}
	return count, nil
}

func loadFromCheckpoint(checkpointPath string, dim int) (map[uuid.UUID]Episode, map[uint64]uuid.UUID, IndexBackend, error) {
	data, err := os.ReadFile(checkpointPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp exactCheckpoint
	if err := sonic.Unmarshal(data, &cp); err != nil {
		return nil, nil, nil, fmt.Errorf("parse checkpoint: %w", err)
	}

	vectors := make([][]float32, len(cp.Episodes))
	for i, ep := range cp.Episodes {
		if len(ep.StateEmbedding) != dim {
			return nil, nil, nil, &DimensionMismatchError{Expected: dim, Got: len(ep.StateEmbedding)}
		}
		vectors[i] = ep.StateEmbedding
	}

	episodes := make(map[uuid.UUID]Episode, len(cp.Episodes))
	keyToUUID := make(map[uint64]uuid.UUID, len(cp.Episodes))
	for i, ep := range cp.Episodes {
		keyToUUID[uint64(i)] = ep.ID
		episodes[ep.ID] = ep
	}

	return episodes, keyToUUID, NewExactIndexFromVectors(vectors), nil
}

func replayLog(logPath string, dim, maxElements int, indexType string) (map[uuid.UUID]Episode, map[uint64]uuid.UUID, IndexBackend, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open log for replay: %w", err)
	}
	defer f.Close()

	episodes := make(map[uuid.UUID]Episode)
	keyToUUID := make(map[uint64]uuid.UUID)
	index := newBackend(indexType, maxElements)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ep Episode
		if err := sonic.UnmarshalString(line, &ep); err != nil {
			return nil, nil, nil, fmt.Errorf("parse episode: %w", err)
		}
		if len(ep.StateEmbedding) != dim {
			return nil, nil, nil, &DimensionMismatchError{Expected: dim, Got: len(ep.StateEmbedding)}
		}
		key, err := index.Insert(ep.StateEmbedding)
		if err != nil {
			return nil, nil, nil, err
		}
		keyToUUID[key] = ep.ID
		episodes[ep.ID] = ep
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("scan log: %w", err)
	}

	return episodes, keyToUUID, index, nil
}

func readDiskMeta(path string) (*diskMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	var meta diskMeta
	if err := sonic.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse meta: %w", err)
	}
	return &meta, nil
}

func writeDiskMeta(path string, meta diskMeta) error {
	data, err := sonic.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize meta: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}
