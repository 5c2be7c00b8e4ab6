package mcpserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmem/agentmemdb/internal/config"
	"github.com/agentmem/agentmemdb/pkg/memdb"
)

func newTestServer(t *testing.T) (*Server, *memdb.DiskStore) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "store")
	store, err := memdb.OpenWithOptions(dir, memdb.ExactDiskOptionsWithCheckpoint(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.NewConfig()
	srv, err := NewServer(store, cfg)
	require.NoError(t, err)

	return srv, store
}

func TestNewServer_RejectsNilStore(t *testing.T) {
	_, err := NewServer(nil, config.NewConfig())

	assert.Error(t, err)
}

func TestNewServer_ListsFiveTools(t *testing.T) {
	srv, _ := newTestServer(t)

	tools := srv.ListTools()

	assert.Len(t, tools, 5)
}

func TestStoreEpisodeHandler_StoresAndReturnsID(t *testing.T) {
	srv, store := newTestServer(t)

	_, out, err := srv.mcpStoreEpisodeHandler(context.Background(), nil, StoreEpisodeInput{
		TaskID:         "t1",
		StateEmbedding: []float32{0.1, 0.2},
		Reward:         0.5,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, 1, store.Len())
}

func TestStoreEpisodeHandler_RejectsMissingTaskID(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.mcpStoreEpisodeHandler(context.Background(), nil, StoreEpisodeInput{
		StateEmbedding: []float32{0.1, 0.2},
	})

	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestQuerySimilarHandler_ReturnsMatches(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.mcpStoreEpisodeHandler(context.Background(), nil, StoreEpisodeInput{
		TaskID: "t1", StateEmbedding: []float32{1, 0}, Reward: 0.9,
	})
	require.NoError(t, err)

	_, out, err := srv.mcpQuerySimilarHandler(context.Background(), nil, QuerySimilarInput{
		QueryEmbedding: []float32{1, 0},
		TopK:           5,
	})

	require.NoError(t, err)
	require.Len(t, out.Episodes, 1)
	assert.Equal(t, "t1", out.Episodes[0].TaskID)
}

func TestQuerySimilarHandler_RejectsEmptyEmbedding(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.mcpQuerySimilarHandler(context.Background(), nil, QuerySimilarInput{})

	assert.Error(t, err)
}

func TestPruneOlderThanHandler_RemovesEpisodes(t *testing.T) {
	srv, _ := newTestServer(t)

	ts := int64(1000)
	_, _, err := srv.mcpStoreEpisodeHandler(context.Background(), nil, StoreEpisodeInput{
		TaskID: "old", StateEmbedding: []float32{1, 0}, Reward: 0.1, Timestamp: &ts,
	})
	require.NoError(t, err)

	_, out, err := srv.mcpPruneOlderThanHandler(context.Background(), nil, PruneOlderThanInput{CutoffMs: 2000})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Removed)
	assert.Equal(t, 0, out.Remaining)
}

func TestPruneKeepHighestRewardHandler_KeepsTopN(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, r := range []float32{0.1, 0.9} {
		_, _, err := srv.mcpStoreEpisodeHandler(context.Background(), nil, StoreEpisodeInput{
			TaskID: "t", StateEmbedding: []float32{1, 0}, Reward: r,
		})
		require.NoError(t, err)
	}

	_, out, err := srv.mcpPruneKeepHighestRewardHandler(context.Background(), nil, PruneKeepHighestRewardInput{N: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Removed)
	assert.Equal(t, 1, out.Remaining)
}
