package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmem/agentmemdb/internal/config"
	"github.com/agentmem/agentmemdb/pkg/memdb"
)

func TestResolveStoreOptions_UsesExplicitDimOverConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Store.Dim = 8
	f := &storeFlags{path: t.TempDir(), dim: 3, backend: "exact"}

	_, opts, err := resolveStoreOptions(cfg, f)

	require.NoError(t, err)
	assert.Equal(t, 3, opts.Dim)
}

func TestResolveStoreOptions_PeeksExistingStoreDim(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := memdb.Open(dir, 6)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	cfg := config.NewConfig()
	f := &storeFlags{path: dir, backend: "exact"}

	_, opts, err := resolveStoreOptions(cfg, f)

	require.NoError(t, err)
	assert.Equal(t, 6, opts.Dim)
}

func TestResolveStoreOptions_ErrorsWithoutKnownDim(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Store.Dim = 0
	f := &storeFlags{path: filepath.Join(t.TempDir(), "store"), backend: "exact"}

	_, _, err := resolveStoreOptions(cfg, f)

	assert.Error(t, err)
}

func TestResolveStoreOptions_RejectsUnknownBackend(t *testing.T) {
	cfg := config.NewConfig()
	f := &storeFlags{path: t.TempDir(), dim: 4, backend: "bogus"}

	_, _, err := resolveStoreOptions(cfg, f)

	assert.Error(t, err)
}

func TestResolveStoreOptions_HNSWUsesMaxElementsDefault(t *testing.T) {
	cfg := config.NewConfig()
	f := &storeFlags{path: t.TempDir(), dim: 4, backend: "hnsw"}

	_, opts, err := resolveStoreOptions(cfg, f)

	require.NoError(t, err)
	assert.Equal(t, 20000, opts.MaxElements)
}
