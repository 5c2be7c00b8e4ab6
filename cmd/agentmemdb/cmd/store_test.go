package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmem/agentmemdb/pkg/memdb"
)

func TestStoreCmd_StoresEpisodeAndPrintsSummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	cmd := newStoreCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		"--store", dir,
		"--dim", "3",
		"--backend", "exact",
		"--task-id", "task-1",
		"--embedding", "0.1,0.2,0.3",
		"--reward", "0.75",
		"--tags", "a,b",
	})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "stored episode")
	assert.Contains(t, buf.String(), "store now has 1 episodes")
}

func TestStoreCmd_JSONOutputsEpisode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	cmd := newStoreCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		"--store", dir,
		"--dim", "2",
		"--backend", "exact",
		"--task-id", "task-json",
		"--embedding", "1,2",
		"--reward", "1",
		"--json",
	})

	err := cmd.Execute()

	require.NoError(t, err)
	var ep memdb.Episode
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ep))
	assert.Equal(t, "task-json", ep.TaskID)
}

func TestStoreCmd_RequiresTaskIDAndEmbedding(t *testing.T) {
	cmd := newStoreCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--store", t.TempDir(), "--dim", "2"})

	err := cmd.Execute()

	assert.Error(t, err)
}
