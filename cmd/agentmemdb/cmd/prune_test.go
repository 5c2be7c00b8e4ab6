package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneOlderThanCmd_RemovesOldEpisodes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	s1 := newStoreCmd()
	s1.SetOut(&bytes.Buffer{})
	s1.SetArgs([]string{
		"--store", dir, "--dim", "2", "--backend", "exact",
		"--task-id", "old", "--embedding", "1,0", "--reward", "0.5", "--timestamp", "1000",
	})
	require.NoError(t, s1.Execute())

	s2 := newStoreCmd()
	s2.SetOut(&bytes.Buffer{})
	s2.SetArgs([]string{
		"--store", dir, "--dim", "2", "--backend", "exact",
		"--task-id", "new", "--embedding", "0,1", "--reward", "0.5", "--timestamp", "5000",
	})
	require.NoError(t, s2.Execute())

	cmd := newPruneOlderThanCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", dir, "--dim", "2", "--cutoff-ms", "2000"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "removed 1 episodes")
	assert.Contains(t, buf.String(), "store now has 1")
}

func TestPruneKeepNewestCmd_RequiresN(t *testing.T) {
	cmd := newPruneKeepNewestCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--store", t.TempDir(), "--dim", "2"})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestPruneKeepHighestRewardCmd_RemovesLowestReward(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	for _, ep := range []struct {
		task   string
		reward string
	}{{"lo", "0.1"}, {"hi", "0.9"}} {
		s := newStoreCmd()
		s.SetOut(&bytes.Buffer{})
		s.SetArgs([]string{
			"--store", dir, "--dim", "2", "--backend", "exact",
			"--task-id", ep.task, "--embedding", "1,0", "--reward", ep.reward,
		})
		require.NoError(t, s.Execute())
	}

	cmd := newPruneKeepHighestRewardCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", dir, "--dim", "2", "--n", "1"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "removed 1 episodes")
}
