package tui

import (
	"math"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentmem/agentmemdb/pkg/memdb"
)

// Run launches the interactive browser over every episode currently in
// store, blocking until the user quits.
func Run(store memdb.Store, storeLabel string, noColor bool) error {
	episodes, err := allEpisodes(store)
	if err != nil {
		return err
	}

	m := NewModel(episodes, storeLabel, noColor)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// allEpisodes retrieves every episode in store via an unrestricted
// similarity query: a zero vector with no reward floor and topK set to
// the store's full size. Stores expose ranked retrieval, not enumeration,
// so this is the browser's way of asking for "everything".
func allEpisodes(store memdb.Store) ([]memdb.Episode, error) {
	n := store.Len()
	if n == 0 {
		return nil, nil
	}

	zero := make([]float32, store.Dim())
	opts := memdb.NewQueryOptions(float32(math.Inf(-1)), n)
	return store.QuerySimilarWithOptions(zero, opts)
}
