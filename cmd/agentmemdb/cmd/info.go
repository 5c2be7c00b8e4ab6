package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// infoOutput is the JSON shape of `agentmemdb info`.
type infoOutput struct {
	Path        string `json:"path"`
	Dim         int    `json:"dim"`
	Episodes    int    `json:"episodes"`
	Backend     string `json:"backend"`
	MaxElements int    `json:"max_elements,omitempty"`
	DiskBytes   int64  `json:"disk_bytes"`
}

func newInfoCmd() *cobra.Command {
	var sf storeFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show store statistics and configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path, opts, err := resolveStoreOptions(cfg, &sf)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, &sf)
			if err != nil {
				return err
			}
			defer store.Close()

			out := infoOutput{
				Path:        path,
				Dim:         store.Dim(),
				Episodes:    store.Len(),
				Backend:     opts.IndexType,
				MaxElements: opts.MaxElements,
				DiskBytes:   dirSize(path),
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "store:    %s\n", out.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "backend:  %s\n", out.Backend)
			fmt.Fprintf(cmd.OutOrStdout(), "dim:      %d\n", out.Dim)
			fmt.Fprintf(cmd.OutOrStdout(), "episodes: %d\n", out.Episodes)
			if out.MaxElements > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "capacity: %d\n", out.MaxElements)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "on disk:  %s\n", humanize.Bytes(uint64(out.DiskBytes)))
			return nil
		},
	}

	addStoreFlags(cmd, &sf)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

// dirSize sums the size of every regular file directly under path
// (episodes.jsonl, meta.json, exact_checkpoint.json, the lock file).
// Errors walking the directory are treated as a zero-size result: info
// is a diagnostic, not something that should fail a user's session over
// a stat error.
func dirSize(path string) int64 {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		total += info.Size()
	}
	return total
}
