package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckpointCmd() *cobra.Command {
	var sf storeFlags

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Snapshot an exact-backed store for fast reopen",
		Long: `Checkpoint writes exact_checkpoint.json for an exact-backed store,
letting a later Open skip replaying the whole episode log. On an
HNSW-backed store it is a no-op and writes nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, &sf)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Checkpoint(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "checkpointed %d episodes\n", store.Len())
			return err
		},
	}

	addStoreFlags(cmd, &sf)
	return cmd
}
