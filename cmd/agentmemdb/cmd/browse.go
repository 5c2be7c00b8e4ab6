package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentmem/agentmemdb/internal/tui"
	"github.com/agentmem/agentmemdb/internal/ui"
)

func newBrowseCmd() *cobra.Command {
	var sf storeFlags
	var noColor bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactively browse a store's episodes",
		Long: `browse opens a store and launches a terminal UI table of its
episodes, sorted newest-first, with reward and tag columns for a quick
eyeball of what an agent has recorded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path, _, err := resolveStoreOptions(cfg, &sf)
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg, &sf)
			if err != nil {
				return err
			}
			defer store.Close()

			disableColor := noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout())
			return tui.Run(store, path, disableColor)
		},
	}

	addStoreFlags(cmd, &sf)
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output (also disabled automatically when NO_COLOR is set or output isn't a terminal)")

	return cmd
}
