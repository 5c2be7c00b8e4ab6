package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentmem/agentmemdb/internal/logging"
	"github.com/agentmem/agentmemdb/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	var sf storeFlags
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose a store to AI agents over the Model Context Protocol",
		Long: `serve opens a store and runs an MCP server over it, exposing
store_episode, query_similar, prune_older_than, prune_keep_newest, and
prune_keep_highest_reward as tools an MCP client can call.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			t := transport
			if t == "" {
				t = cfg.Server.Transport
			}

			// stdio is the MCP wire itself: any stray write to stdout or
			// stderr corrupts the JSON-RPC stream, so logging must switch
			// to file-only before anything else runs.
			if t == "stdio" {
				level := "info"
				if debugMode {
					level = "debug"
				}
				cleanup, err := logging.SetupMCPModeWithLevel(level)
				if err != nil {
					return err
				}
				defer cleanup()
			}

			store, err := openStore(cmd.Context(), cfg, &sf)
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := mcpserver.NewServer(store, cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			return srv.Serve(cmd.Context(), t)
		},
	}

	addStoreFlags(cmd, &sf)
	cmd.Flags().StringVar(&transport, "transport", "", "MCP transport: stdio (defaults to the configured transport)")

	return cmd
}
