package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmem/agentmemdb/pkg/memdb"
)

func newStoreCmd() *cobra.Command {
	var (
		sf        storeFlags
		taskID    string
		embedding string
		reward    float64
		metadata  string
		tags      string
		source    string
		userID    string
		timestamp int64
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store an episode",
		Long:  `Store a single episode (embedding, reward, and optional metadata) in the store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			vec, err := parseEmbedding(embedding)
			if err != nil {
				return err
			}
			meta, err := parseMetadata(metadata)
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg, &sf)
			if err != nil {
				return err
			}
			defer store.Close()

			ep := memdb.NewEpisode(taskID, vec, float32(reward))
			ep.Metadata = meta
			if t := parseTags(tags); t != nil {
				ep = ep.WithTags(t)
			}
			if source != "" {
				ep = ep.WithSource(source)
			}
			if userID != "" {
				ep = ep.WithUserID(userID)
			}
			if timestamp != 0 {
				ep = ep.WithTimestamp(timestamp)
			}

			if err := store.StoreEpisode(ep); err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ep)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored episode %s (store now has %d episodes)\n", ep.ID, store.Len())
			return err
		},
	}

	addStoreFlags(cmd, &sf)
	cmd.Flags().StringVar(&taskID, "task-id", "", "Task identifier")
	cmd.Flags().StringVar(&embedding, "embedding", "", "Comma-separated embedding vector, e.g. 0.1,0.2,0.3")
	cmd.Flags().Float64Var(&reward, "reward", 0, "Scalar reward")
	cmd.Flags().StringVar(&metadata, "metadata", "", "Metadata as a JSON value")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVar(&source, "source", "", "Source label")
	cmd.Flags().StringVar(&userID, "user-id", "", "User id")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Unix-ms timestamp (defaults to unset)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the stored episode as JSON")
	_ = cmd.MarkFlagRequired("task-id")
	_ = cmd.MarkFlagRequired("embedding")

	return cmd
}
