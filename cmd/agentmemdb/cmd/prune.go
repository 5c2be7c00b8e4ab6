package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove episodes by a retention policy",
	}

	cmd.AddCommand(newPruneOlderThanCmd())
	cmd.AddCommand(newPruneKeepNewestCmd())
	cmd.AddCommand(newPruneKeepHighestRewardCmd())

	return cmd
}

func newPruneOlderThanCmd() *cobra.Command {
	var sf storeFlags
	var cutoffMs int64

	cmd := &cobra.Command{
		Use:   "older-than",
		Short: "Remove episodes timestamped before a cutoff",
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

			removed, err := store.PruneOlderThan(cutoffMs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d episodes (store now has %d)\n", removed, store.Len())
			return err
		},
	}

	addStoreFlags(cmd, &sf)
	cmd.Flags().Int64Var(&cutoffMs, "cutoff-ms", 0, "Remove episodes with timestamp < this Unix-ms value")
	_ = cmd.MarkFlagRequired("cutoff-ms")

	return cmd
}

func newPruneKeepNewestCmd() *cobra.Command {
	var sf storeFlags
	var n int

	cmd := &cobra.Command{
		Use:   "keep-newest",
		Short: "Keep only the n most recently timestamped episodes",
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

			removed, err := store.PruneKeepNewest(n)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d episodes (store now has %d)\n", removed, store.Len())
			return err
		},
	}

	addStoreFlags(cmd, &sf)
	cmd.Flags().IntVar(&n, "n", 0, "Number of episodes to keep")
	_ = cmd.MarkFlagRequired("n")

	return cmd
}

func newPruneKeepHighestRewardCmd() *cobra.Command {
	var sf storeFlags
	var n int

	cmd := &cobra.Command{
		Use:   "keep-highest-reward",
		Short: "Keep only the n highest-reward episodes",
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

			removed, err := store.PruneKeepHighestReward(n)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d episodes (store now has %d)\n", removed, store.Len())
			return err
		},
	}

	addStoreFlags(cmd, &sf)
	cmd.Flags().IntVar(&n, "n", 0, "Number of episodes to keep")
	_ = cmd.MarkFlagRequired("n")

	return cmd
}
