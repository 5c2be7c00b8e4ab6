package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmem/agentmemdb/pkg/memdb"
)

func newQueryCmd() *cobra.Command {
	var (
		sf            storeFlags
		embedding     string
		topK          int
		minReward     float64
		tagsAny       string
		tagsAll       string
		taskIDPrefix  string
		timeAfter     int64
		timeBefore    int64
		source        string
		userID        string
		jsonOut       bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Find the nearest episodes to an embedding",
		Long:  `Run a filtered nearest-neighbor query against the store and print the matching episodes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			vec, err := parseEmbedding(embedding)
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg, &sf)
			if err != nil {
				return err
			}
			defer store.Close()

			k := topK
			if k == 0 {
				k = cfg.Query.DefaultTopK
			}
			opts := memdb.NewQueryOptions(float32(minReward), k)
			opts.TagsAny = parseTags(tagsAny)
			opts.TagsAll = parseTags(tagsAll)
			if taskIDPrefix != "" {
				opts.TaskIDPrefix = &taskIDPrefix
			}
			if timeAfter != 0 {
				opts.TimeAfter = &timeAfter
			}
			if timeBefore != 0 {
				opts.TimeBefore = &timeBefore
			}
			if source != "" {
				opts.Source = &source
			}
			if userID != "" {
				opts.UserID = &userID
			}

			results, err := store.QuerySimilarWithOptions(vec, opts)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no matching episodes")
				return err
			}
			for _, ep := range results {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  task=%s  reward=%.3f  tags=%v\n",
					ep.ID, ep.TaskID, ep.Reward, ep.Tags); err != nil {
					return err
				}
			}
			return nil
		},
	}

	addStoreFlags(cmd, &sf)
	cmd.Flags().StringVar(&embedding, "embedding", "", "Comma-separated query embedding")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of results to return (defaults to query.default_top_k)")
	cmd.Flags().Float64Var(&minReward, "min-reward", 0, "Minimum reward filter")
	cmd.Flags().StringVar(&tagsAny, "tags-any", "", "Match episodes carrying any of these tags")
	cmd.Flags().StringVar(&tagsAll, "tags-all", "", "Match episodes carrying all of these tags")
	cmd.Flags().StringVar(&taskIDPrefix, "task-id-prefix", "", "Match episodes whose task id has this prefix")
	cmd.Flags().Int64Var(&timeAfter, "time-after", 0, "Match episodes timestamped after this Unix-ms value")
	cmd.Flags().Int64Var(&timeBefore, "time-before", 0, "Match episodes timestamped before this Unix-ms value")
	cmd.Flags().StringVar(&source, "source", "", "Match episodes with this source")
	cmd.Flags().StringVar(&userID, "user-id", "", "Match episodes with this user id")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	_ = cmd.MarkFlagRequired("embedding")

	return cmd
}
