package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentmem/agentmemdb/pkg/memdb"
)

// StoreEpisodeInput defines the input schema for the store_episode tool.
type StoreEpisodeInput struct {
	TaskID         string   `json:"task_id" jsonschema:"identifier for the task or trajectory this episode belongs to"`
	StateEmbedding []float32 `json:"state_embedding" jsonschema:"the episode's state embedding vector"`
	Reward         float32  `json:"reward" jsonschema:"scalar reward for this episode"`
	Metadata       any      `json:"metadata,omitempty" jsonschema:"arbitrary JSON metadata attached to the episode"`
	Timestamp      *int64   `json:"timestamp,omitempty" jsonschema:"Unix milliseconds; left unset if omitted"`
	Tags           []string `json:"tags,omitempty" jsonschema:"categorical tags for filtering"`
	Source         string   `json:"source,omitempty" jsonschema:"source system or agent that produced this episode"`
	UserID         string   `json:"user_id,omitempty" jsonschema:"user or session id this episode belongs to"`
}

// StoreEpisodeOutput defines the output schema for the store_episode tool.
type StoreEpisodeOutput struct {
	ID string `json:"id" jsonschema:"the stored episode's id"`
}

// QuerySimilarInput defines the input schema for the query_similar tool.
type QuerySimilarInput struct {
	QueryEmbedding []float32 `json:"query_embedding" jsonschema:"the embedding to search near"`
	TopK           int      `json:"top_k,omitempty" jsonschema:"maximum number of results, default from server config"`
	MinReward      float32  `json:"min_reward,omitempty" jsonschema:"only return episodes with at least this reward"`
	TagsAny        []string `json:"tags_any,omitempty" jsonschema:"only return episodes carrying at least one of these tags"`
	TagsAll        []string `json:"tags_all,omitempty" jsonschema:"only return episodes carrying all of these tags"`
	TaskIDPrefix   string   `json:"task_id_prefix,omitempty" jsonschema:"only return episodes whose task id has this prefix"`
	TimeAfter      *int64   `json:"time_after,omitempty" jsonschema:"only return episodes timestamped after this Unix-ms value"`
	TimeBefore     *int64   `json:"time_before,omitempty" jsonschema:"only return episodes timestamped before this Unix-ms value"`
	Source         string   `json:"source,omitempty" jsonschema:"only return episodes with this source"`
	UserID         string   `json:"user_id,omitempty" jsonschema:"only return episodes with this user id"`
}

// QuerySimilarOutput defines the output schema for the query_similar tool.
type QuerySimilarOutput struct {
	Episodes []memdb.Episode `json:"episodes" jsonschema:"matching episodes, nearest first"`
}

// PruneOlderThanInput defines the input schema for the prune_older_than tool.
type PruneOlderThanInput struct {
	CutoffMs int64 `json:"cutoff_ms" jsonschema:"remove episodes timestamped before this Unix-ms value"`
}

// PruneKeepNewestInput defines the input schema for the prune_keep_newest tool.
type PruneKeepNewestInput struct {
	N int `json:"n" jsonschema:"number of most recently timestamped episodes to keep"`
}

// PruneKeepHighestRewardInput defines the input schema for the prune_keep_highest_reward tool.
type PruneKeepHighestRewardInput struct {
	N int `json:"n" jsonschema:"number of highest-reward episodes to keep"`
}

// PruneOutput defines the output schema shared by every prune tool.
type PruneOutput struct {
	Removed   int `json:"removed" jsonschema:"number of episodes removed"`
	Remaining int `json:"remaining" jsonschema:"number of episodes left in the store"`
}

func (s *Server) mcpStoreEpisodeHandler(ctx context.Context, _ *mcp.CallToolRequest, input StoreEpisodeInput) (
	*mcp.CallToolResult,
	StoreEpisodeOutput,
	error,
) {
	requestID := generateRequestID()

	if input.TaskID == "" {
		return nil, StoreEpisodeOutput{}, NewInvalidParamsError("task_id is required")
	}
	if len(input.StateEmbedding) == 0 {
		return nil, StoreEpisodeOutput{}, NewInvalidParamsError("state_embedding is required")
	}

	ep := memdb.NewEpisode(input.TaskID, input.StateEmbedding, input.Reward)
	ep.Metadata = input.Metadata
	if input.Timestamp != nil {
		ep = ep.WithTimestamp(*input.Timestamp)
	}
	if input.Tags != nil {
		ep = ep.WithTags(input.Tags)
	}
	if input.Source != "" {
		ep = ep.WithSource(input.Source)
	}
	if input.UserID != "" {
		ep = ep.WithUserID(input.UserID)
	}

	s.mu.Lock()
	err := s.store.StoreEpisode(ep)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("store_episode failed", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, StoreEpisodeOutput{}, MapError(mapStoreErr(err))
	}

	return nil, StoreEpisodeOutput{ID: ep.ID.String()}, nil
}

func (s *Server) mcpQuerySimilarHandler(ctx context.Context, _ *mcp.CallToolRequest, input QuerySimilarInput) (
	*mcp.CallToolResult,
	QuerySimilarOutput,
	error,
) {
	if len(input.QueryEmbedding) == 0 {
		return nil, QuerySimilarOutput{}, NewInvalidParamsError("query_embedding is required")
	}

	topK := input.TopK
	if topK <= 0 {
		topK = s.config.Query.DefaultTopK
	}

	opts := memdb.NewQueryOptions(input.MinReward, topK)
	opts.TagsAny = input.TagsAny
	opts.TagsAll = input.TagsAll
	if input.TaskIDPrefix != "" {
		opts.TaskIDPrefix = &input.TaskIDPrefix
	}
	opts.TimeAfter = input.TimeAfter
	opts.TimeBefore = input.TimeBefore
	if input.Source != "" {
		opts.Source = &input.Source
	}
	if input.UserID != "" {
		opts.UserID = &input.UserID
	}

	s.mu.RLock()
	results, err := s.store.QuerySimilarWithOptions(input.QueryEmbedding, opts)
	s.mu.RUnlock()
	if err != nil {
		return nil, QuerySimilarOutput{}, MapError(mapStoreErr(err))
	}

	return nil, QuerySimilarOutput{Episodes: results}, nil
}

func (s *Server) mcpPruneOlderThanHandler(ctx context.Context, _ *mcp.CallToolRequest, input PruneOlderThanInput) (
	*mcp.CallToolResult,
	PruneOutput,
	error,
) {
	s.mu.Lock()
	removed, err := s.store.PruneOlderThan(input.CutoffMs)
	remaining := s.store.Len()
	s.mu.Unlock()
	if err != nil {
		return nil, PruneOutput{}, MapError(mapStoreErr(err))
	}
	return nil, PruneOutput{Removed: removed, Remaining: remaining}, nil
}

func (s *Server) mcpPruneKeepNewestHandler(ctx context.Context, _ *mcp.CallToolRequest, input PruneKeepNewestInput) (
	*mcp.CallToolResult,
	PruneOutput,
	error,
) {
	s.mu.Lock()
	removed, err := s.store.PruneKeepNewest(input.N)
	remaining := s.store.Len()
	s.mu.Unlock()
	if err != nil {
		return nil, PruneOutput{}, MapError(mapStoreErr(err))
	}
	return nil, PruneOutput{Removed: removed, Remaining: remaining}, nil
}

func (s *Server) mcpPruneKeepHighestRewardHandler(ctx context.Context, _ *mcp.CallToolRequest, input PruneKeepHighestRewardInput) (
	*mcp.CallToolResult,
	PruneOutput,
	error,
) {
	s.mu.Lock()
	removed, err := s.store.PruneKeepHighestReward(input.N)
	remaining := s.store.Len()
	s.mu.Unlock()
	if err != nil {
		return nil, PruneOutput{}, MapError(mapStoreErr(err))
	}
	return nil, PruneOutput{Removed: removed, Remaining: remaining}, nil
}
