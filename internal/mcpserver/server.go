// Package mcpserver exposes a memdb.Store over the Model Context Protocol,
// letting an AI agent store episodes and query them as MCP tools instead
// of shelling out to the CLI.
package mcpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentmem/agentmemdb/internal/config"
	memerrors "github.com/agentmem/agentmemdb/internal/errors"
	"github.com/agentmem/agentmemdb/pkg/memdb"
	"github.com/agentmem/agentmemdb/pkg/version"
)

// Server is the MCP server for agentmemdb. It bridges AI agents (Claude
// Code, Cursor, or any MCP client) with a single open memdb.Store.
type Server struct {
	mcp    *mcp.Server
	store  memdb.Store
	config *config.Config
	logger *slog.Logger

	mu sync.RWMutex
}

// ToolInfo describes a registered tool, for introspection outside the
// MCP SDK's own request/response cycle.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server wrapping store. cfg may be nil, in
// which case config.NewConfig() defaults are used.
func NewServer(store memdb.Store, cfg *config.Config) (*Server, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		store:  store,
		config: cfg,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "agentmemdb",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "agentmemdb", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "store_episode", Description: "Store an episode (state embedding, scalar reward, and optional metadata) in the memory store."},
		{Name: "query_similar", Description: "Find the episodes whose state embedding is nearest to a query embedding, optionally filtered by reward, tags, source, user, time window, or task id prefix."},
		{Name: "prune_older_than", Description: "Remove episodes timestamped before a cutoff (Unix milliseconds)."},
		{Name: "prune_keep_newest", Description: "Keep only the n most recently timestamped episodes, removing the rest."},
		{Name: "prune_keep_highest_reward", Description: "Keep only the n highest-reward episodes, removing the rest."},
	}
}

func (s *Server) registerTools() {
	s.logger.Debug("registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "store_episode",
		Description: "Store an episode (state embedding, scalar reward, and optional metadata) in the memory store.",
	}, s.mcpStoreEpisodeHandler)
	s.logger.Debug("registered tool", slog.String("name", "store_episode"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_similar",
		Description: "Find the episodes whose state embedding is nearest to a query embedding, with optional filters.",
	}, s.mcpQuerySimilarHandler)
	s.logger.Debug("registered tool", slog.String("name", "query_similar"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "prune_older_than",
		Description: "Remove episodes timestamped before a cutoff (Unix milliseconds).",
	}, s.mcpPruneOlderThanHandler)
	s.logger.Debug("registered tool", slog.String("name", "prune_older_than"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "prune_keep_newest",
		Description: "Keep only the n most recently timestamped episodes.",
	}, s.mcpPruneKeepNewestHandler)
	s.logger.Debug("registered tool", slog.String("name", "prune_keep_newest"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "prune_keep_highest_reward",
		Description: "Keep only the n highest-reward episodes.",
	}, s.mcpPruneKeepHighestRewardHandler)
	s.logger.Debug("registered tool", slog.String("name", "prune_keep_highest_reward"))

	s.logger.Info("MCP tools registered", slog.Int("count", 5))
}

// Serve starts the server with the specified transport. Only stdio is
// implemented; sse is rejected the way the teacher rejects it, as a
// placeholder for a future transport rather than a silent no-op.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	case "sse":
		return fmt.Errorf("sse transport not yet implemented")
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources. The underlying store is owned by the
// caller (typically cmd/agentmemdb/cmd/serve.go) and is not closed here.
func (s *Server) Close() error {
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return memerrors.FromMemDBErr(err)
}
