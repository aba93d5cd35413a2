// Package mcp provides a Model Context Protocol server over a distilled
// memory store.
//
// It exposes semantic search and store statistics as MCP tools over stdio
// transport, so coding agents can retrieve extracted advice at the moment
// it applies.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/quarrylab/distill/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   *store.VectorStore
	Version string
}

// storeMu serializes tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently via goroutines, and SQLite
// supports only one writer at a time.
var storeMu sync.Mutex

// NewServer creates a configured MCP server with all tools registered.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Distill",
		ver,
		server.WithToolCapabilities(false),
	)

	registerSearchTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)

	return s
}

// Serve runs the server on stdio until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

type searchHit struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Context string  `json:"context"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

func registerSearchTool(s *server.MCPServer, vs *store.VectorStore) {
	tool := mcp.NewTool("search_memories",
		mcp.WithDescription("Search extracted documentation memories by semantic similarity. Returns scored results with source provenance. Falls back to substring matching when no embedder is configured."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10, max: 50)"),
		),
		mcp.WithNumber("min_similarity",
			mcp.Description("Minimum cosine similarity for semantic results (default: 0.3)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		storeMu.Lock()
		defer storeMu.Unlock()

		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		limit := 10
		if limitVal, err := req.RequireFloat("limit"); err == nil {
			if v := int(limitVal); v > 0 {
				limit = v
			}
			if limit > 50 {
				limit = 50
			}
		}

		minSim := 0.3
		if simVal, err := req.RequireFloat("min_similarity"); err == nil && simVal > 0 {
			minSim = simVal
		}

		var results []store.SearchResult
		if embedder := vs.Embedder(); embedder != nil {
			vector, err := embedder.Embed(ctx, query)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("embedding query: %v", err)), nil
			}
			results, err = vs.Search(ctx, vector, limit, minSim)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
			}
		} else {
			results, err = vs.SearchText(ctx, query, limit)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
			}
		}

		hits := make([]searchHit, len(results))
		for i, r := range results {
			hits[i] = searchHit{
				ID:      r.Memory.ID,
				Text:    r.Memory.Text,
				Context: r.Memory.Context,
				Source:  r.Memory.Source,
				Score:   r.Score,
			}
		}

		payload, err := json.MarshalIndent(hits, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}

func registerStatsTool(s *server.MCPServer, vs *store.VectorStore) {
	tool := mcp.NewTool("memory_stats",
		mcp.WithDescription("Report how many memories are stored, how many have embeddings, and the database size."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		storeMu.Lock()
		defer storeMu.Unlock()

		stats, err := vs.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reading stats: %v", err)), nil
		}

		payload, err := json.MarshalIndent(map[string]int64{
			"memories":      stats.MemoryCount,
			"embeddings":    stats.EmbeddingCount,
			"db_size_bytes": stats.DBSizeBytes,
		}, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding stats: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}
