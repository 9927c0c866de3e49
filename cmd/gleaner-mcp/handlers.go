package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// handleSearchContent implements the search_content tool
func handleSearchContent(searchService interfaces.SearchService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse query parameter (required)
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("Error: query parameter is required"), nil
		}

		searchRequest := models.SearchRequest{
			Query: query,
			Count: request.GetInt("count", models.DefaultSearchCount),
		}
		searchRequest.Normalize()
		if err := searchRequest.Validate(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid request: %v", err)), nil
		}

		records, err := searchService.Search(ctx, searchRequest.Query, searchRequest.Count)
		if err != nil {
			logger.Error().Err(err).Str("query", searchRequest.Query).Msg("Search failed")
			if errors.Is(err, interfaces.ErrSessionUnavailable) {
				return mcp.NewToolResultError("Session unavailable: run 'gleaner login' on this machine, then retry"), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Search error: %v", err)), nil
		}

		return mcp.NewToolResultText(formatSearchResults(searchRequest.Query, records)), nil
	}
}

// handleCacheStats implements the cache_stats tool
func handleCacheStats(cacheService interfaces.CacheService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(formatCacheStats(cacheService.Stats(ctx))), nil
	}
}

// handleClearCache implements the clear_cache tool
func handleClearCache(cacheService interfaces.CacheService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cacheService.Clear(ctx)
		logger.Info().Msg("Cache cleared via MCP")
		return mcp.NewToolResultText("Cache cleared."), nil
	}
}
