package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/gleaner/internal/models"
)

// createSearchContentTool returns the search_content tool definition
func createSearchContentTool() mcp.Tool {
	return mcp.NewTool("search_content",
		mcp.WithDescription("Search the content site and return the full text, author, engagement counts, tags and images of each matching post. Repeated searches within the cache TTL are answered from the cache."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search keywords, as typed into the site search box"),
		),
		mcp.WithNumber("count",
			mcp.Description("Number of posts to collect (default: 10, max: 50)"),
			mcp.Min(1),
			mcp.Max(models.MaxSearchCount),
		),
	)
}

// createCacheStatsTool returns the cache_stats tool definition
func createCacheStatsTool() mcp.Tool {
	return mcp.NewTool("cache_stats",
		mcp.WithDescription("Report how many searches are cached and the oldest and newest entries"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// createClearCacheTool returns the clear_cache tool definition
func createClearCacheTool() mcp.Tool {
	return mcp.NewTool("clear_cache",
		mcp.WithDescription("Remove every cached search result so the next search fetches fresh posts"),
		mcp.WithDestructiveHintAnnotation(true),
	)
}
