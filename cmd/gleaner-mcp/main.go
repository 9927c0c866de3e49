package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/gleaner/internal/app"
	"github.com/ternarybob/gleaner/internal/common"
)

func main() {
	// Load configuration (comma-separated list, later files override earlier ones)
	configPath := os.Getenv("GLEANER_CONFIG")
	if configPath == "" {
		configPath = "gleaner.toml"
	}

	var paths []string
	for _, path := range strings.Split(configPath, ",") {
		if path = strings.TrimSpace(path); path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}

	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP stream, so logs go to the log file only
	config.Logging.Output = []string{"file"}
	logger := common.InitLogger(config)

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"gleaner",
		common.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	// Register tools
	mcpServer.AddTool(createSearchContentTool(), handleSearchContent(application.SearchService, logger))
	mcpServer.AddTool(createCacheStatsTool(), handleCacheStats(application.CacheService))
	mcpServer.AddTool(createClearCacheTool(), handleClearCache(application.CacheService, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}
