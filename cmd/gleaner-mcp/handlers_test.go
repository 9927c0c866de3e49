package main

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
	"github.com/ternarybob/gleaner/internal/services/cache"
	"github.com/ternarybob/gleaner/internal/storage/file"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, count int) ([]models.DetailRecord, error) {
	args := m.Called(ctx, query, count)
	records, _ := args.Get(0).([]models.DetailRecord)
	return records, args.Error(1)
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), arguments map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	var request mcp.CallToolRequest
	request.Params.Arguments = arguments

	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return result, text.Text
}

func TestHandleSearchContent(t *testing.T) {
	service := new(MockSearchService)
	service.On("Search", mock.Anything, "coffee", 2).Return([]models.DetailRecord{
		{Title: "Pour over", Link: "https://site.test/explore/1", Content: "Bloom for 30 seconds", Author: "barista", Likes: 12000, Tags: []string{"coffee"}},
		models.NewDegradedRecord(models.LinkReference{Title: "Cold brew", URL: "https://site.test/explore/2"}),
	}, nil)

	result, text := callTool(t, handleSearchContent(service, arbor.NewLogger()), map[string]any{
		"query": " coffee ",
		"count": float64(2),
	})

	assert.False(t, result.IsError)
	assert.Contains(t, text, `Search Results for "coffee" (2 posts)`)
	assert.Contains(t, text, "Bloom for 30 seconds")
	assert.Contains(t, text, "**Likes:** 12000")
	assert.Contains(t, text, "Details could not be fetched")
	service.AssertExpectations(t)
}

func TestHandleSearchContent_Errors(t *testing.T) {
	service := new(MockSearchService)
	service.On("Search", mock.Anything, "tea", models.DefaultSearchCount).
		Return(nil, fmt.Errorf("%w: login not completed", interfaces.ErrSessionUnavailable))
	handler := handleSearchContent(service, arbor.NewLogger())

	result, text := callTool(t, handler, map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "query parameter is required")

	result, text = callTool(t, handler, map[string]any{"query": "tea", "count": float64(500)})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "Invalid request")

	result, text = callTool(t, handler, map[string]any{"query": "tea"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "gleaner login")
}

func TestCacheTools(t *testing.T) {
	logger := arbor.NewLogger()
	storage := file.NewCacheStorage(filepath.Join(t.TempDir(), "search-cache.json"), logger)
	cacheService := cache.NewService(storage, &common.CacheConfig{Enabled: true, TTL: "336h"}, logger)

	_, text := callTool(t, handleCacheStats(cacheService), nil)
	assert.Contains(t, text, "The cache is empty.")

	cacheService.Set(context.Background(), "coffee", 3, []models.DetailRecord{{Title: "Pour over"}})
	_, text = callTool(t, handleCacheStats(cacheService), nil)
	assert.Contains(t, text, "(1 entries)")
	assert.Contains(t, text, `"coffee" x3`)

	_, text = callTool(t, handleClearCache(cacheService, logger), nil)
	assert.Equal(t, "Cache cleared.", text)
	assert.Zero(t, cacheService.Stats(context.Background()).Total)
}
