package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// ErrInvalidRequest is returned for an empty query or a non-positive count
var ErrInvalidRequest = errors.New("invalid search request")

// CachedSearchService consults the result cache before running the pipeline
// and stores non-empty results afterwards
type CachedSearchService struct {
	pipeline interfaces.SearchPipeline
	cache    interfaces.CacheService
	logger   arbor.ILogger
}

// NewCachedSearchService wraps pipeline with cache
func NewCachedSearchService(pipeline interfaces.SearchPipeline, cache interfaces.CacheService, logger arbor.ILogger) *CachedSearchService {
	return &CachedSearchService{
		pipeline: pipeline,
		cache:    cache,
		logger:   logger,
	}
}

func (s *CachedSearchService) Search(ctx context.Context, query string, count int) ([]models.DetailRecord, error) {
	if err := validateRequest(query, count); err != nil {
		return nil, err
	}

	if data, found := s.cache.Get(ctx, query, count); found {
		s.logger.Info().Str("query", query).Int("count", count).Int("records", len(data)).Msg("Returning cached search result")
		return data, nil
	}

	records, err := s.pipeline.Run(ctx, query, count)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		s.cache.Set(ctx, query, count, records)
	}
	return records, nil
}

// UncachedSearchService runs the pipeline for every request
type UncachedSearchService struct {
	pipeline interfaces.SearchPipeline
}

// NewUncachedSearchService creates a search service without caching
func NewUncachedSearchService(pipeline interfaces.SearchPipeline) *UncachedSearchService {
	return &UncachedSearchService{pipeline: pipeline}
}

func (s *UncachedSearchService) Search(ctx context.Context, query string, count int) ([]models.DetailRecord, error) {
	if err := validateRequest(query, count); err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, query, count)
}

func validateRequest(query string, count int) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if count <= 0 {
		return fmt.Errorf("%w: count must be positive", ErrInvalidRequest)
	}
	return nil
}
