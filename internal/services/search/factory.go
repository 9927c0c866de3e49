package search

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
)

// NewSearchService creates the search service for the configuration.
// With cache.enabled the pipeline is wrapped by the result cache; otherwise
// every search runs the pipeline.
func NewSearchService(
	pipeline interfaces.SearchPipeline,
	cache interfaces.CacheService,
	logger arbor.ILogger,
	config *common.Config,
) interfaces.SearchService {
	if !config.Cache.Enabled || cache == nil {
		logger.Warn().
			Bool("cache_enabled", config.Cache.Enabled).
			Msg("Result cache disabled: every search runs the browser pipeline")
		return NewUncachedSearchService(pipeline)
	}

	logger.Info().
		Str("store", config.Cache.Store).
		Str("ttl", config.Cache.TTL).
		Msg("Initializing cached search service")
	return NewCachedSearchService(pipeline, cache, logger)
}
