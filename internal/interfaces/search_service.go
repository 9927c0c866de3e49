package interfaces

import (
	"context"

	"github.com/ternarybob/gleaner/internal/models"
)

// SearchService runs a cached content search.
// The only non-context error it returns is ErrSessionUnavailable.
type SearchService interface {
	Search(ctx context.Context, query string, count int) ([]models.DetailRecord, error)
}

// SearchPipeline runs one uncached search against the site
type SearchPipeline interface {
	Run(ctx context.Context, query string, count int) ([]models.DetailRecord, error)
}
