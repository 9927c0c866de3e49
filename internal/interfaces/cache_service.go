// Package interfaces provides service interfaces for dependency injection.
package interfaces

import (
	"context"

	"github.com/ternarybob/gleaner/internal/models"
)

// CacheService stores completed search results for a bounded time.
// A nil slice with found=false is a miss.
type CacheService interface {
	Get(ctx context.Context, query string, count int) ([]models.DetailRecord, bool)
	Set(ctx context.Context, query string, count int, data []models.DetailRecord)
	Clear(ctx context.Context)
	Stats(ctx context.Context) models.CacheStats

	// Sweep removes every expired entry and returns how many were dropped
	Sweep(ctx context.Context) int
}
