package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/gleaner/internal/models"
)

// ErrCacheIO wraps persistence failures of the result cache store
var ErrCacheIO = errors.New("cache store i/o failed")

// ErrCacheCorrupt marks a cache store that was read but could not be parsed.
// Such a store is replaced on the next write.
var ErrCacheCorrupt = errors.New("cache store unreadable")

// SessionStorage is the durable location of the captured cookie set
type SessionStorage interface {
	// LoadCookies returns found=false when nothing has been saved yet
	LoadCookies(ctx context.Context) ([]*models.Cookie, bool, error)
	SaveCookies(ctx context.Context, cookies []*models.Cookie) error
	DeleteCookies(ctx context.Context) error
}

// CacheStorage persists the complete result cache map.
// Every Save replaces the stored state.
type CacheStorage interface {
	Load(ctx context.Context) (map[string]*models.CacheEntry, error)
	Save(ctx context.Context, entries map[string]*models.CacheEntry) error
}

// StorageManager hands out the configured stores and owns their lifecycle
type StorageManager interface {
	SessionStorage() SessionStorage
	CacheStorage() CacheStorage
	Close() error
}
