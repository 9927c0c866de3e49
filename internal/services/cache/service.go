// Package cache provides the search result cache.
// Entries expire after a fixed TTL; expiry is applied when the store is first
// loaded, on every read of an expired entry, and by Sweep.
package cache

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// DefaultTTL is used when the configured ttl is missing or invalid
const DefaultTTL = 14 * 24 * time.Hour

// Service implements interfaces.CacheService on top of a CacheStorage.
// Every mutation is written to the store before the call returns. While the
// store cannot be read, the cache serves from memory and writes nothing.
type Service struct {
	storage interfaces.CacheStorage
	ttl     time.Duration
	logger  arbor.ILogger
	now     func() time.Time

	mu      sync.Mutex
	loaded  bool
	entries map[string]*models.CacheEntry
}

// NewService creates a cache over storage. The store is not read until the
// first operation.
func NewService(storage interfaces.CacheStorage, config *common.CacheConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		ttl:     common.ParseDurationOr(config.TTL, DefaultTTL),
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*models.CacheEntry),
	}
}

// TTL returns the entry lifetime
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// ensureInitialized loads the store until one load succeeds, merges it under
// the in-memory entries and drops expired ones, returning how many were
// dropped. Caller must hold s.mu.
func (s *Service) ensureInitialized(ctx context.Context) int {
	if s.loaded {
		return 0
	}

	entries, err := s.storage.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, interfaces.ErrCacheCorrupt):
		s.logger.Warn().Err(err).Msg("Cache store unreadable, starting empty")
		entries = nil
	default:
		s.logger.Warn().Err(err).Int("entries", len(s.entries)).Msg("Failed to load cache store, serving from memory")
		return 0
	}
	s.loaded = true

	pending := len(s.entries)
	for key, entry := range entries {
		if entry == nil {
			continue
		}
		if _, ok := s.entries[key]; ok {
			continue
		}
		entry.Key = key
		s.entries[key] = entry
	}

	removed := s.removeExpired()
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Expired cache entries removed on load")
	}
	if removed > 0 || pending > 0 {
		s.persist(ctx)
	}

	s.logger.Debug().Int("entries", len(s.entries)).Dur("ttl", s.ttl).Msg("Cache initialized")
	return removed
}

// removeExpired deletes expired entries and returns how many were removed.
// Caller must hold s.mu.
func (s *Service) removeExpired() int {
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.IsExpired(now, s.ttl) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *Service) persist(ctx context.Context) {
	if !s.loaded {
		return
	}
	if err := s.storage.Save(ctx, s.entries); err != nil {
		s.logger.Warn().Err(err).Int("entries", len(s.entries)).Msg("Failed to persist cache store")
	}
}

// Get returns the cached payload for query and count. An expired entry is
// deleted, the deletion persisted, and reported as a miss.
func (s *Service) Get(ctx context.Context, query string, count int) ([]models.DetailRecord, bool) {
	key := models.CacheKey(query, count)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized(ctx)

	entry, ok := s.entries[key]
	if !ok {
		s.logger.Debug().Str("key", key).Msg("Cache miss")
		return nil, false
	}

	if entry.IsExpired(s.now(), s.ttl) {
		delete(s.entries, key)
		s.persist(ctx)
		s.logger.Debug().Str("key", key).Str("stored_at", entry.StoredAt().Format(time.RFC3339)).Msg("Cache entry expired")
		return nil, false
	}

	s.logger.Debug().Str("key", key).Int("items", len(entry.Data)).Msg("Cache hit")
	return slices.Clone(entry.Data), true
}

// Set stores data under query and count, replacing any existing entry
func (s *Service) Set(ctx context.Context, query string, count int, data []models.DetailRecord) {
	key := models.CacheKey(query, count)
	data = slices.Clone(data)
	if data == nil {
		data = []models.DetailRecord{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized(ctx)

	s.entries[key] = &models.CacheEntry{
		Key:       key,
		Data:      data,
		Timestamp: s.now().UnixMilli(),
		Query:     query,
		Count:     count,
	}
	s.persist(ctx)

	s.logger.Debug().Str("key", key).Int("items", len(data)).Msg("Cache entry stored")
}

// Clear removes every entry and persists the empty store
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized(ctx)

	removed := len(s.entries)
	s.entries = make(map[string]*models.CacheEntry)
	if s.loaded {
		s.persist(ctx)
	} else if err := s.storage.Save(ctx, s.entries); err == nil {
		// An empty store is the intended state whatever it held
		s.loaded = true
	}

	s.logger.Info().Int("removed", removed).Msg("Cache cleared")
}

// Stats reports the entry count and the oldest and newest entries
func (s *Service) Stats(ctx context.Context) models.CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized(ctx)

	stats := models.CacheStats{Total: len(s.entries)}
	var oldest, newest *models.CacheEntry
	for _, entry := range s.entries {
		if oldest == nil || entry.Timestamp < oldest.Timestamp {
			oldest = entry
		}
		if newest == nil || entry.Timestamp > newest.Timestamp {
			newest = entry
		}
	}
	if oldest != nil {
		stats.Oldest = summarize(oldest)
		stats.Newest = summarize(newest)
	}
	return stats
}

// Sweep removes every expired entry, persisting only when something changed
func (s *Service) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if removed := s.ensureInitialized(ctx); s.loaded {
			return removed
		}
	}

	removed := s.removeExpired()
	if removed > 0 {
		s.persist(ctx)
	}
	s.logger.Debug().Int("removed", removed).Int("remaining", len(s.entries)).Msg("Cache sweep complete")
	return removed
}

func summarize(entry *models.CacheEntry) *models.CacheEntrySummary {
	return &models.CacheEntrySummary{
		Key:      entry.Key,
		Query:    entry.Query,
		Count:    entry.Count,
		StoredAt: entry.StoredAt(),
	}
}
