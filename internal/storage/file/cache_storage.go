package file

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// CacheStorage persists the cache as one JSON object:
// {"normalizedQuery:count": {"data": [...], "timestamp": ms, "query": "...", "count": n}}
type CacheStorage struct {
	path   string
	logger arbor.ILogger
}

// NewCacheStorage creates a CacheStorage backed by the JSON file at path
func NewCacheStorage(path string, logger arbor.ILogger) interfaces.CacheStorage {
	return &CacheStorage{
		path:   path,
		logger: logger,
	}
}

func (s *CacheStorage) Load(ctx context.Context) (map[string]*models.CacheEntry, error) {
	entries := make(map[string]*models.CacheEntry)

	data, found, err := readFile(s.path)
	if err != nil {
		return entries, fmt.Errorf("%w: %v", interfaces.ErrCacheIO, err)
	}
	if !found || len(data) == 0 {
		return entries, nil
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		return make(map[string]*models.CacheEntry), fmt.Errorf("%w: %w: failed to parse %s: %v", interfaces.ErrCacheIO, interfaces.ErrCacheCorrupt, s.path, err)
	}

	for key, entry := range entries {
		if entry == nil {
			delete(entries, key)
			continue
		}
		entry.Key = key
	}
	return entries, nil
}

func (s *CacheStorage) Save(ctx context.Context, entries map[string]*models.CacheEntry) error {
	if entries == nil {
		entries = map[string]*models.CacheEntry{}
	}
	if err := writeJSON(s.path, entries); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrCacheIO, err)
	}
	s.logger.Debug().Str("path", s.path).Int("entries", len(entries)).Msg("Cache store written")
	return nil
}
