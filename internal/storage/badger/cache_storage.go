package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// CacheStorage keeps one badgerhold record per cache key
type CacheStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCacheStorage creates a new CacheStorage instance
func NewCacheStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CacheStorage {
	return &CacheStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CacheStorage) Load(ctx context.Context) (map[string]*models.CacheEntry, error) {
	var entries []models.CacheEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("%w: failed to list cache entries: %v", interfaces.ErrCacheIO, err)
	}

	result := make(map[string]*models.CacheEntry, len(entries))
	for i := range entries {
		result[entries[i].Key] = &entries[i]
	}
	return result, nil
}

// Save replaces every stored entry with entries in a single transaction
func (s *CacheStorage) Save(ctx context.Context, entries map[string]*models.CacheEntry) error {
	store := s.db.Store()

	err := store.Badger().Update(func(tx *badger.Txn) error {
		if err := store.TxDeleteMatching(tx, &models.CacheEntry{}, nil); err != nil {
			return err
		}
		for key, entry := range entries {
			entry.Key = key
			if err := store.TxUpsert(tx, key, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save cache entries: %v", interfaces.ErrCacheIO, err)
	}

	s.logger.Debug().Int("entries", len(entries)).Msg("Cache entries saved to badger")
	return nil
}
