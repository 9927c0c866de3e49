package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SessionStorage keeps the cookie set of one site as a SessionRecord
type SessionStorage struct {
	db     *BadgerDB
	siteID string
	logger arbor.ILogger
}

// NewSessionStorage creates a SessionStorage for the given site ID (usually its host)
func NewSessionStorage(db *BadgerDB, siteID string, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		siteID: siteID,
		logger: logger,
	}
}

func (s *SessionStorage) LoadCookies(ctx context.Context) ([]*models.Cookie, bool, error) {
	var record models.SessionRecord
	if err := s.db.Store().Get(s.siteID, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get session: %w", err)
	}

	var cookies []*models.Cookie
	if err := json.Unmarshal(record.Cookies, &cookies); err != nil {
		return nil, false, fmt.Errorf("failed to decode stored cookies: %w", err)
	}
	return cookies, len(cookies) > 0, nil
}

func (s *SessionStorage) SaveCookies(ctx context.Context, cookies []*models.Cookie) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	now := time.Now()
	record := models.SessionRecord{
		ID:        s.siteID,
		Cookies:   data,
		Source:    "badger",
		CreatedAt: now,
		UpdatedAt: now,
	}

	var existing models.SessionRecord
	if err := s.db.Store().Get(s.siteID, &existing); err == nil {
		record.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Store().Upsert(s.siteID, &record); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug().Str("site", s.siteID).Int("cookies", len(cookies)).Msg("Session stored in badger")
	return nil
}

func (s *SessionStorage) DeleteCookies(ctx context.Context) error {
	if err := s.db.Store().Delete(s.siteID, &models.SessionRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
