package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// SessionStorage stores cookies as a JSON array in the browser export format
type SessionStorage struct {
	path   string
	logger arbor.ILogger
}

// NewSessionStorage creates a SessionStorage backed by the cookie file at path
func NewSessionStorage(path string, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		path:   path,
		logger: logger,
	}
}

func (s *SessionStorage) LoadCookies(ctx context.Context) ([]*models.Cookie, bool, error) {
	data, found, err := readFile(s.path)
	if err != nil || !found {
		return nil, false, err
	}

	var cookies []*models.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, false, fmt.Errorf("failed to parse cookie file %s: %w", s.path, err)
	}
	return cookies, len(cookies) > 0, nil
}

func (s *SessionStorage) SaveCookies(ctx context.Context, cookies []*models.Cookie) error {
	if cookies == nil {
		cookies = []*models.Cookie{}
	}
	if err := writeJSON(s.path, cookies); err != nil {
		return err
	}
	s.logger.Debug().Str("path", s.path).Int("cookies", len(cookies)).Msg("Session cookies written")
	return nil
}

func (s *SessionStorage) DeleteCookies(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cookie file %s: %w", s.path, err)
	}
	return nil
}
