package file

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
)

// Manager implements the StorageManager interface with JSON files
type Manager struct {
	session interfaces.SessionStorage
	cache   interfaces.CacheStorage
}

// NewManager creates a file storage manager for the given cookie and cache paths
func NewManager(logger arbor.ILogger, cookieFile, cacheFile string) *Manager {
	return &Manager{
		session: NewSessionStorage(cookieFile, logger),
		cache:   NewCacheStorage(cacheFile, logger),
	}
}

func (m *Manager) SessionStorage() interfaces.SessionStorage {
	return m.session
}

func (m *Manager) CacheStorage() interfaces.CacheStorage {
	return m.cache
}

// Close is a no-op; files are not held open between calls
func (m *Manager) Close() error {
	return nil
}
