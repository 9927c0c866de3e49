package storage

import (
	"net/url"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/storage/badger"
	"github.com/ternarybob/gleaner/internal/storage/file"
)

// manager pairs the configured session and cache stores.
// Badger is only opened when at least one store asks for it.
type manager struct {
	session interfaces.SessionStorage
	cache   interfaces.CacheStorage
	closer  func() error
}

func (m *manager) SessionStorage() interfaces.SessionStorage { return m.session }
func (m *manager) CacheStorage() interfaces.CacheStorage     { return m.cache }

func (m *manager) Close() error {
	if m.closer != nil {
		return m.closer()
	}
	return nil
}

// NewStorageManager creates the session and cache stores selected by
// session.store and cache.store
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	files := file.NewManager(logger, config.Session.CookieFile, config.Cache.File)

	if config.Session.Store != "badger" && config.Cache.Store != "badger" {
		return files, nil
	}

	db, err := badger.NewManager(logger, &config.Storage.Badger, siteID(config.Site.HomeURL))
	if err != nil {
		return nil, err
	}

	m := &manager{
		session: files.SessionStorage(),
		cache:   files.CacheStorage(),
		closer:  db.Close,
	}
	if config.Session.Store == "badger" {
		m.session = db.SessionStorage()
	}
	if config.Cache.Store == "badger" {
		m.cache = db.CacheStorage()
	}
	return m, nil
}

// siteID keys stored sessions by host so one database can serve several sites
func siteID(homeURL string) string {
	u, err := url.Parse(homeURL)
	if err != nil || u.Host == "" {
		return homeURL
	}
	return u.Host
}
