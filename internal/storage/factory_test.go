package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/models"
)

func testConfig(t *testing.T) *common.Config {
	dir := t.TempDir()
	config := common.NewDefaultConfig()
	config.Session.CookieFile = filepath.Join(dir, "cookies.json")
	config.Cache.File = filepath.Join(dir, "cache.json")
	config.Storage.Badger.Path = filepath.Join(dir, "badger")
	return config
}

func TestNewStorageManager_FileStores(t *testing.T) {
	config := testConfig(t)

	m, err := NewStorageManager(arbor.NewLogger(), config)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	require.NoError(t, m.SessionStorage().SaveCookies(ctx, []*models.Cookie{{Name: "a", Value: "1"}}))

	cookies, found, err := m.SessionStorage().LoadCookies(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, cookies, 1)
	assert.FileExists(t, config.Session.CookieFile)
	assert.NoDirExists(t, config.Storage.Badger.Path, "badger is not opened for file-only stores")
}

func TestNewStorageManager_MixedStores(t *testing.T) {
	config := testConfig(t)
	config.Session.Store = "badger"

	m, err := NewStorageManager(arbor.NewLogger(), config)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	require.NoError(t, m.SessionStorage().SaveCookies(ctx, []*models.Cookie{{Name: "a", Value: "1"}}))
	require.NoError(t, m.CacheStorage().Save(ctx, map[string]*models.CacheEntry{"q:1": {Query: "q", Count: 1}}))

	assert.NoFileExists(t, config.Session.CookieFile, "session goes to badger")
	assert.FileExists(t, config.Cache.File, "cache stays on file")
}

func TestSiteID(t *testing.T) {
	assert.Equal(t, "www.example.com", siteID("https://www.example.com/explore"))
	assert.Equal(t, "not a url", siteID("not a url"))
}
