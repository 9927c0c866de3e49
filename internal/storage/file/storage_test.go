package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

func TestSessionStorage_MissingFileIsNotFound(t *testing.T) {
	s := NewSessionStorage(filepath.Join(t.TempDir(), "cookies.json"), arbor.NewLogger())

	cookies, found, err := s.LoadCookies(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, cookies)
}

func TestSessionStorage_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	s := NewSessionStorage(path, arbor.NewLogger())
	ctx := context.Background()

	in := []*models.Cookie{
		{Name: "web_session", Value: "abc", Domain: ".example.com", Path: "/", Expires: 1900000000, HTTPOnly: true, Secure: true, SameSite: "Lax"},
		{Name: "a1", Value: "x", Domain: ".example.com", Path: "/", Expires: -1},
	}
	require.NoError(t, s.SaveCookies(ctx, in))

	out, found, err := s.LoadCookies(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)

	require.NoError(t, s.DeleteCookies(ctx))
	_, found, err = s.LoadCookies(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionStorage_ReadsBrowserExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"name": "web_session", "value": "abc", "domain": ".example.com", "path": "/", "expires": 1900000000.5, "httpOnly": true, "secure": true, "sameSite": "Lax"}
]`), 0600))

	cookies, found, err := NewSessionStorage(path, arbor.NewLogger()).LoadCookies(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "web_session", cookies[0].Name)
	assert.True(t, cookies[0].HTTPOnly)
}

func TestSessionStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, found, err := NewSessionStorage(path, arbor.NewLogger()).LoadCookies(context.Background())
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCacheStorage_RoundTripUsesKeyedObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s := NewCacheStorage(path, arbor.NewLogger())
	ctx := context.Background()

	entries := map[string]*models.CacheEntry{
		"coffee:5": {
			Data:      []models.DetailRecord{{Title: "t", Content: "c", Author: "a", Link: "https://example.com/1"}},
			Timestamp: 1700000000000,
			Query:     "Coffee ",
			Count:     5,
		},
	}
	require.NoError(t, s.Save(ctx, entries))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"coffee:5"`)
	assert.Contains(t, string(raw), `"timestamp": 1700000000000`)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, loaded, "coffee:5")
	assert.Equal(t, "coffee:5", loaded["coffee:5"].Key)
	assert.Equal(t, entries["coffee:5"].Data, loaded["coffee:5"].Data)
}

func TestCacheStorage_LoadMissingFile(t *testing.T) {
	loaded, err := NewCacheStorage(filepath.Join(t.TempDir(), "cache.json"), arbor.NewLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCacheStorage_CorruptFileIsCacheIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))

	loaded, err := NewCacheStorage(path, arbor.NewLogger()).Load(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrCacheIO)
	assert.ErrorIs(t, err, interfaces.ErrCacheCorrupt)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}
