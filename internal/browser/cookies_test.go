package browser

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleCookies() []*models.Cookie {
	return []*models.Cookie{
		{Name: "web_session", Value: "abc", Domain: ".example.com", Path: "/", Expires: float64(testNow.Add(24 * time.Hour).Unix()), HTTPOnly: true, Secure: true, SameSite: "Lax"},
		{Name: "session_only", Value: "x", Domain: "www.example.com", Expires: -1},
		{Name: "stale", Value: "y", Domain: ".example.com", Path: "/", Expires: float64(testNow.Add(-time.Hour).Unix())},
		nil,
	}
}

func TestToCDPCookieParams(t *testing.T) {
	params := toCDPCookieParams(sampleCookies(), testNow)

	require.Len(t, params, 2, "expired and nil cookies are skipped")

	assert.Equal(t, "web_session", params[0].Name)
	assert.Equal(t, ".example.com", params[0].Domain)
	assert.Equal(t, network.CookieSameSiteLax, params[0].SameSite)
	require.NotNil(t, params[0].Expires)
	assert.Equal(t, testNow.Add(24*time.Hour).Unix(), params[0].Expires.Time().Unix())
	assert.True(t, params[0].HTTPOnly)

	assert.Equal(t, "/", params[1].Path, "missing path defaults to root")
	assert.Nil(t, params[1].Expires, "session cookies carry no expiry")
}

func TestFromCDPCookies(t *testing.T) {
	cookies := fromCDPCookies([]*network.Cookie{
		{Name: "a", Value: "1", Domain: ".example.com", Path: "/", Expires: 1900000000, HTTPOnly: true, Secure: true, SameSite: network.CookieSameSiteStrict},
		{Name: "b", Value: "2", Domain: "www.example.com", Path: "/", Expires: -1, Session: true},
	})

	require.Len(t, cookies, 2)
	assert.Equal(t, &models.Cookie{Name: "a", Value: "1", Domain: ".example.com", Path: "/", Expires: 1900000000, HTTPOnly: true, Secure: true, SameSite: "Strict"}, cookies[0])
	assert.Equal(t, float64(-1), cookies[1].Expires)
	assert.Equal(t, "", cookies[1].SameSite)
}

func TestToPlaywrightCookies(t *testing.T) {
	cookies := toPlaywrightCookies(sampleCookies(), testNow)

	require.Len(t, cookies, 2)
	assert.Equal(t, "web_session", cookies[0].Name)
	assert.Equal(t, ".example.com", *cookies[0].Domain)
	assert.Equal(t, playwright.SameSiteAttributeLax, cookies[0].SameSite)
	require.NotNil(t, cookies[0].Expires)
	assert.Equal(t, "/", *cookies[1].Path)
	assert.Nil(t, cookies[1].Expires)
}

func TestFromPlaywrightCookies(t *testing.T) {
	cookies := fromPlaywrightCookies([]playwright.Cookie{
		{Name: "a", Value: "1", Domain: ".example.com", Path: "/", Expires: 1900000000, HttpOnly: true, Secure: true, SameSite: playwright.SameSiteAttributeNone},
	})

	require.Len(t, cookies, 1)
	assert.Equal(t, "None", cookies[0].SameSite)
	assert.True(t, cookies[0].HTTPOnly)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(&common.BrowserConfig{Driver: "webkit"}, arbor.NewLogger())
	assert.Error(t, err)
}

func TestNew_ChromedpDoesNotStartProcess(t *testing.T) {
	b, err := New(&common.BrowserConfig{Driver: DriverChromedp, Headless: true}, arbor.NewLogger())
	require.NoError(t, err)
	assert.IsType(t, &ChromedpBrowser{}, b)
	assert.NoError(t, b.Close())
}

func TestLazy_DoesNotStartUntilUsed(t *testing.T) {
	lazy := NewLazy(&common.BrowserConfig{Driver: DriverChromedp}, arbor.NewLogger())

	assert.False(t, lazy.Started())
	require.NoError(t, lazy.Close())
	assert.False(t, lazy.Started())
}
