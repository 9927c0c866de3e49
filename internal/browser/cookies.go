package browser

import (
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/playwright-community/playwright-go"
	"github.com/ternarybob/gleaner/internal/models"
)

// toCDPCookieParams converts cookies for Network.setCookies.
// Expired persistent cookies are skipped.
func toCDPCookieParams(cookies []*models.Cookie, now time.Time) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" || c.IsExpired(now) {
			continue
		}

		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if param.Path == "" {
			param.Path = "/"
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}

		switch strings.ToLower(c.SameSite) {
		case "strict":
			param.SameSite = network.CookieSameSiteStrict
		case "lax":
			param.SameSite = network.CookieSameSiteLax
		case "none":
			param.SameSite = network.CookieSameSiteNone
		}

		params = append(params, param)
	}
	return params
}

func fromCDPCookies(cookies []*network.Cookie) []*models.Cookie {
	out := make([]*models.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := &models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		}
		if c.Session {
			cookie.Expires = -1
		}
		out = append(out, cookie)
	}
	return out
}

func toPlaywrightCookies(cookies []*models.Cookie, now time.Time) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" || c.IsExpired(now) {
			continue
		}

		path := c.Path
		if path == "" {
			path = "/"
		}
		cookie := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Expires > 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}

		switch strings.ToLower(c.SameSite) {
		case "strict":
			cookie.SameSite = playwright.SameSiteAttributeStrict
		case "lax":
			cookie.SameSite = playwright.SameSiteAttributeLax
		case "none":
			cookie.SameSite = playwright.SameSiteAttributeNone
		}

		out = append(out, cookie)
	}
	return out
}

func fromPlaywrightCookies(cookies []playwright.Cookie) []*models.Cookie {
	out := make([]*models.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := &models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			cookie.SameSite = string(*c.SameSite)
		}
		out = append(out, cookie)
	}
	return out
}
