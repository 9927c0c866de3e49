package models

import (
	"net/http"
	"strings"
	"time"
)

// SessionState is the position of the login state machine
type SessionState string

const (
	SessionStateUnauthenticated          SessionState = "unauthenticated"
	SessionStateAwaitingInteractiveLogin SessionState = "awaiting_interactive_login"
	SessionStateAuthenticated            SessionState = "authenticated"
	SessionStateFatal                    SessionState = "fatal"
)

// Cookie represents a browser cookie in the export format used by the
// cookie file and the environment blob (a JSON array of these objects)
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // Unix seconds; -1 or 0 for session cookies
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// IsExpired reports whether a persistent cookie has passed its expiry
func (c *Cookie) IsExpired(now time.Time) bool {
	if c.Expires <= 0 {
		return false
	}
	return now.After(time.Unix(int64(c.Expires), 0))
}

// ToHTTPCookie converts the cookie to the net/http representation
func (c *Cookie) ToHTTPCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}

	if c.Expires > 0 {
		cookie.Expires = time.Unix(int64(c.Expires), 0)
	}

	switch strings.ToLower(c.SameSite) {
	case "strict":
		cookie.SameSite = http.SameSiteStrictMode
	case "lax":
		cookie.SameSite = http.SameSiteLaxMode
	case "none":
		cookie.SameSite = http.SameSiteNoneMode
	default:
		cookie.SameSite = http.SameSiteDefaultMode
	}

	return cookie
}

// SessionRecord is the durable form of an authenticated session.
// Cookies are kept as the raw JSON array so the record round-trips the
// exported browser format unchanged.
type SessionRecord struct {
	ID        string    `json:"id"`         // Site domain the cookies belong to
	Cookies   []byte    `json:"cookies"`    // Serialized []*Cookie
	Source    string    `json:"source"`     // Provider that produced the session
	CreatedAt time.Time `json:"created_at"` // First persisted
	UpdatedAt time.Time `json:"updated_at"` // Last successful login/persist
}
