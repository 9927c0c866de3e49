package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/gleaner/internal/models"
)

// ErrSessionUnavailable is returned when no valid cookies exist and the
// interactive login did not complete
var ErrSessionUnavailable = errors.New("session unavailable")

// SessionProvider is one source of previously captured cookies.
// Providers are tried in priority order; found=false is not an error.
type SessionProvider interface {
	Name() string
	Load(ctx context.Context) (cookies []*models.Cookie, found bool, err error)
}

// SessionManager owns the login state machine
type SessionManager interface {
	// LoadSession attaches the first available cookie set to bctx
	LoadSession(ctx context.Context, bctx BrowserContext) (bool, error)

	// Verify reports whether page is showing an authenticated view
	Verify(ctx context.Context, page Page) bool

	// Probe opens a page on the site home and verifies it
	Probe(ctx context.Context, bctx BrowserContext) bool

	// InteractiveLogin opens a visible context, waits for the user to log in
	// and returns the captured session cookies
	InteractiveLogin(ctx context.Context, browser Browser) ([]*models.Cookie, error)

	// Persist saves the cookies of bctx to the durable store
	Persist(ctx context.Context, bctx BrowserContext)

	// Logout deletes the stored session
	Logout(ctx context.Context) error

	State() models.SessionState
}
