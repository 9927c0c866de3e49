package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/gleaner/internal/models"
)

// WaitStrategy selects the readiness condition a navigation waits for
type WaitStrategy string

const (
	WaitDOMContentLoaded WaitStrategy = "domcontentloaded"
	WaitLoad             WaitStrategy = "load"
	WaitNetworkIdle      WaitStrategy = "networkidle"
)

// ContextOptions configures a new browsing context
type ContextOptions struct {
	Headless bool
	Cookies  []*models.Cookie
}

// Browser is the browser automation capability the pipeline drives.
// Implementations live under internal/browser.
type Browser interface {
	// NewContext creates an isolated browsing context with its own cookie jar
	NewContext(ctx context.Context, opts ContextOptions) (BrowserContext, error)

	// Close shuts down every context and the underlying browser process
	Close() error
}

// BrowserContext holds shared cookie state for the pages opened in it
type BrowserContext interface {
	NewPage(ctx context.Context) (Page, error)
	Cookies(ctx context.Context) ([]*models.Cookie, error)
	AddCookies(ctx context.Context, cookies []*models.Cookie) error
	Close() error
}

// Page is a single tab. A page must not be shared between goroutines.
type Page interface {
	// Goto navigates and waits for the given readiness condition
	Goto(ctx context.Context, url string, timeout time.Duration, waitUntil WaitStrategy) error

	// WaitForSelector waits until an element matching the CSS selector is present
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// Evaluate runs a JavaScript expression and decodes its result into out
	Evaluate(ctx context.Context, expression string, out interface{}) error

	// Content returns the rendered document HTML
	Content(ctx context.Context) (string, error)

	// URL returns the current location of the page
	URL(ctx context.Context) (string, error)

	Close() error
}
