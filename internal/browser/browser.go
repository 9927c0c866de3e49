// Package browser provides the chromedp and playwright implementations of
// the browser automation capability.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
)

const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// New creates the browser selected by browser.driver
func New(config *common.BrowserConfig, logger arbor.ILogger) (interfaces.Browser, error) {
	switch config.Driver {
	case DriverChromedp, "":
		return NewChromedpBrowser(config, logger), nil
	case DriverPlaywright:
		return NewPlaywrightBrowser(config, logger)
	default:
		return nil, fmt.Errorf("unsupported browser driver: %s", config.Driver)
	}
}

// Lazy defers creating the configured browser until the first context is
// requested, so commands that never browse do not start a driver
type Lazy struct {
	config *common.BrowserConfig
	logger arbor.ILogger

	mu      sync.Mutex
	browser interfaces.Browser
}

// NewLazy creates a Lazy browser for config
func NewLazy(config *common.BrowserConfig, logger arbor.ILogger) *Lazy {
	return &Lazy{config: config, logger: logger}
}

func (l *Lazy) get() (interfaces.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.browser != nil {
		return l.browser, nil
	}
	browser, err := New(l.config, l.logger)
	if err != nil {
		return nil, err
	}
	l.logger.Debug().Str("driver", l.config.Driver).Msg("Browser driver started")
	l.browser = browser
	return browser, nil
}

func (l *Lazy) NewContext(ctx context.Context, opts interfaces.ContextOptions) (interfaces.BrowserContext, error) {
	browser, err := l.get()
	if err != nil {
		return nil, err
	}
	return browser.NewContext(ctx, opts)
}

// Started reports whether the underlying driver has been created
func (l *Lazy) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.browser != nil
}

// Close closes the underlying browser if it was started
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.browser == nil {
		return nil
	}
	err := l.browser.Close()
	l.browser = nil
	return err
}
