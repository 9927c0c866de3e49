package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// PlaywrightBrowser drives Chromium through playwright. A headless and a
// visible browser are launched lazily and shared by the contexts of each kind.
type PlaywrightBrowser struct {
	config *common.BrowserConfig
	logger arbor.ILogger

	mu       sync.Mutex
	pw       *playwright.Playwright
	browsers map[bool]playwright.Browser
}

// NewPlaywrightBrowser starts the playwright driver, installing it first
// when browser.install_drivers is set
func NewPlaywrightBrowser(config *common.BrowserConfig, logger arbor.ILogger) (*PlaywrightBrowser, error) {
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if config.InstallDrivers {
		logger.Info().Msg("Installing playwright driver and chromium")
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &PlaywrightBrowser{
		config:   config,
		logger:   logger,
		pw:       pw,
		browsers: make(map[bool]playwright.Browser),
	}, nil
}

func (b *PlaywrightBrowser) launch(headless bool) (playwright.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if browser, ok := b.browsers[headless]; ok && browser.IsConnected() {
		return browser, nil
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	}
	if b.config.ExecPath != "" {
		launchOpts.ExecutablePath = playwright.String(b.config.ExecPath)
	}

	browser, err := b.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	b.browsers[headless] = browser
	return browser, nil
}

func (b *PlaywrightBrowser) NewContext(ctx context.Context, opts interfaces.ContextOptions) (interfaces.BrowserContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := b.launch(opts.Headless)
	if err != nil {
		return nil, err
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if b.config.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(b.config.UserAgent)
	}

	pwContext, err := browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	bctx := &playwrightContext{context: pwContext}
	if len(opts.Cookies) > 0 {
		if err := bctx.AddCookies(ctx, opts.Cookies); err != nil {
			pwContext.Close()
			return nil, err
		}
	}

	b.logger.Debug().
		Bool("headless", opts.Headless).
		Int("cookies", len(opts.Cookies)).
		Msg("Playwright browsing context created")

	return bctx, nil
}

// Close closes both browsers and stops the driver process
func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for headless, browser := range b.browsers {
		if err := browser.Close(); err != nil {
			b.logger.Warn().Err(err).Bool("headless", headless).Msg("Failed to close browser")
		}
		delete(b.browsers, headless)
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		b.pw = nil
	}
	return nil
}

type playwrightContext struct {
	context playwright.BrowserContext
}

func (c *playwrightContext) NewPage(ctx context.Context) (interfaces.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := c.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

func (c *playwrightContext) Cookies(ctx context.Context) ([]*models.Cookie, error) {
	cookies, err := c.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return fromPlaywrightCookies(cookies), nil
}

func (c *playwrightContext) AddCookies(ctx context.Context, cookies []*models.Cookie) error {
	converted := toPlaywrightCookies(cookies, time.Now())
	if len(converted) == 0 {
		return nil
	}
	if err := c.context.AddCookies(converted); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

func (c *playwrightContext) Close() error {
	return c.context.Close()
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(ctx context.Context, url string, timeout time.Duration, waitUntil interfaces.WaitStrategy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state := playwright.WaitUntilState(waitUntil)
	opts := playwright.PageGotoOptions{WaitUntil: &state}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	if _, err := p.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := playwright.PageWaitForSelectorOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	if _, err := p.page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// Evaluate decodes the result through JSON so out behaves the same as
// with the chromedp driver
func (p *playwrightPage) Evaluate(ctx context.Context, expression string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := p.page.Evaluate(expression)
	if err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	if out == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode evaluate result: %w", err)
	}
	return json.Unmarshal(data, out)
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *playwrightPage) URL(ctx context.Context) (string, error) {
	return p.page.URL(), nil
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
