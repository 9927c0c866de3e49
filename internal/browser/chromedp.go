package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// networkIdleQuiet is how long the document must stay complete before a
// networkidle navigation returns
const networkIdleQuiet = 500 * time.Millisecond

// ChromedpBrowser launches one Chrome process per browsing context so the
// headless and visible contexts of a login cycle can coexist
type ChromedpBrowser struct {
	config *common.BrowserConfig
	logger arbor.ILogger

	mu       sync.Mutex
	contexts map[*chromedpContext]struct{}
}

// NewChromedpBrowser creates a chromedp-backed browser. No process is
// started until the first context is requested.
func NewChromedpBrowser(config *common.BrowserConfig, logger arbor.ILogger) *ChromedpBrowser {
	return &ChromedpBrowser{
		config:   config,
		logger:   logger,
		contexts: make(map[*chromedpContext]struct{}),
	}
}

func (b *ChromedpBrowser) NewContext(ctx context.Context, opts interfaces.ContextOptions) (interfaces.BrowserContext, error) {
	startTime := time.Now()

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.config.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(b.config.UserAgent))
	}
	if b.config.ExecPath != "" {
		allocatorOpts = append(allocatorOpts, chromedp.ExecPath(b.config.ExecPath))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	bctx := &chromedpContext{
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocatorCancel()
		},
		owner: b,
	}

	// The first Run allocates the process and must not use a derived
	// context, otherwise cancelling it would stop the whole browser
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		bctx.cancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	if len(opts.Cookies) > 0 {
		if err := bctx.AddCookies(ctx, opts.Cookies); err != nil {
			bctx.cancel()
			return nil, err
		}
	}

	b.mu.Lock()
	b.contexts[bctx] = struct{}{}
	b.mu.Unlock()

	b.logger.Debug().
		Bool("headless", opts.Headless).
		Int("cookies", len(opts.Cookies)).
		Dur("startup_time", time.Since(startTime)).
		Msg("Chrome browsing context created")

	return bctx, nil
}

// Close shuts down every Chrome process still owned by this browser
func (b *ChromedpBrowser) Close() error {
	b.mu.Lock()
	contexts := make([]*chromedpContext, 0, len(b.contexts))
	for c := range b.contexts {
		contexts = append(contexts, c)
	}
	b.mu.Unlock()

	for _, c := range contexts {
		c.Close()
	}
	return nil
}

func (b *ChromedpBrowser) release(c *chromedpContext) {
	b.mu.Lock()
	delete(b.contexts, c)
	b.mu.Unlock()
}

type chromedpContext struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	owner      *ChromedpBrowser
	closeOnce  sync.Once
}

func (c *chromedpContext) NewPage(ctx context.Context) (interfaces.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return &chromedpPage{ctx: tabCtx, cancel: cancel}, nil
}

func (c *chromedpContext) Cookies(ctx context.Context) ([]*models.Cookie, error) {
	var cookies []*network.Cookie
	err := runWithin(ctx, c.browserCtx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return fromCDPCookies(cookies), nil
}

func (c *chromedpContext) AddCookies(ctx context.Context, cookies []*models.Cookie) error {
	params := toCDPCookieParams(cookies, time.Now())
	if len(params) == 0 {
		return nil
	}
	err := runWithin(ctx, c.browserCtx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

func (c *chromedpContext) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.owner.release(c)
	})
	return nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromedpPage) Goto(ctx context.Context, url string, timeout time.Duration, waitUntil interfaces.WaitStrategy) error {
	// Navigate returns on the load event; domcontentloaded is covered by the
	// same bound since chromedp exposes no earlier readiness hook
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if waitUntil == interfaces.WaitNetworkIdle {
		actions = append(actions,
			chromedp.Poll(`document.readyState === "complete"`, nil, chromedp.WithPollingInterval(100*time.Millisecond)),
			chromedp.Sleep(networkIdleQuiet),
		)
	}
	return runWithin(ctx, p.ctx, timeout, actions...)
}

func (p *chromedpPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return runWithin(ctx, p.ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromedpPage) Evaluate(ctx context.Context, expression string, out interface{}) error {
	return runWithin(ctx, p.ctx, 0, chromedp.Evaluate(expression, out))
}

func (p *chromedpPage) Content(ctx context.Context) (string, error) {
	var html string
	if err := runWithin(ctx, p.ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *chromedpPage) URL(ctx context.Context) (string, error) {
	var location string
	if err := runWithin(ctx, p.ctx, 0, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// Close closes the tab; cancelling a tab context detaches and closes its target
func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}

// runWithin runs actions on target while honouring the caller's ctx and an
// optional timeout. Cancelling the derived context does not close target.
func runWithin(ctx context.Context, target context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()

	if timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, timeout)
		defer timeoutCancel()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
