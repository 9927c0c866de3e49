// Package browsertest provides an in-memory implementation of the browser
// capability for tests. Pages are served from a Site map instead of the
// network, and login state is modelled with a single session cookie.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// ErrTimeout is returned when a simulated navigation or wait exceeds its bound
var ErrTimeout = errors.New("browsertest: timeout")

// Document is one page served by the fake site
type Document struct {
	HTML      string
	GotoErr   error         // Returned by Goto instead of loading the page
	GotoDelay time.Duration // Navigation takes this long; longer than the timeout fails with ErrTimeout
	Protected bool          // Without the session cookie the login page is served instead

	// SetCookies are added to the context's jar when the page loads
	SetCookies []models.Cookie
}

// Site is the set of pages reachable by URL
type Site struct {
	LoginURL      string
	LoginHTML     string
	SessionCookie models.Cookie

	// Evaluate answers Page.Evaluate; nil results decode as JSON null
	Evaluate func(page *Page, expression string) (interface{}, error)

	mu    sync.RWMutex
	pages map[string]*Document
}

// NewSite creates an empty site with the given login page
func NewSite(loginURL, loginHTML string, sessionCookie models.Cookie) *Site {
	return &Site{
		LoginURL:      loginURL,
		LoginHTML:     loginHTML,
		SessionCookie: sessionCookie,
		pages:         make(map[string]*Document),
	}
}

// Add serves doc at url
func (s *Site) Add(url string, doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = doc
}

func (s *Site) get(url string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.pages[url]
	return doc, ok
}

// Browser is the fake browser
type Browser struct {
	Site *Site

	// LoginAfterPolls simulates a user completing the login form in a visible
	// context: after this many URL reads the session cookie is set and the
	// page leaves the login URL. Zero means the user never logs in.
	LoginAfterPolls int

	mu       sync.Mutex
	contexts []*Context

	pagesOpened  atomic.Int64
	pagesClosed  atomic.Int64
	openPages    atomic.Int64
	maxOpenPages atomic.Int64
	closed       atomic.Bool
}

// NewBrowser creates a fake browser serving site
func NewBrowser(site *Site) *Browser {
	return &Browser{Site: site}
}

func (b *Browser) NewContext(ctx context.Context, opts interfaces.ContextOptions) (interfaces.BrowserContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &Context{browser: b, Headless: opts.Headless}
	if err := c.AddCookies(ctx, opts.Cookies); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.contexts = append(b.contexts, c)
	b.mu.Unlock()
	return c, nil
}

func (b *Browser) Close() error {
	b.closed.Store(true)
	return nil
}

// Contexts returns every context created so far in creation order
func (b *Browser) Contexts() []*Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Context(nil), b.contexts...)
}

// PagesOpened is the number of pages created
func (b *Browser) PagesOpened() int64 { return b.pagesOpened.Load() }

// PagesClosed is the number of pages closed
func (b *Browser) PagesClosed() int64 { return b.pagesClosed.Load() }

// MaxOpenPages is the highest number of simultaneously open pages observed
func (b *Browser) MaxOpenPages() int64 { return b.maxOpenPages.Load() }

// Closed reports whether Close was called
func (b *Browser) Closed() bool { return b.closed.Load() }

// Context is a fake browsing context with its own cookie jar
type Context struct {
	browser  *Browser
	Headless bool

	mu      sync.Mutex
	cookies []*models.Cookie
	closed  bool
}

func (c *Context) NewPage(ctx context.Context) (interfaces.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("browsertest: context closed")
	}

	b := c.browser
	b.pagesOpened.Add(1)
	open := b.openPages.Add(1)
	for {
		peak := b.maxOpenPages.Load()
		if open <= peak || b.maxOpenPages.CompareAndSwap(peak, open) {
			break
		}
	}
	return &Page{context: c, url: "about:blank"}, nil
}

func (c *Context) Cookies(ctx context.Context) ([]*models.Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Cookie, len(c.cookies))
	for i, cookie := range c.cookies {
		copied := *cookie
		out[i] = &copied
	}
	return out, nil
}

func (c *Context) AddCookies(ctx context.Context, cookies []*models.Cookie) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cookie := range cookies {
		if cookie == nil {
			continue
		}
		copied := *cookie
		c.cookies = append(c.cookies, &copied)
	}
	return nil
}

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether the context was closed
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// HasSession reports whether the context carries the site session cookie
func (c *Context) HasSession() bool {
	want := c.browser.Site.SessionCookie
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cookie := range c.cookies {
		if cookie.Name == want.Name && cookie.Value == want.Value {
			return true
		}
	}
	return false
}

// Page is a fake tab
type Page struct {
	context *Context

	mu     sync.Mutex
	url    string
	html   string
	polls  int
	closed bool
}

func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration, waitUntil interfaces.WaitStrategy) error {
	site := p.context.browser.Site

	var doc *Document
	switch {
	case url == site.LoginURL:
		doc = &Document{HTML: site.LoginHTML}
	default:
		var ok bool
		doc, ok = site.get(url)
		if !ok {
			return fmt.Errorf("browsertest: no page at %s", url)
		}
	}

	if doc.GotoDelay > 0 {
		var bound <-chan time.Time
		if timeout > 0 {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			bound = timer.C
		}
		select {
		case <-time.After(doc.GotoDelay):
		case <-bound:
			return fmt.Errorf("navigating to %s: %w", url, ErrTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if doc.GotoErr != nil {
		return doc.GotoErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if doc.Protected && !p.context.HasSession() {
		p.url = site.LoginURL
		p.html = site.LoginHTML
		return nil
	}
	p.url = url
	p.html = doc.HTML
	for i := range doc.SetCookies {
		p.context.AddCookies(ctx, []*models.Cookie{&doc.SetCookies[i]})
	}
	return nil
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("waiting for %s: %w", selector, ErrTimeout)
	}
	return nil
}

func (p *Page) Evaluate(ctx context.Context, expression string, out interface{}) error {
	evaluate := p.context.browser.Site.Evaluate
	if evaluate == nil {
		return nil
	}
	result, err := evaluate(p, expression)
	if err != nil || out == nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

// URL returns the current location. In a visible context it also advances
// the simulated user towards completing the login form.
func (p *Page) URL(ctx context.Context) (string, error) {
	b := p.context.browser

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.context.Headless && b.LoginAfterPolls > 0 && p.url == b.Site.LoginURL {
		p.polls++
		if p.polls >= b.LoginAfterPolls {
			p.context.AddCookies(ctx, []*models.Cookie{&b.Site.SessionCookie})
			p.url = strings.TrimSuffix(b.Site.LoginURL, "/login") + "/"
			p.html = "<html><body><div id=\"app\">welcome</div></body></html>"
		}
	}
	return p.url, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	b := p.context.browser
	b.pagesClosed.Add(1)
	b.openPages.Add(-1)
	return nil
}

// SetHTML replaces the page document, e.g. to simulate content appended by scrolling
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// CurrentURL returns the location without advancing login simulation
func (p *Page) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}
