package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/browser/browsertest"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

const testLoginURL = "https://site.test/login"

func detailHTML(n int) string {
	return fmt.Sprintf(`<html><body><div id="noteContainer">
<div id="detail-title">Note %d</div>
<div id="detail-desc"><span class="note-text">Body of note %d <a class="tag">#coffee</a></span></div>
<div class="author-wrapper"><span class="username">author%d</span><span class="user-desc">bio %d</span></div>
<div class="engage-bar-style">
  <span class="like-wrapper"><span class="count">1.2万</span></span>
  <span class="collect-wrapper"><span class="count">35</span></span>
  <span class="chat-wrapper"><span class="count">评论</span></span>
</div>
<div class="media-container"><img src="https://img.site.test/%d.jpg"><img data-src="/img/%d-b.jpg" src="data:image/gif;base64,R0"></div>
</div></body></html>`, n, n, n, n, n, n)
}

func detailURL(n int) string {
	return fmt.Sprintf("https://site.test/explore/%d", n)
}

func testCrawlerConfig() *common.CrawlerConfig {
	return &common.CrawlerConfig{
		MaxConcurrency:    3,
		Stagger:           "1ms",
		RequestDelay:      "1ms",
		NavigationTimeout: "50ms",
		SelectorTimeout:   "10ms",
		WaitUntil:         "domcontentloaded",
		ContentFormat:     ContentFormatText,
	}
}

// newDetailSite serves n detail pages and returns references to them
func newDetailSite(n int) (*browsertest.Site, []models.LinkReference) {
	site := browsertest.NewSite(testLoginURL, "<html></html>", models.Cookie{Name: "web_session", Value: "x"})
	refs := make([]models.LinkReference, n)
	for i := 0; i < n; i++ {
		site.Add(detailURL(i), &browsertest.Document{HTML: detailHTML(i), GotoDelay: time.Millisecond})
		refs[i] = models.LinkReference{
			Title:      fmt.Sprintf("listing %d", i),
			URL:        detailURL(i),
			AuthorStub: fmt.Sprintf("stub%d", i),
		}
	}
	return site, refs
}

func newTestContext(t *testing.T, browser *browsertest.Browser) interfaces.BrowserContext {
	t.Helper()
	bctx, err := browser.NewContext(context.Background(), interfaces.ContextOptions{Headless: true})
	require.NoError(t, err)
	t.Cleanup(func() { bctx.Close() })
	return bctx
}

func TestFetchAllPreservesInputOrder(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 12} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			site, refs := newDetailSite(n)
			// Earlier items take longer so completion order differs from input order
			for i := 0; i < n; i++ {
				site.Add(detailURL(i), &browsertest.Document{
					HTML:      detailHTML(i),
					GotoDelay: time.Duration(n-i) * 2 * time.Millisecond,
				})
			}
			browser := browsertest.NewBrowser(site)
			orchestrator := NewOrchestrator(common.NewDefaultConfig().Site, testCrawlerConfig(), arbor.NewLogger())

			results := orchestrator.FetchAll(context.Background(), newTestContext(t, browser), refs)

			require.Len(t, results, n)
			for i := range refs {
				assert.Equal(t, refs[i].URL, results[i].Link)
				assert.Equal(t, fmt.Sprintf("Note %d", i), results[i].Title)
				assert.False(t, results[i].IsDegraded())
			}
			assert.LessOrEqual(t, browser.MaxOpenPages(), int64(min(3, n)))
			assert.Equal(t, browser.PagesOpened(), browser.PagesClosed(), "every page must be closed")
		})
	}
}

func TestFetchAllIsolatesItemFailure(t *testing.T) {
	site, refs := newDetailSite(3)
	site.Add(detailURL(1), &browsertest.Document{HTML: detailHTML(1), GotoDelay: time.Second})
	browser := browsertest.NewBrowser(site)
	orchestrator := NewOrchestrator(common.NewDefaultConfig().Site, testCrawlerConfig(), arbor.NewLogger())

	results := orchestrator.FetchAll(context.Background(), newTestContext(t, browser), refs)

	require.Len(t, results, 3)

	assert.Equal(t, models.DetailRecord{
		Title:   "listing 1",
		Content: models.FailedContentPlaceholder,
		Author:  "stub1",
		Link:    detailURL(1),
	}, results[1])

	for _, i := range []int{0, 2} {
		assert.False(t, results[i].IsDegraded())
		assert.Equal(t, fmt.Sprintf("Note %d", i), results[i].Title)
		assert.Equal(t, fmt.Sprintf("Body of note %d", i), results[i].Content)
		assert.Equal(t, fmt.Sprintf("author%d", i), results[i].Author)
		assert.Equal(t, fmt.Sprintf("bio %d", i), results[i].AuthorDesc)
		assert.Equal(t, 12000, results[i].Likes)
		assert.Equal(t, 35, results[i].Collects)
		assert.Equal(t, 0, results[i].Comments)
		assert.Equal(t, []string{"coffee"}, results[i].Tags)
		assert.Equal(t, []string{
			fmt.Sprintf("https://img.site.test/%d.jpg", i),
			fmt.Sprintf("https://site.test/img/%d-b.jpg", i),
		}, results[i].Images)
	}
	assert.Equal(t, browser.PagesOpened(), browser.PagesClosed())
}

func TestFetchAllDegradesNavigationErrors(t *testing.T) {
	site, refs := newDetailSite(2)
	site.Add(detailURL(0), &browsertest.Document{GotoErr: fmt.Errorf("net::ERR_CONNECTION_RESET")})
	browser := browsertest.NewBrowser(site)
	orchestrator := NewOrchestrator(common.NewDefaultConfig().Site, testCrawlerConfig(), arbor.NewLogger())

	results := orchestrator.FetchAll(context.Background(), newTestContext(t, browser), refs)

	require.Len(t, results, 2)
	assert.True(t, results[0].IsDegraded())
	assert.False(t, results[1].IsDegraded())
	assert.Equal(t, int64(2), browser.PagesClosed())
}

func TestFetchAllZeroReferences(t *testing.T) {
	site, _ := newDetailSite(0)
	browser := browsertest.NewBrowser(site)
	orchestrator := NewOrchestrator(common.NewDefaultConfig().Site, testCrawlerConfig(), arbor.NewLogger())

	results := orchestrator.FetchAll(context.Background(), newTestContext(t, browser), nil)

	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, browser.PagesOpened())
}

func TestFetchAllSoftSelectorTimeout(t *testing.T) {
	site, refs := newDetailSite(1)
	site.Add(detailURL(0), &browsertest.Document{
		HTML: `<html><body><div id="detail-title">Late render</div>
<div id="detail-desc"><span class="note-text">still readable</span></div></body></html>`,
	})
	browser := browsertest.NewBrowser(site)
	orchestrator := NewOrchestrator(common.NewDefaultConfig().Site, testCrawlerConfig(), arbor.NewLogger())

	results := orchestrator.FetchAll(context.Background(), newTestContext(t, browser), refs)

	require.Len(t, results, 1)
	assert.False(t, results[0].IsDegraded())
	assert.Equal(t, "Late render", results[0].Title)
	assert.Equal(t, "still readable", results[0].Content)
	assert.Equal(t, "stub0", results[0].Author, "author falls back to the listing value")
}

func TestFetchAllCancelledContext(t *testing.T) {
	site, refs := newDetailSite(5)
	browser := browsertest.NewBrowser(site)
	orchestrator := NewOrchestrator(common.NewDefaultConfig().Site, testCrawlerConfig(), arbor.NewLogger())
	bctx := newTestContext(t, browser)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := orchestrator.FetchAll(ctx, bctx, refs)

	require.Len(t, results, 5)
	for i := range refs {
		assert.Equal(t, refs[i].URL, results[i].Link)
		assert.True(t, results[i].IsDegraded())
	}
}

func TestFetchAllWithRateLimit(t *testing.T) {
	site, refs := newDetailSite(3)
	browser := browsertest.NewBrowser(site)
	config := testCrawlerConfig()
	config.MaxNavigationsPerSecond = 100
	orchestrator := NewOrchestrator(common.NewDefaultConfig().Site, config, arbor.NewLogger())

	results := orchestrator.FetchAll(context.Background(), newTestContext(t, browser), refs)

	require.Len(t, results, 3)
	for i := range results {
		assert.False(t, results[i].IsDegraded())
	}
}

func TestNewRateLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0))
	assert.Nil(t, NewRateLimiter(-1))

	var limiter *RateLimiter
	assert.NoError(t, limiter.Wait(context.Background()))
}
