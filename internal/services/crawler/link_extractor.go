package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

const (
	scrollHeightExpression = "document.body.scrollHeight"
	scrollByExpression     = "window.scrollBy(0, %d)"
)

// LinkExtractor reads item references from a rendered listing page
type LinkExtractor struct {
	site   common.SiteConfig
	config common.DiscoveryConfig
	settle time.Duration
	logger arbor.ILogger
}

// NewLinkExtractor creates a new link extractor
func NewLinkExtractor(site common.SiteConfig, config *common.DiscoveryConfig, logger arbor.ILogger) *LinkExtractor {
	return &LinkExtractor{
		site:   site,
		config: *config,
		settle: common.ParseDurationOr(config.ScrollSettle, time.Second),
		logger: logger,
	}
}

// Extract returns up to maxCount references in DOM order. Entries without a
// resolvable URL are dropped. When more than scroll_threshold entries are
// wanted the page is scrolled first so lazily loaded entries are rendered.
func (le *LinkExtractor) Extract(ctx context.Context, page interfaces.Page, maxCount int) ([]models.LinkReference, error) {
	if maxCount <= 0 {
		return []models.LinkReference{}, nil
	}

	if maxCount > le.config.ScrollThreshold {
		le.scroll(ctx, page)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	html, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing page: %w", err)
	}

	pageURL, err := page.URL(ctx)
	if err != nil {
		le.logger.Debug().Err(err).Msg("Failed to read listing URL, only absolute links will resolve")
	}

	return le.ExtractFromHTML(html, pageURL, maxCount)
}

// ExtractFromHTML parses listing entries from html. Relative links are
// resolved against sourceURL.
func (le *LinkExtractor) ExtractFromHTML(html, sourceURL string, maxCount int) ([]models.LinkReference, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var baseURL *url.URL
	if sourceURL != "" {
		baseURL, err = url.Parse(sourceURL)
		if err != nil {
			le.logger.Debug().Err(err).Str("source_url", sourceURL).Msg("Failed to parse base URL")
			baseURL = nil
		}
	}

	items := doc.Find(le.site.ListingItemSelector)
	refs := make([]models.LinkReference, 0, min(maxCount, items.Length()))
	dropped := 0

	items.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxCount {
			return false
		}

		href, _ := s.Find(le.site.ListingLinkSelector).First().Attr("href")
		resolvedURL := le.resolveURL(href, baseURL)
		if resolvedURL == "" {
			dropped++
			return true
		}

		refs = append(refs, models.LinkReference{
			Title:      selectionText(s, le.site.ListingTitleSelector),
			URL:        resolvedURL,
			AuthorStub: selectionText(s, le.site.ListingAuthorSelector),
		})
		return true
	})

	le.logger.Debug().
		Str("source_url", sourceURL).
		Int("entries_found", items.Length()).
		Int("links_extracted", len(refs)).
		Int("dropped", dropped).
		Msg("Listing references extracted")

	return refs, nil
}

// scroll advances the page in fixed steps until MaxScrolls is reached or the
// document stops growing. Failures end scrolling; whatever is rendered is used.
func (le *LinkExtractor) scroll(ctx context.Context, page interfaces.Page) {
	var height int
	if err := page.Evaluate(ctx, scrollHeightExpression, &height); err != nil {
		le.logger.Debug().Err(err).Msg("Failed to read page height, skipping scroll")
		return
	}

	scrolls := 0
	for scrolls < le.config.MaxScrolls {
		if err := page.Evaluate(ctx, fmt.Sprintf(scrollByExpression, le.config.ScrollStep), nil); err != nil {
			le.logger.Debug().Err(err).Int("scrolls", scrolls).Msg("Scroll failed")
			return
		}
		scrolls++

		select {
		case <-time.After(le.settle):
		case <-ctx.Done():
			return
		}

		var next int
		if err := page.Evaluate(ctx, scrollHeightExpression, &next); err != nil {
			le.logger.Debug().Err(err).Int("scrolls", scrolls).Msg("Failed to read page height")
			return
		}
		if next <= height {
			break
		}
		height = next
	}

	le.logger.Debug().Int("scrolls", scrolls).Int("height", height).Msg("Listing scroll complete")
}

// shouldSkipLink reports hrefs that never point at a listing item
func (le *LinkExtractor) shouldSkipLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))

	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}

	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(href, scheme) {
			return true
		}
	}
	return false
}

// resolveURL resolves href against baseURL, returning "" when no absolute
// http(s) URL can be produced
func (le *LinkExtractor) resolveURL(href string, baseURL *url.URL) string {
	if le.shouldSkipLink(href) {
		return ""
	}
	href = strings.TrimSpace(href)

	var resolved *url.URL
	var err error
	if baseURL == nil {
		resolved, err = url.Parse(href)
	} else {
		resolved, err = baseURL.Parse(href)
	}
	if err != nil {
		le.logger.Debug().Err(err).Str("href", href).Msg("Failed to resolve URL")
		return ""
	}

	if resolved.Scheme != "http" && resolved.Scheme != "https" || resolved.Host == "" {
		return ""
	}
	return resolved.String()
}

// selectionText returns the trimmed text of the first match of selector
// within s, or "" when selector is empty
func selectionText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}
