package search

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
	"github.com/ternarybob/gleaner/internal/services/crawler"
)

// Pipeline runs one uncached search: session bootstrap, listing discovery
// and the detail fetch batch
type Pipeline struct {
	browser      interfaces.Browser
	session      interfaces.SessionManager
	discovery    *crawler.LinkExtractor
	orchestrator *crawler.Orchestrator
	site         common.SiteConfig
	headless     bool
	logger       arbor.ILogger

	navigationTimeout time.Duration
	selectorTimeout   time.Duration
	waitUntil         interfaces.WaitStrategy
}

// NewPipeline creates a pipeline from the application configuration
func NewPipeline(browser interfaces.Browser, session interfaces.SessionManager, config *common.Config, logger arbor.ILogger) *Pipeline {
	waitUntil := interfaces.WaitStrategy(config.Crawler.WaitUntil)
	if waitUntil == "" {
		waitUntil = interfaces.WaitDOMContentLoaded
	}

	return &Pipeline{
		browser:           browser,
		session:           session,
		discovery:         crawler.NewLinkExtractor(config.Site, &config.Discovery, logger),
		orchestrator:      crawler.NewOrchestrator(config.Site, &config.Crawler, logger),
		site:              config.Site,
		headless:          config.Browser.Headless,
		logger:            logger,
		navigationTimeout: common.ParseDurationOr(config.Crawler.NavigationTimeout, 30*time.Second),
		selectorTimeout:   common.ParseDurationOr(config.Crawler.SelectorTimeout, 15*time.Second),
		waitUntil:         waitUntil,
	}
}

// Run returns up to count records for query in listing order. Item failures
// are absorbed into degraded records; the only session error returned is
// interfaces.ErrSessionUnavailable.
func (p *Pipeline) Run(ctx context.Context, query string, count int) ([]models.DetailRecord, error) {
	runID := common.NewRunID()
	logger := p.logger.WithCorrelationId(runID)
	startTime := time.Now()

	logger.Info().Str("query", query).Int("count", count).Msg("Search started")

	bctx, err := p.authenticatedContext(ctx, logger)
	if err != nil {
		logger.Error().Err(err).Str("query", query).Msg("Search aborted")
		return nil, err
	}
	defer bctx.Close()

	refs, err := p.discover(ctx, bctx, query, count, logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn().Err(err).Str("query", query).Msg("Listing discovery failed, returning no results")
		return []models.DetailRecord{}, nil
	}

	records := p.orchestrator.FetchAll(ctx, bctx, refs)

	p.session.Persist(ctx, bctx)

	logger.Info().
		Str("query", query).
		Int("references", len(refs)).
		Int("records", len(records)).
		Dur("duration", time.Since(startTime)).
		Msg("Search completed")

	return records, nil
}

// authenticatedContext returns a headless context whose session has been
// verified, running at most one interactive login
func (p *Pipeline) authenticatedContext(ctx context.Context, logger arbor.ILogger) (interfaces.BrowserContext, error) {
	bctx, err := p.openSession(ctx)
	if err != nil {
		return nil, err
	}
	if p.session.Probe(ctx, bctx) {
		return bctx, nil
	}
	bctx.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info().Msg("No valid session, starting interactive login")
	cookies, err := p.session.InteractiveLogin(ctx, p.browser)
	if err != nil {
		return nil, err
	}

	// The visible login context is gone; carry its cookies into a fresh
	// headless context without consulting the providers again
	bctx, err = p.browser.NewContext(ctx, interfaces.ContextOptions{Headless: p.headless, Cookies: cookies})
	if err != nil {
		return nil, fmt.Errorf("failed to create browsing context: %w", err)
	}
	if p.session.Probe(ctx, bctx) {
		return bctx, nil
	}
	bctx.Close()

	return nil, fmt.Errorf("%w: session rejected after interactive login", interfaces.ErrSessionUnavailable)
}

func (p *Pipeline) openSession(ctx context.Context) (interfaces.BrowserContext, error) {
	bctx, err := p.browser.NewContext(ctx, interfaces.ContextOptions{Headless: p.headless})
	if err != nil {
		return nil, fmt.Errorf("failed to create browsing context: %w", err)
	}

	if _, err := p.session.LoadSession(ctx, bctx); err != nil {
		bctx.Close()
		return nil, err
	}
	return bctx, nil
}

// discover opens the listing for query and extracts up to count references.
// The listing page is closed before the fetch batch starts.
func (p *Pipeline) discover(ctx context.Context, bctx interfaces.BrowserContext, query string, count int, logger arbor.ILogger) ([]models.LinkReference, error) {
	page, err := bctx.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open listing page: %w", err)
	}
	defer page.Close()

	searchURL := common.ExpandSearchURL(p.site.SearchURL, query, logger)
	if err := page.Goto(ctx, searchURL, p.navigationTimeout, p.waitUntil); err != nil {
		return nil, fmt.Errorf("failed to open listing %s: %w", searchURL, err)
	}

	if err := page.WaitForSelector(ctx, p.site.ListingItemSelector, p.selectorTimeout); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Debug().Err(err).Str("url", searchURL).Msg("No listing entries rendered yet, extracting best-effort")
	}

	refs, err := p.discovery.Extract(ctx, page, count)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("url", searchURL).Int("references", len(refs)).Msg("Listing discovered")
	return refs, nil
}
