package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNavigationFailed marks a detail page that could not be opened or loaded
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrExtractionFailed marks a loaded detail page whose fields could not be read
	ErrExtractionFailed = errors.New("extraction failed")
)

// Orchestrator fetches detail pages with a fixed number of workers sharing
// one browsing context. Each item gets its own page.
type Orchestrator struct {
	site      common.SiteConfig
	extractor *DetailExtractor
	limiter   *RateLimiter
	logger    arbor.ILogger

	maxConcurrency    int
	stagger           time.Duration
	requestDelay      time.Duration
	navigationTimeout time.Duration
	selectorTimeout   time.Duration
	waitUntil         interfaces.WaitStrategy
}

// NewOrchestrator creates an orchestrator from the [crawler] settings
func NewOrchestrator(site common.SiteConfig, config *common.CrawlerConfig, logger arbor.ILogger) *Orchestrator {
	maxConcurrency := config.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}
	waitUntil := interfaces.WaitStrategy(config.WaitUntil)
	if waitUntil == "" {
		waitUntil = interfaces.WaitDOMContentLoaded
	}

	return &Orchestrator{
		site:              site,
		extractor:         NewDetailExtractor(site, config.ContentFormat, logger),
		limiter:           NewRateLimiter(config.MaxNavigationsPerSecond),
		logger:            logger,
		maxConcurrency:    maxConcurrency,
		stagger:           common.ParseDurationOr(config.Stagger, time.Second),
		requestDelay:      common.ParseDurationOr(config.RequestDelay, 2*time.Second),
		navigationTimeout: common.ParseDurationOr(config.NavigationTimeout, 30*time.Second),
		selectorTimeout:   common.ParseDurationOr(config.SelectorTimeout, 15*time.Second),
		waitUntil:         waitUntil,
	}
}

// FetchAll returns one record per reference with result[i].Link == refs[i].URL.
// Failed items are replaced by degraded records and never abort the batch.
// If ctx is cancelled, items not yet fetched are returned degraded.
func (o *Orchestrator) FetchAll(ctx context.Context, bctx interfaces.BrowserContext, refs []models.LinkReference) []models.DetailRecord {
	if len(refs) == 0 {
		return []models.DetailRecord{}
	}

	startTime := time.Now()
	workers := min(o.maxConcurrency, len(refs))

	results := make([]models.DetailRecord, len(refs))
	filled := make([]bool, len(refs))

	indices := make(chan int, len(refs))
	for i := range refs {
		indices <- i
	}
	close(indices)

	o.logger.Info().
		Int("items", len(refs)).
		Int("workers", workers).
		Msg("Starting detail fetch batch")

	var g errgroup.Group
	for k := 0; k < workers; k++ {
		worker := k
		g.Go(func() error {
			if !sleepContext(ctx, time.Duration(worker)*o.stagger) {
				return nil
			}
			for i := range indices {
				if ctx.Err() != nil {
					return nil
				}
				results[i] = o.fetch(ctx, bctx, worker, i, refs[i])
				filled[i] = true

				if !sleepContext(ctx, o.requestDelay) {
					return nil
				}
			}
			return nil
		})
	}
	g.Wait()

	degraded := 0
	for i := range results {
		if !filled[i] {
			results[i] = models.NewDegradedRecord(refs[i])
		}
		if results[i].IsDegraded() {
			degraded++
		}
	}

	o.logger.Info().
		Int("items", len(refs)).
		Int("degraded", degraded).
		Dur("duration", time.Since(startTime)).
		Msg("Detail fetch batch complete")

	return results
}

func (o *Orchestrator) fetch(ctx context.Context, bctx interfaces.BrowserContext, worker, index int, ref models.LinkReference) models.DetailRecord {
	startTime := time.Now()

	record, err := o.fetchDetail(ctx, bctx, ref)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Int("worker", worker).
			Int("index", index).
			Str("url", ref.URL).
			Msg("Detail fetch failed, using degraded record")
		return models.NewDegradedRecord(ref)
	}

	o.logger.Debug().
		Int("worker", worker).
		Int("index", index).
		Str("url", ref.URL).
		Dur("duration", time.Since(startTime)).
		Msg("Detail fetched")
	return record
}

func (o *Orchestrator) fetchDetail(ctx context.Context, bctx interfaces.BrowserContext, ref models.LinkReference) (record models.DetailRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrExtractionFailed, r)
		}
	}()

	if err := o.limiter.Wait(ctx); err != nil {
		return record, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return record, fmt.Errorf("%w: failed to open page: %w", ErrNavigationFailed, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			o.logger.Debug().Err(closeErr).Str("url", ref.URL).Msg("Failed to close page")
		}
	}()

	if err := page.Goto(ctx, ref.URL, o.navigationTimeout, o.waitUntil); err != nil {
		return record, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}

	if o.site.DetailContainerSelector != "" {
		if err := page.WaitForSelector(ctx, o.site.DetailContainerSelector, o.selectorTimeout); err != nil {
			if ctx.Err() != nil {
				return record, fmt.Errorf("%w: %w", ErrNavigationFailed, ctx.Err())
			}
			o.logger.Debug().
				Err(err).
				Str("url", ref.URL).
				Str("selector", o.site.DetailContainerSelector).
				Msg("Detail container not found, extracting best-effort")
		}
	}

	html, err := page.Content(ctx)
	if err != nil {
		return record, fmt.Errorf("%w: failed to read page: %w", ErrExtractionFailed, err)
	}

	return o.extractor.Extract(html, ref)
}

// sleepContext waits for d, returning false if ctx ended first
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
