// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 4:12:40 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/browser"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/handlers"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/services/auth"
	"github.com/ternarybob/gleaner/internal/services/cache"
	"github.com/ternarybob/gleaner/internal/services/scheduler"
	"github.com/ternarybob/gleaner/internal/services/search"
	"github.com/ternarybob/gleaner/internal/storage"
)

// CacheSweepJob is the scheduler name of the expired-entry sweep
const CacheSweepJob = "cache_sweep"

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Browser automation (started on first use)
	Browser interfaces.Browser

	// Session, cache and search services
	SessionService *auth.Service
	CacheService   *cache.Service
	Pipeline       *search.Pipeline
	SearchService  interfaces.SearchService

	// Scheduler service (server mode only)
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	AuthHandler      *handlers.AuthHandler
	CacheHandler     *handlers.CacheHandler
	SearchHandler    *handlers.SearchHandler
	SchedulerHandler *handlers.SchedulerHandler
}

// New initializes the application with all dependencies.
// The configured browser driver is not started until a search needs it.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	return NewWithBrowser(cfg, logger, browser.NewLazy(&cfg.Browser, logger))
}

// NewWithBrowser initializes the application around an existing browser
func NewWithBrowser(cfg *common.Config, logger arbor.ILogger, b interfaces.Browser) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Browser: b,
	}

	// Initialize storage
	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize services
	app.initServices()

	// Initialize handlers
	app.initHandlers()

	logger.Debug().
		Str("driver", cfg.Browser.Driver).
		Str("session_store", cfg.Session.Store).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initStorage() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("session_store", a.Config.Session.Store).
		Str("cache_store", a.Config.Cache.Store).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes services in dependency order:
// session -> cache -> pipeline -> search -> scheduler
func (a *App) initServices() {
	// Cookie providers in priority order: environment blob, then durable store
	sessionStorage := a.StorageManager.SessionStorage()
	a.SessionService = auth.NewService(
		&a.Config.Session,
		a.Config.Site,
		sessionStorage,
		a.Logger,
		auth.NewEnvProvider(a.Config.Session.CookiesEnv),
		auth.NewStorageProvider(sessionStorage),
	)

	a.CacheService = cache.NewService(a.StorageManager.CacheStorage(), &a.Config.Cache, a.Logger)

	a.Pipeline = search.NewPipeline(a.Browser, a.SessionService, a.Config, a.Logger)
	a.SearchService = search.NewSearchService(a.Pipeline, a.CacheService, a.Logger, a.Config)

	a.SchedulerService = scheduler.NewService(a.Logger)
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.AuthHandler = handlers.NewAuthHandler(a.SessionService, a.StorageManager.SessionStorage(), a.Logger)
	a.CacheHandler = handlers.NewCacheHandler(a.CacheService, a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.SearchService, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService)
}

// StartScheduler registers the periodic cache sweep and starts the scheduler.
// Nothing is registered when the cache is disabled or has no sweep schedule.
func (a *App) StartScheduler() error {
	if a.Config.Cache.Enabled && a.Config.Cache.SweepSchedule != "" {
		err := a.SchedulerService.RegisterJob(
			CacheSweepJob,
			a.Config.Cache.SweepSchedule,
			"Remove expired entries from the search result cache",
			func() error {
				removed := a.CacheService.Sweep(context.Background())
				a.Logger.Info().Int("removed", removed).Msg("Cache sweep completed")
				return nil
			},
		)
		if err != nil {
			return fmt.Errorf("failed to register cache sweep: %w", err)
		}
	}

	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop scheduler service
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Close browser (no-op when it was never started)
	if a.Browser != nil {
		if err := a.Browser.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}

	// Close storage
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Debug().Msg("Storage closed")
	}

	return nil
}
