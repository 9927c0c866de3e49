package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

const (
	// probeTimeout bounds the home page navigation used to verify a session
	probeTimeout = 30 * time.Second

	// loginPageTimeout bounds opening the login page in the visible context
	loginPageTimeout = 60 * time.Second
)

// Service owns the login state machine for one site. It is not used
// concurrently with a detail fetch batch.
type Service struct {
	site      common.SiteConfig
	providers []interfaces.SessionProvider
	storage   interfaces.SessionStorage
	logger    arbor.ILogger

	pollInterval time.Duration
	maxAttempts  int

	mu    sync.RWMutex
	state models.SessionState
}

// NewService creates the session manager. Providers are tried in the
// order given; storage receives the cookies of every successful login.
func NewService(config *common.SessionConfig, site common.SiteConfig, storage interfaces.SessionStorage, logger arbor.ILogger, providers ...interfaces.SessionProvider) *Service {
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 150
	}
	return &Service{
		site:         site,
		providers:    providers,
		storage:      storage,
		logger:       logger,
		pollInterval: common.ParseDurationOr(config.PollInterval, 2*time.Second),
		maxAttempts:  maxAttempts,
		state:        models.SessionStateUnauthenticated,
	}
}

// State returns the current position of the login state machine
func (s *Service) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(state models.SessionState) {
	s.mu.Lock()
	previous := s.state
	s.state = state
	s.mu.Unlock()

	if previous != state {
		s.logger.Debug().Str("from", string(previous)).Str("to", string(state)).Msg("Session state changed")
	}
}

// LoadSession attaches the first cookie set found among the providers to bctx.
// No provider having cookies is not an error.
func (s *Service) LoadSession(ctx context.Context, bctx interfaces.BrowserContext) (bool, error) {
	for _, provider := range s.providers {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		cookies, found, err := provider.Load(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", provider.Name()).Msg("Session provider failed - trying next")
			continue
		}
		if !found {
			s.logger.Debug().Str("provider", provider.Name()).Msg("No session from provider")
			continue
		}

		if err := bctx.AddCookies(ctx, cookies); err != nil {
			s.logger.Warn().Err(err).Str("provider", provider.Name()).Msg("Failed to attach session cookies")
			continue
		}

		s.logger.Info().
			Str("provider", provider.Name()).
			Int("cookies", len(cookies)).
			Msg("Session cookies loaded")
		return true, nil
	}

	return false, nil
}

// Verify reports whether page shows an authenticated view: the URL is not
// the login page and no login prompt is rendered
func (s *Service) Verify(ctx context.Context, page interfaces.Page) bool {
	location, err := page.URL(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Verify: failed to read page URL")
		return false
	}
	if location == "" || location == "about:blank" {
		return false
	}
	if s.site.LoginPathMarker != "" && strings.Contains(location, s.site.LoginPathMarker) {
		return false
	}

	if s.site.LoginPromptSelector == "" {
		return true
	}

	html, err := page.Content(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Verify: failed to read page content")
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(s.site.LoginPromptSelector).Length() == 0
}

// Probe opens the site home page in bctx and verifies it. The probe page is
// always closed before returning.
func (s *Service) Probe(ctx context.Context, bctx interfaces.BrowserContext) bool {
	page, err := bctx.NewPage(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Probe: failed to open page")
		return false
	}
	defer page.Close()

	if err := page.Goto(ctx, s.site.HomeURL, probeTimeout, interfaces.WaitDOMContentLoaded); err != nil {
		s.logger.Warn().Err(err).Str("url", s.site.HomeURL).Msg("Probe: navigation failed")
		s.setState(models.SessionStateUnauthenticated)
		return false
	}

	if !s.Verify(ctx, page) {
		s.setState(models.SessionStateUnauthenticated)
		return false
	}

	s.setState(models.SessionStateAuthenticated)
	return true
}

// InteractiveLogin opens a visible context on the login page and polls Verify
// until the user has logged in, the attempts run out, or ctx is done. The
// visible context is closed on return; on success its cookies are persisted
// and returned.
func (s *Service) InteractiveLogin(ctx context.Context, browser interfaces.Browser) ([]*models.Cookie, error) {
	s.setState(models.SessionStateAwaitingInteractiveLogin)

	bctx, err := browser.NewContext(ctx, interfaces.ContextOptions{Headless: false})
	if err != nil {
		s.setState(models.SessionStateFatal)
		return nil, fmt.Errorf("%w: failed to open login window: %w", interfaces.ErrSessionUnavailable, err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage(ctx)
	if err != nil {
		s.setState(models.SessionStateFatal)
		return nil, fmt.Errorf("%w: failed to open login page: %w", interfaces.ErrSessionUnavailable, err)
	}
	defer page.Close()

	if err := page.Goto(ctx, s.site.LoginURL, loginPageTimeout, interfaces.WaitDOMContentLoaded); err != nil {
		s.setState(models.SessionStateFatal)
		return nil, fmt.Errorf("%w: failed to navigate to login page: %w", interfaces.ErrSessionUnavailable, err)
	}

	s.logger.Info().
		Str("url", s.site.LoginURL).
		Dur("timeout", s.pollInterval*time.Duration(s.maxAttempts)).
		Msg("Waiting for interactive login in the browser window")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			s.setState(models.SessionStateFatal)
			return nil, fmt.Errorf("%w: login cancelled: %w", interfaces.ErrSessionUnavailable, ctx.Err())
		case <-ticker.C:
		}

		if s.Verify(ctx, page) {
			cookies, err := bctx.Cookies(ctx)
			if err != nil {
				s.setState(models.SessionStateFatal)
				return nil, fmt.Errorf("%w: failed to read login cookies: %w", interfaces.ErrSessionUnavailable, err)
			}
			s.logger.Info().Int("attempt", attempt).Int("cookies", len(cookies)).Msg("Interactive login completed")
			s.save(ctx, cookies)
			s.setState(models.SessionStateAuthenticated)
			return cookies, nil
		}

		if attempt%15 == 0 {
			s.logger.Info().Int("attempt", attempt).Int("max_attempts", s.maxAttempts).Msg("Still waiting for login")
		}
	}

	s.setState(models.SessionStateFatal)
	return nil, fmt.Errorf("%w: login not completed after %d attempts", interfaces.ErrSessionUnavailable, s.maxAttempts)
}

// Persist saves the cookies of bctx. Failures are logged only; the next run
// simply asks for a new login.
func (s *Service) Persist(ctx context.Context, bctx interfaces.BrowserContext) {
	cookies, err := bctx.Cookies(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read cookies for persistence")
		return
	}
	s.save(ctx, cookies)
}

func (s *Service) save(ctx context.Context, cookies []*models.Cookie) {
	if len(cookies) == 0 {
		s.logger.Debug().Msg("No cookies to persist")
		return
	}

	if err := s.storage.SaveCookies(ctx, cookies); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist session")
		return
	}

	s.logger.Debug().Int("cookies", len(cookies)).Msg("Session persisted")
}

// Logout deletes the stored session and resets the state machine
func (s *Service) Logout(ctx context.Context) error {
	if err := s.storage.DeleteCookies(ctx); err != nil {
		return fmt.Errorf("failed to delete stored session: %w", err)
	}
	s.setState(models.SessionStateUnauthenticated)
	s.logger.Info().Msg("Stored session deleted")
	return nil
}
