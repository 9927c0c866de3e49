package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Session     SessionConfig   `toml:"session"`
	Browser     BrowserConfig   `toml:"browser"`
	Site        SiteConfig      `toml:"site"`
	Discovery   DiscoveryConfig `toml:"discovery"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Cache       CacheConfig     `toml:"cache"`
}

type ServerConfig struct {
	Port         int    `toml:"port" validate:"min=1,max=65535"`
	Host         string `toml:"host"`
	WriteTimeout string `toml:"write_timeout"` // Must cover a full uncached search (default: "10m")
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration.
// The database is only opened when a store is set to "badger".
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// SessionConfig controls where cookies come from and how long an
// interactive login may take
type SessionConfig struct {
	Store        string `toml:"store" validate:"oneof=file badger"`
	CookieFile   string `toml:"cookie_file"`   // JSON array of cookies when store = "file"
	CookiesEnv   string `toml:"cookies_env"`   // Env var holding a JSON cookie array; takes priority over the store
	PollInterval string `toml:"poll_interval"` // Interactive login verify interval (default: "2s")
	MaxAttempts  int    `toml:"max_attempts" validate:"min=1"`
}

type BrowserConfig struct {
	Driver         string `toml:"driver" validate:"oneof=chromedp playwright"`
	Headless       bool   `toml:"headless"`
	ExecPath       string `toml:"exec_path"` // Optional Chrome binary for chromedp
	UserAgent      string `toml:"user_agent"`
	InstallDrivers bool   `toml:"install_drivers"` // Download playwright browsers on startup
}

// SiteConfig holds the URLs and selectors of the target site revision
type SiteConfig struct {
	HomeURL             string `toml:"home_url" validate:"required,url"`
	LoginURL            string `toml:"login_url" validate:"required,url"`
	SearchURL           string `toml:"search_url" validate:"required,contains={query}"` // {query} is replaced by the escaped query
	LoginPathMarker     string `toml:"login_path_marker"`                               // Present in the URL while the login page is shown
	LoginPromptSelector string `toml:"login_prompt_selector"`                           // Present while a login prompt is shown

	ListingItemSelector   string `toml:"listing_item_selector" validate:"required"`
	ListingLinkSelector   string `toml:"listing_link_selector" validate:"required"`
	ListingTitleSelector  string `toml:"listing_title_selector"`
	ListingAuthorSelector string `toml:"listing_author_selector"`

	DetailContainerSelector  string `toml:"detail_container_selector" validate:"required"`
	DetailTitleSelector      string `toml:"detail_title_selector"`
	DetailBodySelector       string `toml:"detail_body_selector"`
	DetailTagSelector        string `toml:"detail_tag_selector"` // Hashtag anchors inside the body
	DetailAuthorSelector     string `toml:"detail_author_selector"`
	DetailAuthorDescSelector string `toml:"detail_author_desc_selector"`
	DetailLikesSelector      string `toml:"detail_likes_selector"`
	DetailCollectsSelector   string `toml:"detail_collects_selector"`
	DetailCommentsSelector   string `toml:"detail_comments_selector"`
	DetailImageSelector      string `toml:"detail_image_selector"`
}

// DiscoveryConfig controls incremental scrolling on the listing page
type DiscoveryConfig struct {
	ScrollThreshold int    `toml:"scroll_threshold" validate:"min=0"` // Scroll only when more items than this are wanted
	MaxScrolls      int    `toml:"max_scrolls" validate:"min=0"`
	ScrollStep      int    `toml:"scroll_step" validate:"min=1"` // Pixels per scroll step
	ScrollSettle    string `toml:"scroll_settle"`                // Delay after each scroll step
}

// CrawlerConfig controls the detail fetch workers
type CrawlerConfig struct {
	MaxConcurrency          int     `toml:"max_concurrency" validate:"min=1"`
	Stagger                 string  `toml:"stagger"`       // Worker k waits k*stagger before its first item
	RequestDelay            string  `toml:"request_delay"` // Pause after every item per worker
	NavigationTimeout       string  `toml:"navigation_timeout"`
	SelectorTimeout         string  `toml:"selector_timeout"`
	WaitUntil               string  `toml:"wait_until" validate:"oneof=domcontentloaded load networkidle"`
	MaxNavigationsPerSecond float64 `toml:"max_navigations_per_second" validate:"min=0"` // 0 disables global pacing
	ContentFormat           string  `toml:"content_format" validate:"oneof=text markdown"`
}

type CacheConfig struct {
	Enabled       bool   `toml:"enabled"`
	Store         string `toml:"store" validate:"oneof=file badger"`
	File          string `toml:"file"` // JSON store path when store = "file"
	TTL           string `toml:"ttl"`
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule (with seconds) for the server-mode sweep
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:         8086,
			Host:         "localhost",
			WriteTimeout: "10m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/badger",
			},
		},
		Session: SessionConfig{
			Store:        "file",
			CookieFile:   "./data/cookies.json",
			CookiesEnv:   "GLEANER_COOKIES",
			PollInterval: "2s",
			MaxAttempts:  150, // 5 minutes at the default interval
		},
		Browser: BrowserConfig{
			Driver:    "chromedp",
			Headless:  true,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Site: SiteConfig{
			HomeURL:             "https://www.xiaohongshu.com/explore",
			LoginURL:            "https://www.xiaohongshu.com/login",
			SearchURL:           "https://www.xiaohongshu.com/search_result?keyword={query}&source=web_search_result_notes",
			LoginPathMarker:     "/login",
			LoginPromptSelector: ".login-container",

			ListingItemSelector:   "section.note-item",
			ListingLinkSelector:   "a.cover",
			ListingTitleSelector:  ".footer .title span",
			ListingAuthorSelector: ".author-wrapper .name",

			DetailContainerSelector:  "#noteContainer",
			DetailTitleSelector:      "#detail-title",
			DetailBodySelector:       "#detail-desc .note-text",
			DetailTagSelector:        "a.tag",
			DetailAuthorSelector:     ".author-wrapper .username",
			DetailAuthorDescSelector: ".author-wrapper .user-desc",
			DetailLikesSelector:      ".engage-bar-style .like-wrapper .count",
			DetailCollectsSelector:   ".engage-bar-style .collect-wrapper .count",
			DetailCommentsSelector:   ".engage-bar-style .chat-wrapper .count",
			DetailImageSelector:      ".media-container img",
		},
		Discovery: DiscoveryConfig{
			ScrollThreshold: 6,
			MaxScrolls:      10,
			ScrollStep:      1000,
			ScrollSettle:    "1s",
		},
		Crawler: CrawlerConfig{
			MaxConcurrency:    3,
			Stagger:           "1s",
			RequestDelay:      "2s",
			NavigationTimeout: "30s",
			SelectorTimeout:   "15s",
			WaitUntil:         "domcontentloaded",
			ContentFormat:     "text",
		},
		Cache: CacheConfig{
			Enabled:       true,
			Store:         "file",
			File:          "./data/search-cache.json",
			TTL:           "336h",          // 14 days
			SweepSchedule: "0 0 */6 * * *", // Every 6 hours (cron format)
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies GLEANER_* environment variables to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("GLEANER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("GLEANER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("GLEANER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("GLEANER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("GLEANER_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}

	// Storage configuration
	if badgerPath := os.Getenv("GLEANER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Session configuration
	if store := os.Getenv("GLEANER_SESSION_STORE"); store != "" {
		config.Session.Store = store
	}
	if cookieFile := os.Getenv("GLEANER_COOKIE_FILE"); cookieFile != "" {
		config.Session.CookieFile = cookieFile
	}

	// Browser configuration
	if driver := os.Getenv("GLEANER_BROWSER_DRIVER"); driver != "" {
		config.Browser.Driver = driver
	}
	if headless := os.Getenv("GLEANER_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if execPath := os.Getenv("GLEANER_BROWSER_EXEC_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}

	// Crawler configuration
	if maxConcurrency := os.Getenv("GLEANER_CRAWLER_MAX_CONCURRENCY"); maxConcurrency != "" {
		if mc, err := strconv.Atoi(maxConcurrency); err == nil {
			config.Crawler.MaxConcurrency = mc
		}
	}
	if stagger := os.Getenv("GLEANER_CRAWLER_STAGGER"); stagger != "" {
		config.Crawler.Stagger = stagger
	}
	if requestDelay := os.Getenv("GLEANER_CRAWLER_REQUEST_DELAY"); requestDelay != "" {
		config.Crawler.RequestDelay = requestDelay
	}
	if contentFormat := os.Getenv("GLEANER_CRAWLER_CONTENT_FORMAT"); contentFormat != "" {
		config.Crawler.ContentFormat = contentFormat
	}

	// Cache configuration
	if enabled := os.Getenv("GLEANER_CACHE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cache.Enabled = e
		}
	}
	if store := os.Getenv("GLEANER_CACHE_STORE"); store != "" {
		config.Cache.Store = store
	}
	if file := os.Getenv("GLEANER_CACHE_FILE"); file != "" {
		config.Cache.File = file
	}
	if ttl := os.Getenv("GLEANER_CACHE_TTL"); ttl != "" {
		config.Cache.TTL = ttl
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Zero values leave the config untouched.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct constraints, duration strings and the sweep schedule
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"server.write_timeout":       c.Server.WriteTimeout,
		"session.poll_interval":      c.Session.PollInterval,
		"discovery.scroll_settle":    c.Discovery.ScrollSettle,
		"crawler.stagger":            c.Crawler.Stagger,
		"crawler.request_delay":      c.Crawler.RequestDelay,
		"crawler.navigation_timeout": c.Crawler.NavigationTimeout,
		"crawler.selector_timeout":   c.Crawler.SelectorTimeout,
		"cache.ttl":                  c.Cache.TTL,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
	}

	if c.Cache.SweepSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Cache.SweepSchedule); err != nil {
			return fmt.Errorf("invalid configuration: cache.sweep_schedule: %w", err)
		}
	}

	return nil
}

// ParseDurationOr parses value, returning fallback when it is empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
