// Package config loads the jobsync YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no --config
// flag is given.
const EnvConfigPath = "JOBSYNC_CONFIG"

// Collector kinds a pipeline may use.
const (
	CollectorAdzuna         = "adzuna"
	CollectorSkillCareerHub = "skillcareerhub"
	CollectorGreenhouse     = "greenhouse"
	CollectorLever          = "lever"
	CollectorAshby          = "ashby"
	CollectorWorkday        = "workday"
	CollectorHTML           = "html"
	CollectorBrowser        = "browser"
	CollectorJSONFile       = "jsonfile"
	CollectorGem            = "gem"
	CollectorMicrosoft      = "microsoft"
)

// Config is the root configuration for jobsync.
type Config struct {
	Database     DatabaseConfig
	Sync         SyncConfig
	HTTP         HTTPConfig
	Schedule     ScheduleConfig
	Pipelines    []PipelineConfig
	Notification NotificationConfig
	Publish      PublishConfig
	Cache        CacheConfig
	Skills       SkillsConfig
}

// DatabaseConfig selects the store. Driver is "sqlite" (default) or
// "postgres".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`   // sqlite file
	URL    string `yaml:"url"`    // postgres connection string
	Schema string `yaml:"schema"` // postgres schema, created if missing
}

// SyncConfig tunes the sync engine and ledger housekeeping.
type SyncConfig struct {
	BatchSize       int
	AbandonAfter    time.Duration // RUNNING rows older than this are failed at startup
	DeactivateAfter time.Duration // zero disables scheduled deactivation
}

// HTTPConfig controls the collectors' HTTP client.
type HTTPConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RateLimit      RateLimitConfig
}

// RateLimitConfig controls per-host request pacing.
type RateLimitConfig struct {
	MinDelay  time.Duration            // minimum gap between requests to the same host
	Overrides map[string]time.Duration // per-host overrides
}

// MinDelayFor returns the configured delay for host, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(host string) time.Duration {
	if d, ok := r.Overrides[host]; ok {
		return d
	}
	return r.MinDelay
}

// ScheduleConfig drives the daemon.
type ScheduleConfig struct {
	Timezone   string
	Location   *time.Location
	RunOnStart bool
	Entries    []ScheduleEntry
}

// ScheduleEntry runs Pipelines (all enabled ones when empty) in Mode on Cron.
type ScheduleEntry struct {
	Cron      string   `yaml:"cron"`
	Mode      string   `yaml:"mode"` // "full" or "incremental"
	Pipelines []string `yaml:"pipelines"`
}

// PipelineConfig describes one named source. Which fields apply depends on
// Collector.
type PipelineConfig struct {
	Name      string
	Collector string
	Enabled   bool
	Company   string

	// greenhouse, lever, ashby, gem
	BoardToken string

	// skillcareerhub, workday
	URL    string
	APIKey string

	// workday, microsoft
	SearchText     string
	SearchLocation string

	// adzuna
	AppID            string
	AppKey           string
	SearchTerms      []string
	Country          string
	Category         string
	MaxPages         int
	ResultsPerPage   int
	ResolveApplyURLs bool

	// adzuna apply-URL resolution, workday detail fetches
	Parallelism int

	// html, browser
	URLs          []string
	Source        string
	Selectors     SelectorsConfig
	WaitSelector  string
	RenderTimeout time.Duration

	// jsonfile
	Path string

	Filters FilterConfig
}

// SelectorsConfig holds CSS selectors for html and browser pipelines.
type SelectorsConfig struct {
	Item        string `yaml:"item"`
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Company     string `yaml:"company"`
	Location    string `yaml:"location"`
	Department  string `yaml:"department"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
	Date        string `yaml:"date"`
	JobType     string `yaml:"job_type"`
}

// FilterConfig holds keyword and location filter settings.
type FilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	Locations            []string `yaml:"locations"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	On         string `yaml:"on"`          // "failure" or "always"
}

// PublishConfig enables new-job events. An empty NATSURL disables them.
type PublishConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// CacheConfig backs the apply-URL cache. An empty RedisURL keeps it in
// process.
type CacheConfig struct {
	RedisURL      string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// SkillsConfig extends the built-in skill vocabulary.
type SkillsConfig struct {
	Extra []string `yaml:"extra"`
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database     DatabaseConfig     `yaml:"database"`
	Sync         rawSyncConfig      `yaml:"sync"`
	HTTP         rawHTTPConfig      `yaml:"http"`
	Schedule     rawScheduleConfig  `yaml:"schedule"`
	Pipelines    []rawPipeline      `yaml:"pipelines"`
	Notification NotificationConfig `yaml:"notification"`
	Publish      PublishConfig      `yaml:"publish"`
	Cache        rawCacheConfig     `yaml:"cache"`
	Skills       SkillsConfig       `yaml:"skills"`
}

type rawSyncConfig struct {
	BatchSize       int    `yaml:"batch_size"`
	AbandonAfter    string `yaml:"abandon_after"`
	DeactivateAfter string `yaml:"deactivate_after"`
}

type rawHTTPConfig struct {
	Timeout        string             `yaml:"timeout"`
	MaxRetries     *int               `yaml:"max_retries"`
	RetryBaseDelay string             `yaml:"retry_base_delay"`
	RateLimit      rawRateLimitConfig `yaml:"rate_limit"`
}

type rawRateLimitConfig struct {
	MinDelay  string            `yaml:"min_delay"`
	Overrides map[string]string `yaml:"overrides"`
}

type rawScheduleConfig struct {
	Timezone   string          `yaml:"timezone"`
	RunOnStart bool            `yaml:"run_on_start"`
	Entries    []ScheduleEntry `yaml:"entries"`
}

type rawCacheConfig struct {
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTL           string `yaml:"ttl"`
}

type rawPipeline struct {
	Name             string          `yaml:"name"`
	Collector        string          `yaml:"collector"`
	Enabled          *bool           `yaml:"enabled"`
	Company          string          `yaml:"company"`
	BoardToken       string          `yaml:"board_token"`
	URL              string          `yaml:"url"`
	APIKey           string          `yaml:"api_key"`
	SearchText       string          `yaml:"search_text"`
	SearchLocation   string          `yaml:"search_location"`
	AppID            string          `yaml:"app_id"`
	AppKey           string          `yaml:"app_key"`
	SearchTerms      []string        `yaml:"search_terms"`
	Country          string          `yaml:"country"`
	Category         string          `yaml:"category"`
	MaxPages         int             `yaml:"max_pages"`
	ResultsPerPage   int             `yaml:"results_per_page"`
	ResolveApplyURLs bool            `yaml:"resolve_apply_urls"`
	Parallelism      int             `yaml:"parallelism"`
	URLs             []string        `yaml:"urls"`
	Source           string          `yaml:"source"`
	Selectors        SelectorsConfig `yaml:"selectors"`
	WaitSelector     string          `yaml:"wait_selector"`
	RenderTimeout    string          `yaml:"render_timeout"`
	Path             string          `yaml:"path"`
	Filters          FilterConfig    `yaml:"filters"`
}

// ResolvePath picks the config file: the flag value, then $JOBSYNC_CONFIG,
// then ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return "config.yaml"
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	d := durationParser{}
	cfg := &Config{
		Database: raw.Database,
		Sync: SyncConfig{
			BatchSize:       raw.Sync.BatchSize,
			AbandonAfter:    d.parse("sync.abandon_after", raw.Sync.AbandonAfter, 6*time.Hour),
			DeactivateAfter: d.parse("sync.deactivate_after", raw.Sync.DeactivateAfter, 0),
		},
		HTTP: HTTPConfig{
			Timeout:        d.parse("http.timeout", raw.HTTP.Timeout, 30*time.Second),
			MaxRetries:     3,
			RetryBaseDelay: d.parse("http.retry_base_delay", raw.HTTP.RetryBaseDelay, 2*time.Second),
			RateLimit: RateLimitConfig{
				MinDelay:  d.parse("http.rate_limit.min_delay", raw.HTTP.RateLimit.MinDelay, time.Second),
				Overrides: make(map[string]time.Duration),
			},
		},
		Schedule: ScheduleConfig{
			Timezone:   raw.Schedule.Timezone,
			RunOnStart: raw.Schedule.RunOnStart,
			Entries:    raw.Schedule.Entries,
		},
		Notification: raw.Notification,
		Publish:      raw.Publish,
		Cache: CacheConfig{
			RedisURL:      raw.Cache.RedisURL,
			RedisPassword: raw.Cache.RedisPassword,
			RedisDB:       raw.Cache.RedisDB,
			TTL:           d.parse("cache.ttl", raw.Cache.TTL, 24*time.Hour),
		},
		Skills: raw.Skills,
	}
	if raw.HTTP.MaxRetries != nil {
		cfg.HTTP.MaxRetries = *raw.HTTP.MaxRetries
	}
	for host, v := range raw.HTTP.RateLimit.Overrides {
		cfg.HTTP.RateLimit.Overrides[host] = d.parse(fmt.Sprintf("http.rate_limit.overrides[%q]", host), v, 0)
	}
	for i, rp := range raw.Pipelines {
		cfg.Pipelines = append(cfg.Pipelines, rp.toPipeline(&d, i))
	}
	if d.err != nil {
		return nil, d.err
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	cfg.Schedule.Location = loc

	return cfg, nil
}

func (rp rawPipeline) toPipeline(d *durationParser, i int) PipelineConfig {
	enabled := true
	if rp.Enabled != nil {
		enabled = *rp.Enabled
	}
	return PipelineConfig{
		Name:             rp.Name,
		Collector:        strings.ToLower(strings.TrimSpace(rp.Collector)),
		Enabled:          enabled,
		Company:          rp.Company,
		BoardToken:       rp.BoardToken,
		URL:              rp.URL,
		APIKey:           rp.APIKey,
		SearchText:       rp.SearchText,
		SearchLocation:   rp.SearchLocation,
		AppID:            rp.AppID,
		AppKey:           rp.AppKey,
		SearchTerms:      rp.SearchTerms,
		Country:          rp.Country,
		Category:         rp.Category,
		MaxPages:         rp.MaxPages,
		ResultsPerPage:   rp.ResultsPerPage,
		ResolveApplyURLs: rp.ResolveApplyURLs,
		Parallelism:      rp.Parallelism,
		URLs:             rp.URLs,
		Source:           rp.Source,
		Selectors:        rp.Selectors,
		WaitSelector:     rp.WaitSelector,
		RenderTimeout:    d.parse(fmt.Sprintf("pipelines[%d].render_timeout", i), rp.RenderTimeout, 0),
		Path:             rp.Path,
		Filters:          rp.Filters,
	}
}

// durationParser keeps the first parse error so Load can report it once.
type durationParser struct {
	err error
}

func (d *durationParser) parse(field, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	v, err := time.ParseDuration(value)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return v
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "jobsync.db"
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 500
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Asia/Kolkata"
	}
	if len(cfg.Schedule.Entries) == 0 {
		cfg.Schedule.Entries = []ScheduleEntry{
			{Cron: "0 3 * * *", Mode: "full"},
			{Cron: "0 15 * * *", Mode: "incremental"},
		}
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.Notification.On == "" {
		cfg.Notification.On = "failure"
	}
	if cfg.Publish.Subject == "" {
		cfg.Publish.Subject = "jobs.new"
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.URL == "" {
			return fmt.Errorf("database.url is required when driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Database.Driver)
	}

	if cfg.Sync.BatchSize < 0 {
		return fmt.Errorf("sync.batch_size must be positive, got %d", cfg.Sync.BatchSize)
	}
	if cfg.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must not be negative, got %d", cfg.HTTP.MaxRetries)
	}

	names := make(map[string]bool, len(cfg.Pipelines))
	enabled := 0
	for i, p := range cfg.Pipelines {
		if p.Name == "" {
			return fmt.Errorf("pipelines[%d].name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("pipeline %q is defined twice", p.Name)
		}
		names[p.Name] = true
		if err := validatePipeline(p); err != nil {
			return fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		if p.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one pipeline must be enabled")
	}

	for i, e := range cfg.Schedule.Entries {
		if strings.TrimSpace(e.Cron) == "" {
			return fmt.Errorf("schedule.entries[%d].cron is required", i)
		}
		switch strings.ToLower(e.Mode) {
		case "", "full", "incremental":
		default:
			return fmt.Errorf("schedule.entries[%d].mode must be \"full\" or \"incremental\", got %q", i, e.Mode)
		}
		for _, name := range e.Pipelines {
			if !names[name] {
				return fmt.Errorf("schedule.entries[%d] names unknown pipeline %q", i, name)
			}
		}
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}
	switch cfg.Notification.On {
	case "failure", "always":
	default:
		return fmt.Errorf("notification.on must be \"failure\" or \"always\", got %q", cfg.Notification.On)
	}

	return nil
}

func validatePipeline(p PipelineConfig) error {
	require := func(field, value string) error {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required for collector %q", field, p.Collector)
		}
		return nil
	}

	switch p.Collector {
	case CollectorAdzuna:
		if err := require("app_id", p.AppID); err != nil {
			return err
		}
		if err := require("app_key", p.AppKey); err != nil {
			return err
		}
		if len(p.SearchTerms) == 0 {
			return fmt.Errorf("search_terms is required for collector %q", p.Collector)
		}
	case CollectorSkillCareerHub:
		if err := require("url", p.URL); err != nil {
			return err
		}
		return require("api_key", p.APIKey)
	case CollectorGreenhouse, CollectorLever, CollectorAshby, CollectorGem:
		if err := require("board_token", p.BoardToken); err != nil {
			return err
		}
		return require("company", p.Company)
	case CollectorWorkday:
		if err := require("url", p.URL); err != nil {
			return err
		}
		return require("company", p.Company)
	case CollectorHTML, CollectorBrowser:
		if len(p.URLs) == 0 {
			return fmt.Errorf("urls is required for collector %q", p.Collector)
		}
		if err := require("selectors.item", p.Selectors.Item); err != nil {
			return err
		}
		return require("selectors.title", p.Selectors.Title)
	case CollectorJSONFile:
		return require("path", p.Path)
	case CollectorMicrosoft:
	case "":
		return fmt.Errorf("collector is required")
	default:
		return fmt.Errorf("unknown collector %q", p.Collector)
	}
	return nil
}

// Pipeline returns the pipeline called name.
func (c *Config) Pipeline(name string) (PipelineConfig, bool) {
	for _, p := range c.Pipelines {
		if p.Name == name {
			return p, true
		}
	}
	return PipelineConfig{}, false
}

// EnabledPipelines returns enabled pipelines in file order.
func (c *Config) EnabledPipelines() []PipelineConfig {
	var out []PipelineConfig
	for _, p := range c.Pipelines {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
