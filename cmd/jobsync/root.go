package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/amishk599/jobsync/internal/cache"
	"github.com/amishk599/jobsync/internal/canonical"
	"github.com/amishk599/jobsync/internal/collector"
	"github.com/amishk599/jobsync/internal/config"
	"github.com/amishk599/jobsync/internal/events"
	"github.com/amishk599/jobsync/internal/filter"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/notifier"
	"github.com/amishk599/jobsync/internal/ratelimit"
	"github.com/amishk599/jobsync/internal/retry"
	"github.com/amishk599/jobsync/internal/skills"
	"github.com/amishk599/jobsync/internal/store"
	"github.com/amishk599/jobsync/internal/syncer"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsync",
	Short: "Normalize job postings and sync them idempotently",
	Long:  "jobsync collects job postings from configured sources, canonicalizes them, and upserts them into a store with a ledger of every sync run.",
	// Default to `start` so that `jobsync` with no args runs the daemon.
	RunE:          runStart,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSYNC_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

func setupLogger(dbg bool) *zap.Logger {
	level := zapcore.InfoLevel
	if dbg {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level)
	return zap.New(core)
}

// errFailed is returned by commands that have already logged their failure.
// main exits non-zero without printing it again.
var errFailed = errors.New("command failed")

// loadConfigLogged is the common prologue of every command that needs config.
func loadConfigLogged(logger *zap.Logger) (*config.Config, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return nil, errFailed
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		URL:    cfg.Database.URL,
		Schema: cfg.Database.Schema,
	})
}

// deps are the collaborators every collector shares.
type deps struct {
	client   *collector.Client
	resolver *collector.ApplyURLResolver
	cache    cache.Cache
	logger   *zap.Logger
}

func newDeps(cfg *config.Config, logger *zap.Logger) *deps {
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}
	limiter := ratelimit.New(cfg.HTTP.RateLimit.MinDelay, cfg.HTTP.RateLimit.Overrides)
	policy := retry.NewPolicy(cfg.HTTP.MaxRetries, cfg.HTTP.RetryBaseDelay, logger)
	client := collector.NewClient(httpClient, limiter, policy, logger)

	c := cache.New(cache.Options{
		DefaultTTL:    cfg.Cache.TTL,
		RedisURL:      cfg.Cache.RedisURL,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
	})
	return &deps{
		client:   client,
		resolver: collector.NewApplyURLResolver(client, c, cfg.Cache.TTL, logger),
		cache:    c,
		logger:   logger,
	}
}

func (d *deps) Close() {
	if err := d.cache.Close(); err != nil {
		d.logger.Warn("closing cache", zap.Error(err))
	}
}

// newSource builds the unfiltered collector for p.
func (d *deps) newSource(p config.PipelineConfig) (model.Collector, error) {
	switch p.Collector {
	case config.CollectorAdzuna:
		return collector.NewAdzuna(collector.AdzunaConfig{
			AppID:            p.AppID,
			AppKey:           p.AppKey,
			Country:          p.Country,
			Category:         p.Category,
			SearchTerms:      p.SearchTerms,
			MaxPages:         p.MaxPages,
			ResultsPerPage:   p.ResultsPerPage,
			ResolveApplyURLs: p.ResolveApplyURLs,
			Parallelism:      p.Parallelism,
		}, d.client, d.resolver, d.logger), nil
	case config.CollectorSkillCareerHub:
		return collector.NewSkillCareerHub(p.URL, p.APIKey, d.client), nil
	case config.CollectorGreenhouse:
		return collector.NewGreenhouse(p.BoardToken, p.Company, d.client), nil
	case config.CollectorLever:
		return collector.NewLever(p.BoardToken, p.Company, d.client), nil
	case config.CollectorAshby:
		return collector.NewAshby(p.BoardToken, p.Company, d.client), nil
	case config.CollectorWorkday:
		return collector.NewWorkday(p.URL, p.Company, p.SearchText, p.Parallelism, d.client), nil
	case config.CollectorHTML:
		return collector.NewHTMLCollector(htmlConfig(p), d.client), nil
	case config.CollectorBrowser:
		return collector.NewBrowserCollector(collector.BrowserConfig{
			HTMLConfig:   htmlConfig(p),
			WaitSelector: p.WaitSelector,
			Timeout:      p.RenderTimeout,
		}, d.logger), nil
	case config.CollectorJSONFile:
		return collector.NewJSONFile(p.Path), nil
	case config.CollectorGem:
		return collector.NewGem(p.BoardToken, p.Company, d.client), nil
	case config.CollectorMicrosoft:
		return collector.NewMicrosoft(collector.MicrosoftConfig{
			CompanyName: p.Company,
			Query:       p.SearchText,
			Location:    p.SearchLocation,
			MaxPages:    p.MaxPages,
			Parallelism: p.Parallelism,
		}, d.client), nil
	default:
		return nil, fmt.Errorf("pipeline %s: unsupported collector %q", p.Name, p.Collector)
	}
}

// newCollector builds p's collector with its keyword filter applied.
func (d *deps) newCollector(p config.PipelineConfig) (model.Collector, error) {
	c, err := d.newSource(p)
	if err != nil {
		return nil, err
	}
	if f := pipelineFilter(p); !f.Empty() {
		return filter.Wrap(c, f), nil
	}
	return c, nil
}

func pipelineFilter(p config.PipelineConfig) *filter.TitleAndLocationFilter {
	return filter.NewTitleAndLocationFilter(
		p.Filters.TitleKeywords,
		p.Filters.Locations,
		p.Filters.TitleExcludeKeywords,
	)
}

func htmlConfig(p config.PipelineConfig) collector.HTMLConfig {
	s := p.Selectors
	return collector.HTMLConfig{
		URLs:        p.URLs,
		CompanyName: p.Company,
		Source:      p.Source,
		Selectors: collector.Selectors{
			Item:        s.Item,
			ID:          s.ID,
			Title:       s.Title,
			Company:     s.Company,
			Location:    s.Location,
			Department:  s.Department,
			Description: s.Description,
			Link:        s.Link,
			Date:        s.Date,
			JobType:     s.JobType,
		},
	}
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *zap.Logger) (model.RunNotifier, error) {
	when, err := notifier.ParseWhen(cfg.Notification.On)
	if err != nil {
		return nil, err
	}
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier", zap.String("on", string(when)))
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, when, logger), nil
	default:
		return notifier.NewLogNotifier(logger, when), nil
	}
}

// setupPublisher connects to NATS when configured. The returned close
// function is never nil.
func setupPublisher(cfg *config.Config, logger *zap.Logger) (model.JobPublisher, func(), error) {
	if cfg.Publish.NATSURL == "" {
		return nil, func() {}, nil
	}
	p, err := events.NewNATSPublisher(cfg.Publish.NATSURL, cfg.Publish.Subject, cfg.HTTP.Timeout, logger)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info("publishing new jobs", zap.String("subject", cfg.Publish.Subject))
	return p, p.Close, nil
}

func newCanonicalizer(cfg *config.Config) *canonical.Canonicalizer {
	return canonical.New(skills.Default(cfg.Skills.Extra...))
}

// setupEngine wires the engine against st. publish and notify are skipped
// for dry runs.
func setupEngine(cfg *config.Config, st store.Store, withSideEffects bool, logger *zap.Logger) (*syncer.Engine, func(), error) {
	var opts []syncer.Option
	cleanup := func() {}

	if withSideEffects {
		n, err := setupNotifier(cfg, &http.Client{Timeout: cfg.HTTP.Timeout}, logger)
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, syncer.WithNotifier(n))

		pub, closePub, err := setupPublisher(cfg, logger)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = closePub
		if pub != nil {
			opts = append(opts, syncer.WithPublisher(pub))
		}
	}

	engine := syncer.NewEngine(
		syncer.Config{BatchSize: cfg.Sync.BatchSize},
		st, st,
		newCanonicalizer(cfg),
		logger,
		opts...,
	)
	return engine, cleanup, nil
}
