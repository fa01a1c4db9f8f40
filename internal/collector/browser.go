package collector

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/model"
)

// BrowserConfig configures a headless-browser collector.
type BrowserConfig struct {
	HTMLConfig
	// WaitSelector is awaited before the DOM is captured. Defaults to the
	// item selector.
	WaitSelector string
	Timeout      time.Duration
}

// BrowserCollector renders JavaScript-heavy listing pages in headless
// Chrome, then extracts postings with the same selectors as HTMLCollector.
type BrowserCollector struct {
	cfg    BrowserConfig
	render func(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error)
	logger *zap.Logger
}

func NewBrowserCollector(cfg BrowserConfig, logger *zap.Logger) *BrowserCollector {
	cfg.HTMLConfig = cfg.HTMLConfig.withDefaults()
	if cfg.Source == "company:html" {
		cfg.Source = "company:browser"
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = cfg.Selectors.Item
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &BrowserCollector{cfg: cfg, render: renderPage, logger: logger}
}

func (b *BrowserCollector) Name() string { return "browser" }

func (b *BrowserCollector) Collect(ctx context.Context, _ string) iter.Seq2[model.RawPosting, error] {
	return collectPages(b.Name(), b.cfg.HTMLConfig, func(pageURL string) (*goquery.Document, error) {
		b.logger.Debug("rendering page", zap.String("url", pageURL))
		html, err := b.render(ctx, pageURL, b.cfg.WaitSelector, b.cfg.Timeout)
		if err != nil {
			return nil, err
		}
		b.logger.Debug("rendered page", zap.String("url", pageURL), zap.Int("bytes", len(html)))
		return goquery.NewDocumentFromReader(strings.NewReader(html))
	})
}

// renderPage loads url in a fresh headless Chrome and returns the rendered
// HTML. Requires Chrome/Chromium on the host.
func renderPage(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	if waitSelector == "" {
		waitSelector = "body"
	}

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", url, err)
	}
	return html, nil
}
