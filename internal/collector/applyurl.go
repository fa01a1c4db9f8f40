package collector

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/cache"
)

// applySelectors are tried in order on an aggregator's redirect page.
var applySelectors = []string{
	`a[data-qa="apply-button"]`,
	`a.apply-button`,
	`a:contains("Apply")`,
}

// ApplyURLResolver follows aggregator redirect pages to the employer's own
// apply link. Lookups are cached by redirect URL.
type ApplyURLResolver struct {
	client *Client
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewApplyURLResolver builds a resolver. c may be nil to disable caching.
func NewApplyURLResolver(client *Client, c cache.Cache, ttl time.Duration, logger *zap.Logger) *ApplyURLResolver {
	return &ApplyURLResolver{client: client, cache: c, ttl: ttl, logger: logger}
}

// Resolve returns the real apply URL behind redirectURL, or redirectURL
// itself when the page cannot be read or has no apply link.
func (r *ApplyURLResolver) Resolve(ctx context.Context, redirectURL string) string {
	if redirectURL == "" {
		return ""
	}
	key := "applyurl:" + redirectURL

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, key)
		if err == nil {
			return cached
		}
		if !errors.Is(err, cache.ErrNotFound) {
			r.logger.Debug("apply url cache read failed", zap.Error(err))
		}
	}

	doc, err := r.client.GetHTML(ctx, redirectURL)
	if err != nil {
		r.logger.Debug("failed to extract apply url", zap.String("url", redirect(redirectURL)), zap.Error(err))
		return redirectURL
	}

	resolved := findApplyLink(doc, redirectURL)
	if r.cache != nil {
		if err := r.cache.Set(ctx, key, resolved, r.ttl); err != nil {
			r.logger.Debug("apply url cache write failed", zap.Error(err))
		}
	}
	return resolved
}

func findApplyLink(doc *goquery.Document, pageURL string) string {
	var link string
	for _, sel := range applySelectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			link = strings.TrimSpace(href)
			break
		}
	}
	if link == "" {
		return pageURL
	}
	if strings.HasPrefix(link, "http") {
		return link
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	ref, err := url.Parse(link)
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}

// redirect trims the query so tracking parameters stay out of logs.
func redirect(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
