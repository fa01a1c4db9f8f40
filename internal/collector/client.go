// Package collector turns upstream job sources into lazy sequences of raw
// postings. Collectors know how to page and parse their source; they do not
// normalize.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/ratelimit"
	"github.com/amishk599/jobsync/internal/retry"
)

const userAgent = "jobsync/1.0 (+https://github.com/amishk599/jobsync)"

// Client is the HTTP plumbing shared by collectors: per-host rate limiting,
// retries on transient failures, and typed HTTP errors.
type Client struct {
	http    *http.Client
	limiter *ratelimit.Limiter
	retry   *retry.Policy
	logger  *zap.Logger
}

// NewClient wraps httpClient. limiter and policy may be nil.
func NewClient(httpClient *http.Client, limiter *ratelimit.Limiter, policy *retry.Policy, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if policy == nil {
		policy = retry.NewPolicy(0, 0, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, limiter: limiter, retry: policy, logger: logger}
}

type request struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
}

// do sends req with retries and hands a 200 response body to read.
func (c *Client) do(ctx context.Context, req request, read func(io.Reader) error) error {
	return c.retry.Do(ctx, redact(req.url), func(ctx context.Context) error {
		if c.limiter != nil {
			u, err := url.Parse(req.url)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", req.url, err)
			}
			if err := c.limiter.Wait(ctx, u.Host); err != nil {
				return err
			}
		}

		var body io.Reader
		if req.body != nil {
			body = bytes.NewReader(req.body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
		if err != nil {
			return err
		}
		httpReq.Header.Set("User-Agent", userAgent)
		if req.body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		for k, v := range req.headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			var ue *url.Error
			if errors.As(err, &ue) {
				err = ue.Err
			}
			return fmt.Errorf("%s %s: %w", req.method, redact(req.url), err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &model.HTTPError{
				StatusCode: resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Err:        fmt.Errorf("%s %s: unexpected status %d", req.method, redact(req.url), resp.StatusCode),
			}
		}
		return read(resp.Body)
	})
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, v any) error {
	return c.do(ctx, request{method: http.MethodGet, url: url, headers: headers}, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(v)
	})
}

// PostJSON sends body as JSON and decodes the JSON response into v.
func (c *Client) PostJSON(ctx context.Context, url string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request for %s: %w", url, err)
	}
	return c.do(ctx, request{method: http.MethodPost, url: url, body: payload}, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(v)
	})
}

// GetHTML fetches url and parses it as an HTML document.
func (c *Client) GetHTML(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := c.do(ctx, request{method: http.MethodGet, url: url}, func(r io.Reader) error {
		d, err := goquery.NewDocumentFromReader(r)
		doc = d
		return err
	})
	return doc, err
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// redact drops credentials from query strings before they reach logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, k := range []string{"app_key", "app_id", "apikey", "api_key"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
