package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/cache"
)

const listingPage = `<html><body>
<ul class="jobs">
  <li class="job" data-id="101">
    <a class="title" href="/careers/101">Senior  Go Engineer</a>
    <span class="loc">Pune, India</span>
    <span class="dept">Platform</span>
    <time datetime="2026-03-02">2 Mar</time>
    <p class="summary">Build the <b>ingest</b> pipeline.</p>
  </li>
  <li class="job" data-id="102">
    <a class="title" href="https://other.example/jobs/102">Data Analyst</a>
    <span class="loc">Remote</span>
  </li>
  <li class="job"><span class="loc">No title here</span></li>
</ul>
</body></html>`

var listingSelectors = Selectors{
	Item:        "li.job",
	ID:          "@data-id",
	Title:       "a.title",
	Location:    ".loc",
	Department:  ".dept",
	Description: ".summary",
	Link:        "a.title@href",
	Date:        "time@datetime",
}

func TestHTMLCollector_ExtractsWithSelectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	h := NewHTMLCollector(HTMLConfig{
		URLs:        []string{srv.URL + "/careers"},
		CompanyName: "Acme",
		Selectors:   listingSelectors,
	}, NewClient(srv.Client(), nil, nil, nil))

	postings, errs := drain(t, h.Collect(context.Background(), ""))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings (untitled item skipped), got %d", len(postings))
	}

	p := postings[0]
	if p.SourceID != "101" || p.Title != "Senior Go Engineer" {
		t.Errorf("unexpected id/title %q/%q", p.SourceID, p.Title)
	}
	if p.Company != "Acme" || p.Location != "Pune, India" || p.Department != "Platform" {
		t.Errorf("unexpected company/location/department %q/%q/%q", p.Company, p.Location, p.Department)
	}
	if p.Description != "Build the ingest pipeline." {
		t.Errorf("unexpected description %q", p.Description)
	}
	if p.ApplyURL != srv.URL+"/careers/101" {
		t.Errorf("expected resolved relative link, got %q", p.ApplyURL)
	}
	if p.PostedAt == nil || p.PostedAt.Day() != 2 {
		t.Errorf("unexpected posted at %v", p.PostedAt)
	}
	if p.Source != "company:html" {
		t.Errorf("unexpected source %q", p.Source)
	}
	if postings[1].ApplyURL != "https://other.example/jobs/102" {
		t.Errorf("absolute link changed: %q", postings[1].ApplyURL)
	}
}

func TestHTMLCollector_LaterPageFailureIsSkippable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page2" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	h := NewHTMLCollector(HTMLConfig{
		URLs:      []string{srv.URL + "/page1", srv.URL + "/page2", srv.URL + "/page3"},
		Selectors: listingSelectors,
	}, NewClient(srv.Client(), nil, nil, nil))

	postings, errs := drain(t, h.Collect(context.Background(), ""))
	if len(postings) != 4 {
		t.Errorf("expected 4 postings from two good pages, got %d", len(postings))
	}
	if len(errs) != 1 || !skippable(errs[0]) {
		t.Errorf("expected one skippable error, got %v", errs)
	}
}

func TestBrowserCollector_UsesRenderedDOM(t *testing.T) {
	b := NewBrowserCollector(BrowserConfig{
		HTMLConfig: HTMLConfig{
			URLs:        []string{"https://careers.acme.com/jobs"},
			CompanyName: "Acme",
			Selectors:   listingSelectors,
		},
	}, zap.NewNop())

	var gotWait string
	b.render = func(_ context.Context, url, waitSelector string, _ time.Duration) (string, error) {
		gotWait = waitSelector
		return listingPage, nil
	}

	postings, errs := drain(t, b.Collect(context.Background(), ""))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if gotWait != "li.job" {
		t.Errorf("expected item selector as wait selector, got %q", gotWait)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}
	if postings[0].ApplyURL != "https://careers.acme.com/careers/101" {
		t.Errorf("unexpected apply url %q", postings[0].ApplyURL)
	}
	if postings[0].Source != "company:browser" {
		t.Errorf("unexpected source %q", postings[0].Source)
	}
}

func TestBrowserCollector_RenderFailureIsFatal(t *testing.T) {
	b := NewBrowserCollector(BrowserConfig{
		HTMLConfig: HTMLConfig{URLs: []string{"https://a.example", "https://b.example"}, Selectors: listingSelectors},
	}, zap.NewNop())
	b.render = func(context.Context, string, string, time.Duration) (string, error) {
		return "", errors.New("chrome not found")
	}

	_, errs := drain(t, b.Collect(context.Background(), ""))
	if len(errs) != 1 || skippable(errs[0]) {
		t.Fatalf("expected a single fatal error, got %v", errs)
	}
}

func TestApplyURLResolver(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/land/1":
			w.Write([]byte(`<a class="apply-button" href="/apply/1">Go</a>`))
		case "/land/2":
			w.Write([]byte(`<p>No link</p>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := NewApplyURLResolver(NewClient(srv.Client(), nil, nil, nil), cache.NewMemory(time.Hour), time.Hour, zap.NewNop())
	ctx := context.Background()

	if got := r.Resolve(ctx, srv.URL+"/land/1"); got != srv.URL+"/apply/1" {
		t.Errorf("expected relative apply link resolved, got %q", got)
	}
	if got := r.Resolve(ctx, srv.URL+"/land/1"); got != srv.URL+"/apply/1" {
		t.Errorf("cached lookup returned %q", got)
	}
	if hits.Load() != 1 {
		t.Errorf("expected second lookup served from cache, got %d requests", hits.Load())
	}
	if got := r.Resolve(ctx, srv.URL+"/land/2"); got != srv.URL+"/land/2" {
		t.Errorf("expected redirect url when no link, got %q", got)
	}
	if got := r.Resolve(ctx, srv.URL+"/gone"); got != srv.URL+"/gone" {
		t.Errorf("expected redirect url on failure, got %q", got)
	}
	if got := r.Resolve(ctx, ""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
