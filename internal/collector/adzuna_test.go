package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/cache"
)

var adzunaNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func adzunaPage(ids ...string) string {
	results := make([]string, len(ids))
	for i, id := range ids {
		results[i] = fmt.Sprintf(`{
			"id": %s,
			"title": "Engineer %s",
			"description": "desc",
			"created": "2026-03-0%dT10:00:00Z",
			"contract_time": "full_time",
			"salary_min": 1200000,
			"redirect_url": "https://www.adzuna.in/land/ad/%s?se=abc",
			"company": {"display_name": "Acme"},
			"location": {"display_name": "Bengaluru, Karnataka"},
			"category": {"label": "IT Jobs"}
		}`, id, id, 9-i, id)
	}
	return `{"count": 100, "results": [` + strings.Join(results, ",") + `]}`
}

func newAdzunaTest(srv *httptest.Server, cfg AdzunaConfig, resolver *ApplyURLResolver) *Adzuna {
	cfg.AppID, cfg.AppKey = "id", "key"
	a := NewAdzuna(cfg, NewClient(srv.Client(), nil, nil, nil), resolver, zap.NewNop())
	a.baseURL = srv.URL
	a.now = func() time.Time { return adzunaNow }
	return a
}

func TestAdzunaCollect_PagesAndSkipsFailedPage(t *testing.T) {
	var mu sync.Mutex
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.URL.Path+"?what="+r.URL.Query().Get("what"))
		mu.Unlock()

		if r.URL.Query().Get("app_key") != "key" || r.URL.Query().Get("sort_by") != "date" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		switch r.URL.Path {
		case "/in/search/1":
			w.Write([]byte(adzunaPage("1", "2")))
		case "/in/search/2":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/in/search/3":
			w.Write([]byte(adzunaPage("3")))
		default:
			w.Write([]byte(`{"count": 0, "results": []}`))
		}
	}))
	defer srv.Close()

	a := newAdzunaTest(srv, AdzunaConfig{SearchTerms: []string{"golang"}, MaxPages: 4}, nil)
	postings, errs := drain(t, a.Collect(context.Background(), ""))

	if len(postings) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(postings))
	}
	if len(errs) != 1 || !skippable(errs[0]) {
		t.Fatalf("expected one skippable page error, got %v", errs)
	}
	if strings.Contains(errs[0].Error(), "app_key=key") {
		t.Errorf("credentials leaked into error: %v", errs[0])
	}
	if len(requests) != 4 {
		t.Errorf("expected 4 requests (empty page ends paging), got %v", requests)
	}

	p := postings[0]
	if p.SourceID != "1" || p.Company != "Acme" || p.Source != "Adzuna" {
		t.Errorf("unexpected posting %+v", p)
	}
	if p.EmploymentType != "full_time" {
		t.Errorf("expected contract_time fallback, got %q", p.EmploymentType)
	}
	if p.SalaryMin == nil || *p.SalaryMin != 1200000 || p.SalaryMax != nil {
		t.Errorf("unexpected salary %v/%v", p.SalaryMin, p.SalaryMax)
	}
	if p.Department != "IT Jobs" {
		t.Errorf("unexpected department %q", p.Department)
	}
}

func TestAdzunaCollect_FirstRequestFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := newAdzunaTest(srv, AdzunaConfig{SearchTerms: []string{"golang", "python"}}, nil)
	_, errs := drain(t, a.Collect(context.Background(), ""))
	if len(errs) != 1 {
		t.Fatalf("expected collection to stop after 1 error, got %d", len(errs))
	}
	if skippable(errs[0]) {
		t.Error("first request failure must be fatal")
	}
}

func TestAdzunaCollect_CursorLimitsPaging(t *testing.T) {
	var mu sync.Mutex
	var maxDays []string
	pages := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		maxDays = append(maxDays, r.URL.Query().Get("max_days_old"))
		pages[r.URL.Query().Get("what")]++
		mu.Unlock()
		// Postings dated 9th and 8th March.
		w.Write([]byte(adzunaPage("1", "2")))
	}))
	defer srv.Close()

	a := newAdzunaTest(srv, AdzunaConfig{SearchTerms: []string{"go", "rust"}, MaxPages: 5}, nil)
	cursor := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC).Format(time.RFC3339)
	postings, errs := drain(t, a.Collect(context.Background(), cursor))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if pages["go"] != 1 || pages["rust"] != 1 {
		t.Errorf("expected one page per term, got %v", pages)
	}
	if len(postings) != 4 {
		t.Errorf("expected the whole reaching page to be emitted, got %d", len(postings))
	}
	for _, d := range maxDays {
		if d != "2" {
			t.Errorf("expected max_days_old=2, got %q", d)
		}
	}
}

func TestAdzunaCollect_ResolvesApplyURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/in/search/1"):
			w.Write([]byte(adzunaPage("1", "2", "3")))
		case strings.HasPrefix(r.URL.Path, "/in/search/"):
			w.Write([]byte(`{"results": []}`))
		default:
			fmt.Fprintf(w, `<html><body><a data-qa="apply-button" href="https://careers.acme.com%s">Apply</a></body></html>`, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newRewriteClient(srv)
	resolver := NewApplyURLResolver(client, cache.NewMemory(time.Hour), time.Hour, zap.NewNop())
	a := newAdzunaTest(srv, AdzunaConfig{SearchTerms: []string{"go"}, ResolveApplyURLs: true, Parallelism: 2}, resolver)
	a.client = client

	postings, errs := drain(t, a.Collect(context.Background(), ""))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(postings) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(postings))
	}
	for i, p := range postings {
		want := fmt.Sprintf("https://careers.acme.com/land/ad/%d", i+1)
		if p.ApplyURL != want {
			t.Errorf("posting %d: expected %s, got %s", i, want, p.ApplyURL)
		}
	}
}
