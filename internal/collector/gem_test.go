package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGemCollect_Success(t *testing.T) {
	payload := `[
		{
			"id": "am9iX3Bvc3Q6MQ",
			"title": "Platform Engineer",
			"location": {"name": "Bengaluru"},
			"absolute_url": "https://jobs.gem.com/acme/am9iX3Bvc3Q6MQ",
			"first_published_at": "2026-02-10T09:00:00Z",
			"updated_at": "2026-02-12T09:00:00Z",
			"content": "<p>Ignored when plain text exists</p>",
			"content_plain": "Run Kubernetes and Terraform.",
			"employment_type": "full_time",
			"departments": [{"name": "Infrastructure"}]
		},
		{
			"id": "am9iX3Bvc3Q6Mg",
			"title": "Data Engineer",
			"location": {"name": "Remote"},
			"absolute_url": "https://jobs.gem.com/acme/am9iX3Bvc3Q6Mg",
			"updated_at": "2026-02-13T11:30:00Z",
			"content": "&lt;p&gt;Spark &amp;amp; Airflow&lt;/p&gt;"
		}
	]`
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	g := NewGem("acme", "Acme", newRewriteClient(srv))
	postings, errs := drain(t, g.Collect(context.Background(), ""))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if gotPath != "/job_board/v0/acme/job_posts/" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	p := postings[0]
	if p.SourceID != "am9iX3Bvc3Q6MQ" || p.Company != "Acme" || p.Department != "Infrastructure" {
		t.Errorf("unexpected posting %+v", p)
	}
	if p.Description != "Run Kubernetes and Terraform." {
		t.Errorf("expected plain content, got %q", p.Description)
	}
	if p.EmploymentType != "full_time" || p.Source != "company:gem" {
		t.Errorf("unexpected type/source %q/%q", p.EmploymentType, p.Source)
	}
	if p.PostedAt == nil || !p.PostedAt.Equal(time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected posted date %v", p.PostedAt)
	}

	if postings[1].Description != "Spark & Airflow" {
		t.Errorf("expected HTML fallback, got %q", postings[1].Description)
	}
	if postings[1].PostedAt == nil || postings[1].PostedAt.Hour() != 11 {
		t.Errorf("expected updated_at fallback, got %v", postings[1].PostedAt)
	}
}

func TestGemCollect_HTTPErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGem("missing", "Missing", newRewriteClient(srv))
	postings, errs := drain(t, g.Collect(context.Background(), ""))
	if len(postings) != 0 || len(errs) != 1 {
		t.Fatalf("expected one error and no postings, got %d/%d", len(postings), len(errs))
	}
	if skippable(errs[0]) {
		t.Error("single-request failure should be fatal")
	}
}
