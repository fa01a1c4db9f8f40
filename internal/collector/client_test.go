package collector

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/retry"
)

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil, retry.NewPolicy(3, time.Millisecond, nil), nil)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK || calls.Load() != 3 {
		t.Errorf("expected success on third call, got ok=%v calls=%d", out.OK, calls.Load())
	}
}

func TestClient_PermanentStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil, retry.NewPolicy(3, time.Millisecond, nil), nil)
	err := c.GetJSON(context.Background(), srv.URL+"?app_key=secret", nil, &struct{}{})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected HTTP 403, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("credential leaked: %v", err)
	}
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected %s with content type %q", r.Method, r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"limit":20}` {
			t.Errorf("unexpected body %s", body)
		}
		w.Write([]byte(`{"total": 7}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil, nil, nil)
	var out struct {
		Total int `json:"total"`
	}
	if err := c.PostJSON(context.Background(), srv.URL, map[string]int{"limit": 20}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Total != 7 {
		t.Errorf("expected total 7, got %d", out.Total)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"120", 120 * time.Second},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRedact(t *testing.T) {
	got := redact("https://api.adzuna.com/v1/api/jobs/in/search/1?app_id=abc&app_key=def&what=go")
	if strings.Contains(got, "abc") || strings.Contains(got, "def") {
		t.Errorf("credentials not redacted: %s", got)
	}
	if !strings.Contains(got, "what=go") {
		t.Errorf("non-secret parameters dropped: %s", got)
	}
}
