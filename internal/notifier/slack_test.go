package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/model"
)

func sampleRun(status model.RunStatus) model.SyncRun {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	run := model.SyncRun{
		ID:            7,
		PipelineName:  "adzuna",
		Mode:          model.ModeIncremental,
		StartTime:     start,
		EndTime:       &end,
		Status:        status,
		JobsProcessed: 120,
		JobsInserted:  17,
		JobsUpdated:   100,
		JobsFailed:    3,
		PagesFailed:   1,
	}
	if status == model.RunFailed {
		run.ErrorMessage = "adzuna page 1: HTTP 401"
	} else {
		run.CursorValue = "2026-01-15T09:58:00Z"
	}
	return run
}

func TestSlackNotifier_SkipsSuccessOnFailurePolicy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), OnFailure, zap.NewNop())
	if err := n.NotifyRun(context.Background(), sampleRun(model.RunSuccess)); err != nil {
		t.Errorf("NotifyRun() = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_FailedRunPayload(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), OnFailure, zap.NewNop())
	if err := n.NotifyRun(context.Background(), sampleRun(model.RunFailed)); err != nil {
		t.Fatalf("NotifyRun() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[0].Text.Text; got != "❌ adzuna sync failed" {
		t.Errorf("header text = %q", got)
	}
	if got := payload.Blocks[1].Fields[1].Text; got != "*Duration:*\n1m30s" {
		t.Errorf("duration field = %q", got)
	}
	if got := payload.Blocks[2].Fields[3].Text; got != "*Failed:*\n3 records, 1 pages" {
		t.Errorf("failed field = %q", got)
	}
	if got := payload.Blocks[3].Text.Text; !strings.Contains(got, "HTTP 401") {
		t.Errorf("error section = %q", got)
	}
	if payload.Blocks[4].Type != "context" || payload.Blocks[5].Type != "divider" {
		t.Errorf("unexpected trailing blocks %q, %q", payload.Blocks[4].Type, payload.Blocks[5].Type)
	}
}

func TestSlackNotifier_SuccessPayloadHasCursor(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), OnAlways, zap.NewNop())
	if err := n.NotifyRun(context.Background(), sampleRun(model.RunSuccess)); err != nil {
		t.Fatalf("NotifyRun() = %v", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(payload.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[0].Text.Text; got != "✅ adzuna sync succeeded" {
		t.Errorf("header text = %q", got)
	}
	if got := payload.Blocks[3].Elements[0].Text; !strings.Contains(got, "cursor 2026-01-15T09:58:00Z") {
		t.Errorf("context = %q", got)
	}
}

func TestSlackNotifier_SlackReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), OnAlways, zap.NewNop())
	if err := n.NotifyRun(context.Background(), sampleRun(model.RunFailed)); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := calls.Add(1)
		if c == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), OnAlways, zap.NewNop())
	if err := n.NotifyRun(context.Background(), sampleRun(model.RunFailed)); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSendTestMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// The sample run is a failure, so it goes out under the default policy.
	n := NewSlackNotifier(srv.URL, srv.Client(), OnFailure, zap.NewNop())
	if err := SendTestMessage(context.Background(), n); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 HTTP call, got %d", calls.Load())
	}
}
