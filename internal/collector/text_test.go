package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "just text", "just text"},
		{"tags", "<p>Hello <b>world</b></p>", "Hello world"},
		{"double encoded", "&lt;p&gt;Fish &amp;amp; chips&lt;/p&gt;", "Fish & chips"},
		{"whitespace", "<ul>\n  <li>a</li>\n  <li>b</li>\n</ul>", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.in); got != tt.want {
				t.Errorf("extractText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-03-01T10:00:00Z", "2026-03-01T10:00:00Z"},
		{"2026-03-01T10:00:00+05:30", "2026-03-01T04:30:00Z"},
		{"2026-03-01T10:00:00", "2026-03-01T10:00:00Z"},
		{"2026-03-01", "2026-03-01T00:00:00Z"},
		{"Mar 1, 2026", "2026-03-01T00:00:00Z"},
		{"1 Mar 2026", "2026-03-01T00:00:00Z"},
	}
	for _, tt := range tests {
		got := parseDate(tt.in)
		if got == nil || got.Format(time.RFC3339) != tt.want {
			t.Errorf("parseDate(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "  ", "yesterday"} {
		if got := parseDate(bad); got != nil {
			t.Errorf("parseDate(%q) = %v, want nil", bad, got)
		}
	}
}

func TestParseCursor(t *testing.T) {
	if !parseCursor("").IsZero() || !parseCursor("garbage").IsZero() {
		t.Error("expected zero time for empty or malformed cursor")
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := parseCursor("2026-03-01T00:00:00Z"); !got.Equal(want) {
		t.Errorf("parseCursor = %v, want %v", got, want)
	}
}

func TestPageFailure(t *testing.T) {
	base := errors.New("boom")

	if err := pageFailure("x", "2", true, base); skippable(err) {
		t.Error("first request must be fatal")
	}
	if err := pageFailure("x", "2", false, fmt.Errorf("wrapped: %w", context.Canceled)); skippable(err) {
		t.Error("cancellation must be fatal")
	}
	err := pageFailure("x", "2", false, base)
	var pe *model.PageError
	if !errors.As(err, &pe) || pe.Collector != "x" || pe.Page != "2" || !errors.Is(err, base) {
		t.Errorf("expected PageError wrapping base, got %v", err)
	}
}

func TestFlexID(t *testing.T) {
	var v struct {
		A flexID `json:"a"`
		B flexID `json:"b"`
		C flexID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": "x1", "b": 4523351234, "c": null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != "x1" || v.B != "4523351234" || v.C != "" {
		t.Errorf("unexpected ids %q %q %q", v.A, v.B, v.C)
	}
}
