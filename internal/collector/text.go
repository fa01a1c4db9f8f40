package collector

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"iter"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsync/internal/model"
)

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (handles Greenhouse's double-encoding;
// no-op on already-real HTML), strips all tags, then collapses whitespace.
func extractText(content string) string {
	if content == "" {
		return ""
	}
	unescaped := html.UnescapeString(content)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unescaped))
	if err != nil {
		return strings.Join(strings.Fields(unescaped), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// parseDate accepts the handful of date shapes job sources use. It returns
// nil for anything it does not recognize.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// parseCursor reads the RFC3339 cursor the engine hands to collectors. An
// empty or malformed cursor means "no lower bound".
func parseCursor(cursor string) time.Time {
	if cursor == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, cursor)
	if err != nil {
		return time.Time{}
	}
	return t
}

// pageFailure decides how a failed request surfaces. The first request of a
// collection and cancellations are fatal; later pages are skippable.
func pageFailure(name, page string, first bool, err error) error {
	if first || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &model.PageError{Collector: name, Page: page, Err: err}
}

// single wraps a one-shot fetch as a sequence.
func single(fetch func() ([]model.RawPosting, error)) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		postings, err := fetch()
		if err != nil {
			yield(model.RawPosting{}, err)
			return
		}
		for _, p := range postings {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func skippable(err error) bool {
	var pe *model.PageError
	return errors.As(err, &pe)
}

// flexID accepts identifiers that arrive as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexID(b)
	return nil
}
