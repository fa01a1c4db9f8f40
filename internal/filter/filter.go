package filter

import (
	"context"
	"iter"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

// TitleAndLocationFilter matches postings whose title contains any of the
// title keywords and whose location contains any of the location keywords,
// unless the title contains an excluded keyword.
// Matching is case-insensitive. Empty keyword lists are treated as "match all".
type TitleAndLocationFilter struct {
	titleKeywords []string
	locations     []string
	excludeTitles []string
}

// NewTitleAndLocationFilter returns a filter that requires both a title keyword
// match and a location keyword match (case-insensitive substring).
func NewTitleAndLocationFilter(titleKeywords, locations, excludeTitles []string) *TitleAndLocationFilter {
	return &TitleAndLocationFilter{
		titleKeywords: lower(titleKeywords),
		locations:     lower(locations),
		excludeTitles: lower(excludeTitles),
	}
}

// Match returns true if the posting passes every configured keyword list.
func (f *TitleAndLocationFilter) Match(p model.RawPosting) bool {
	title := strings.ToLower(p.Title)
	location := strings.ToLower(p.Location)

	if containsAny(title, f.excludeTitles) {
		return false
	}
	if len(f.titleKeywords) > 0 && !containsAny(title, f.titleKeywords) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(location, f.locations) {
		return false
	}
	return true
}

// Empty reports whether the filter lets everything through.
func (f *TitleAndLocationFilter) Empty() bool {
	return len(f.titleKeywords) == 0 && len(f.locations) == 0 && len(f.excludeTitles) == 0
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Collector drops postings that do not match before they reach the engine.
// Errors pass through untouched.
type Collector struct {
	inner  model.Collector
	filter model.JobFilter
}

// Wrap decorates c with f.
func Wrap(c model.Collector, f model.JobFilter) *Collector {
	return &Collector{inner: c, filter: f}
}

func (c *Collector) Name() string { return c.inner.Name() }

func (c *Collector) Collect(ctx context.Context, cursor string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		for p, err := range c.inner.Collect(ctx, cursor) {
			if err == nil && !c.filter.Match(p) {
				continue
			}
			if !yield(p, err) {
				return
			}
		}
	}
}
