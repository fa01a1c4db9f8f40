package collector

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsync/internal/model"
)

// Selectors locate postings on a listing page. Item matches one element per
// posting; the other selectors are evaluated inside it. A selector of the
// form "css@attr" reads an attribute instead of text, and "@attr" reads an
// attribute of the item itself. Empty selectors are skipped.
type Selectors struct {
	Item        string
	ID          string
	Title       string
	Company     string
	Location    string
	Department  string
	Description string
	Link        string
	Date        string
	JobType     string
}

// HTMLConfig configures a selector-driven page collector.
type HTMLConfig struct {
	URLs        []string
	CompanyName string
	Source      string
	Selectors   Selectors
}

func (c HTMLConfig) withDefaults() HTMLConfig {
	if c.Source == "" {
		c.Source = "company:html"
	}
	if c.Selectors.Link == "" {
		c.Selectors.Link = "a@href"
	}
	return c
}

// HTMLCollector scrapes server-rendered listing pages with goquery.
type HTMLCollector struct {
	cfg    HTMLConfig
	client *Client
}

func NewHTMLCollector(cfg HTMLConfig, client *Client) *HTMLCollector {
	return &HTMLCollector{cfg: cfg.withDefaults(), client: client}
}

func (h *HTMLCollector) Name() string { return "html" }

// Collect reads every configured URL in order. Only the first URL is
// required to load.
func (h *HTMLCollector) Collect(ctx context.Context, _ string) iter.Seq2[model.RawPosting, error] {
	return collectPages(h.Name(), h.cfg, func(pageURL string) (*goquery.Document, error) {
		return h.client.GetHTML(ctx, pageURL)
	})
}

// collectPages is shared by the HTML and browser collectors; they differ
// only in how a page becomes a document.
func collectPages(name string, cfg HTMLConfig, load func(string) (*goquery.Document, error)) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		for i, pageURL := range cfg.URLs {
			doc, err := load(pageURL)
			if err != nil {
				err = pageFailure(name, pageURL, i == 0, fmt.Errorf("loading %s: %w", pageURL, err))
				if !yield(model.RawPosting{}, err) || !skippable(err) {
					return
				}
				continue
			}
			for _, p := range extractPostings(doc, pageURL, cfg) {
				if !yield(p, nil) {
					return
				}
			}
		}
	}
}

// extractPostings applies cfg's selectors to doc. Items without a title are
// skipped. Relative links resolve against pageURL.
func extractPostings(doc *goquery.Document, pageURL string, cfg HTMLConfig) []model.RawPosting {
	sel := cfg.Selectors
	if sel.Item == "" {
		return nil
	}
	base, _ := url.Parse(pageURL)

	var postings []model.RawPosting
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		title := pick(item, sel.Title)
		if title == "" {
			return
		}
		link := resolveLink(base, pick(item, sel.Link))

		id := pick(item, sel.ID)
		if id == "" {
			id = link
		}
		company := pick(item, sel.Company)
		if company == "" {
			company = cfg.CompanyName
		}

		postings = append(postings, model.RawPosting{
			SourceID:       id,
			Title:          title,
			Company:        company,
			Location:       pick(item, sel.Location),
			Department:     pick(item, sel.Department),
			Description:    pick(item, sel.Description),
			EmploymentType: pick(item, sel.JobType),
			ApplyURL:       link,
			PostedAt:       parseDate(pick(item, sel.Date)),
			Source:         cfg.Source,
		})
	})
	return postings
}

// pick evaluates one selector inside item and returns trimmed text or the
// requested attribute.
func pick(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	css, attr, hasAttr := strings.Cut(selector, "@")
	target := item
	if css != "" {
		target = item.Find(css).First()
	}
	if hasAttr {
		v, _ := target.Attr(attr)
		return strings.TrimSpace(v)
	}
	return strings.Join(strings.Fields(target.Text()), " ")
}

func resolveLink(base *url.URL, link string) string {
	if link == "" || base == nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}
