package collector

import (
	"context"
	"fmt"
	"iter"
	"math"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsync/internal/model"
)

const adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"

// AdzunaConfig controls the Adzuna search collector.
type AdzunaConfig struct {
	AppID            string
	AppKey           string
	Country          string
	Category         string
	SearchTerms      []string
	MaxPages         int
	ResultsPerPage   int
	ResolveApplyURLs bool
	Parallelism      int
}

type adzunaResponse struct {
	Count   int            `json:"count"`
	Results []adzunaResult `json:"results"`
}

type adzunaResult struct {
	ID           flexID   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Created      string   `json:"created"`
	ContractType string   `json:"contract_type"`
	ContractTime string   `json:"contract_time"`
	SalaryMin    *float64 `json:"salary_min"`
	SalaryMax    *float64 `json:"salary_max"`
	RedirectURL  string   `json:"redirect_url"`
	Company      struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	Category struct {
		Label string `json:"label"`
	} `json:"category"`
}

// Adzuna pages through the Adzuna search API once per search term, newest
// first.
type Adzuna struct {
	cfg      AdzunaConfig
	client   *Client
	resolver *ApplyURLResolver
	baseURL  string
	now      func() time.Time
	logger   *zap.Logger
}

// NewAdzuna creates an Adzuna collector. resolver may be nil, in which case
// postings keep Adzuna's redirect URL.
func NewAdzuna(cfg AdzunaConfig, client *Client, resolver *ApplyURLResolver, logger *zap.Logger) *Adzuna {
	if cfg.Country == "" {
		cfg.Country = "in"
	}
	if cfg.Category == "" {
		cfg.Category = "it-jobs"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = 50
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	return &Adzuna{
		cfg:      cfg,
		client:   client,
		resolver: resolver,
		baseURL:  adzunaBaseURL,
		now:      time.Now,
		logger:   logger,
	}
}

func (a *Adzuna) Name() string { return "adzuna" }

// Collect searches every term. With a cursor it asks Adzuna only for recent
// postings and stops paging a term once a page reaches the cursor.
func (a *Adzuna) Collect(ctx context.Context, cursor string) iter.Seq2[model.RawPosting, error] {
	since := parseCursor(cursor)

	return func(yield func(model.RawPosting, error) bool) {
		first := true
		for _, term := range a.cfg.SearchTerms {
			for page := 1; page <= a.cfg.MaxPages; page++ {
				var resp adzunaResponse
				err := a.client.GetJSON(ctx, a.pageURL(term, page, since), nil, &resp)
				wasFirst := first
				first = false
				if err != nil {
					label := fmt.Sprintf("%q/%d", term, page)
					err = pageFailure(a.Name(), label, wasFirst, fmt.Errorf("adzuna search %q page %d: %w", term, page, err))
					if !yield(model.RawPosting{}, err) {
						return
					}
					if !skippable(err) {
						return
					}
					continue
				}
				if len(resp.Results) == 0 {
					break
				}

				postings := a.toPostings(ctx, resp.Results)
				for _, p := range postings {
					if !yield(p, nil) {
						return
					}
				}

				if reachedCursor(postings, since) {
					a.logger.Debug("reached cursor, next term",
						zap.String("term", term), zap.Int("page", page), zap.Time("cursor", since))
					break
				}
			}
		}
	}
}

func (a *Adzuna) pageURL(term string, page int, since time.Time) string {
	q := url.Values{}
	q.Set("app_id", a.cfg.AppID)
	q.Set("app_key", a.cfg.AppKey)
	q.Set("what", term)
	q.Set("category", a.cfg.Category)
	q.Set("sort_by", "date")
	q.Set("results_per_page", strconv.Itoa(a.cfg.ResultsPerPage))
	q.Set("content-type", "application/json")
	if !since.IsZero() {
		days := int(math.Ceil(a.now().Sub(since).Hours() / 24))
		if days < 1 {
			days = 1
		}
		q.Set("max_days_old", strconv.Itoa(days))
	}
	return fmt.Sprintf("%s/%s/search/%d?%s", a.baseURL, a.cfg.Country, page, q.Encode())
}

// toPostings maps one page of results. Apply URLs are resolved concurrently;
// results are written by index so emission order matches the API order.
func (a *Adzuna) toPostings(ctx context.Context, results []adzunaResult) []model.RawPosting {
	postings := make([]model.RawPosting, len(results))
	for i, r := range results {
		employment := r.ContractType
		if employment == "" {
			employment = r.ContractTime
		}
		postings[i] = model.RawPosting{
			SourceID:       string(r.ID),
			Title:          r.Title,
			Company:        r.Company.DisplayName,
			Location:       r.Location.DisplayName,
			Department:     r.Category.Label,
			Description:    r.Description,
			EmploymentType: employment,
			Source:         "Adzuna",
			ApplyURL:       r.RedirectURL,
			SalaryMin:      r.SalaryMin,
			SalaryMax:      r.SalaryMax,
			PostedAt:       parseDate(r.Created),
		}
	}

	if !a.cfg.ResolveApplyURLs || a.resolver == nil {
		return postings
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Parallelism)
	for i := range postings {
		g.Go(func() error {
			postings[i].ApplyURL = a.resolver.Resolve(gctx, postings[i].ApplyURL)
			return nil
		})
	}
	_ = g.Wait()
	return postings
}

// reachedCursor reports whether the page holds a posting at or before since.
// Pages are sorted newest first, so later pages only get older.
func reachedCursor(postings []model.RawPosting, since time.Time) bool {
	if since.IsZero() {
		return false
	}
	for _, p := range postings {
		if p.PostedAt != nil && !p.PostedAt.After(since) {
			return true
		}
	}
	return false
}
