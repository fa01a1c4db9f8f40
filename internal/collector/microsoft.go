package collector

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsync/internal/model"
)

const (
	microsoftBaseURL  = "https://apply.careers.microsoft.com"
	microsoftPageSize = 10
)

type microsoftPosition struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Locations   []string `json:"locations"`
	PostedTs    int64    `json:"postedTs"`
	PositionURL string   `json:"positionUrl"`
	Department  string   `json:"department"`
	WorkOption  string   `json:"workLocationOption"`
}

type microsoftSearchResponse struct {
	Data struct {
		Positions []microsoftPosition `json:"positions"`
		Count     int                 `json:"count"`
	} `json:"data"`
}

type microsoftDetailResponse struct {
	Data struct {
		JobDescription string `json:"jobDescription"`
		PublicURL      string `json:"publicUrl"`
		EmploymentType string `json:"employmentType"`
	} `json:"data"`
}

// MicrosoftConfig controls the Microsoft careers collector.
type MicrosoftConfig struct {
	CompanyName string
	Query       string
	Location    string
	MaxPages    int
	Parallelism int
}

// Microsoft pages through the Microsoft careers search API, newest first,
// and fetches each position's description.
type Microsoft struct {
	cfg     MicrosoftConfig
	client  *Client
	baseURL string
}

func NewMicrosoft(cfg MicrosoftConfig, client *Client) *Microsoft {
	if cfg.CompanyName == "" {
		cfg.CompanyName = "Microsoft"
	}
	if cfg.Query == "" {
		cfg.Query = "software engineer"
	}
	if cfg.Location == "" {
		cfg.Location = "United States"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	return &Microsoft{cfg: cfg, client: client, baseURL: microsoftBaseURL}
}

func (m *Microsoft) Name() string { return "microsoft" }

// Collect stops paging once a page holds a position at or before the
// cursor. A failed description fetch keeps the listing without one.
func (m *Microsoft) Collect(ctx context.Context, cursor string) iter.Seq2[model.RawPosting, error] {
	since := parseCursor(cursor)

	return func(yield func(model.RawPosting, error) bool) {
		for page := 0; page < m.cfg.MaxPages; page++ {
			start := page * microsoftPageSize
			var resp microsoftSearchResponse
			if err := m.client.GetJSON(ctx, m.searchURL(start), nil, &resp); err != nil {
				err = pageFailure(m.Name(), strconv.Itoa(start), page == 0, fmt.Errorf("microsoft search (start=%d): %w", start, err))
				if !yield(model.RawPosting{}, err) || !skippable(err) {
					return
				}
				continue
			}
			positions := resp.Data.Positions
			if len(positions) == 0 {
				return
			}

			postings := m.toPostings(ctx, positions)
			for _, p := range postings {
				if !yield(p, nil) {
					return
				}
			}

			if reachedCursor(postings, since) || start+microsoftPageSize >= resp.Data.Count {
				return
			}
		}
	}
}

func (m *Microsoft) searchURL(start int) string {
	q := url.Values{}
	q.Set("domain", "microsoft.com")
	q.Set("query", m.cfg.Query)
	q.Set("location", m.cfg.Location)
	q.Set("start", strconv.Itoa(start))
	q.Set("sort_by", "timestamp")
	q.Set("filter_include_remote", "1")
	return m.baseURL + "/api/pcsx/search?" + q.Encode()
}

func (m *Microsoft) detailURL(id string) string {
	q := url.Values{}
	q.Set("position_id", id)
	q.Set("domain", "microsoft.com")
	q.Set("hl", "en")
	q.Set("queried_location", m.cfg.Location)
	return m.baseURL + "/api/pcsx/position_details?" + q.Encode()
}

// toPostings maps one page and fills descriptions concurrently. Results are
// written by index so order follows the search results.
func (m *Microsoft) toPostings(ctx context.Context, positions []microsoftPosition) []model.RawPosting {
	postings := make([]model.RawPosting, len(positions))
	for i, p := range positions {
		location := strings.Join(p.Locations, "; ")
		if strings.EqualFold(p.WorkOption, "remote") || strings.Contains(strings.ToLower(p.WorkOption), "100%") {
			location += ", Remote"
		}
		postings[i] = model.RawPosting{
			SourceID:   strconv.FormatInt(p.ID, 10),
			Company:    m.cfg.CompanyName,
			Title:      p.Name,
			Location:   strings.TrimPrefix(location, ", "),
			Department: p.Department,
			ApplyURL:   m.baseURL + p.PositionURL,
			Source:     "company:microsoft",
		}
		if p.PostedTs > 0 {
			t := time.Unix(p.PostedTs, 0).UTC()
			postings[i].PostedAt = &t
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Parallelism)
	for i := range postings {
		g.Go(func() error {
			var detail microsoftDetailResponse
			if err := m.client.GetJSON(gctx, m.detailURL(postings[i].SourceID), nil, &detail); err != nil {
				return nil
			}
			postings[i].Description = extractText(detail.Data.JobDescription)
			postings[i].EmploymentType = detail.Data.EmploymentType
			if detail.Data.PublicURL != "" {
				postings[i].ApplyURL = detail.Data.PublicURL
			}
			return nil
		})
	}
	_ = g.Wait()
	return postings
}
