package collector

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
	ApplyURL         string          `json:"applyUrl"`
}

// Lever reads a company's public Lever postings.
type Lever struct {
	companySlug string
	companyName string
	client      *Client
}

// NewLever creates a collector for a Lever board.
func NewLever(companySlug, companyName string, client *Client) *Lever {
	return &Lever{companySlug: companySlug, companyName: companyName, client: client}
}

func (l *Lever) Name() string { return "lever" }

func (l *Lever) Collect(ctx context.Context, _ string) iter.Seq2[model.RawPosting, error] {
	return single(func() ([]model.RawPosting, error) {
		url := fmt.Sprintf("%s/%s?mode=json", leverBaseURL, l.companySlug)

		var jobs []leverJob
		if err := l.client.GetJSON(ctx, url, nil, &jobs); err != nil {
			return nil, fmt.Errorf("lever fetch for %s: %w", l.companySlug, err)
		}

		postings := make([]model.RawPosting, 0, len(jobs))
		for _, lj := range jobs {
			// Prefer allLocations if available, fallback to location.
			location := lj.Categories.Location
			if len(lj.Categories.AllLocations) > 0 {
				location = strings.Join(lj.Categories.AllLocations, ", ")
			}
			if lj.WorkplaceType == "remote" && !strings.Contains(strings.ToLower(location), "remote") {
				location = strings.TrimPrefix(location+", Remote", ", ")
			}

			department := lj.Categories.Department
			if department == "" {
				department = lj.Categories.Team
			}

			applyURL := lj.ApplyURL
			if applyURL == "" {
				applyURL = lj.HostedURL
			}

			// createdAt is Unix milliseconds.
			var postedAt *time.Time
			if lj.CreatedAt > 0 {
				t := time.UnixMilli(lj.CreatedAt).UTC()
				postedAt = &t
			}

			postings = append(postings, model.RawPosting{
				SourceID:       lj.ID,
				Company:        l.companyName,
				Title:          lj.Text,
				Location:       location,
				Department:     department,
				Description:    lj.DescriptionPlain,
				EmploymentType: lj.Categories.Commitment,
				ApplyURL:       applyURL,
				PostedAt:       postedAt,
				Source:         "company:lever",
			})
		}
		return postings, nil
	})
}
