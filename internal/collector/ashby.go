package collector

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Department       string `json:"department"`
	Location         string `json:"location"`
	EmploymentType   string `json:"employmentType"`
	DescriptionPlain string `json:"descriptionPlain"`
	JobURL           string `json:"jobUrl"`
	ApplyURL         string `json:"applyUrl"`
	PublishedAt      string `json:"publishedAt"`
	IsListed         bool   `json:"isListed"`
	IsRemote         bool   `json:"isRemote"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// Ashby reads a company's public Ashby job board.
type Ashby struct {
	boardToken  string
	companyName string
	client      *Client
}

// NewAshby creates a collector for an Ashby job board.
func NewAshby(boardToken, companyName string, client *Client) *Ashby {
	return &Ashby{boardToken: boardToken, companyName: companyName, client: client}
}

func (a *Ashby) Name() string { return "ashby" }

// Collect returns listed jobs only.
func (a *Ashby) Collect(ctx context.Context, _ string) iter.Seq2[model.RawPosting, error] {
	return single(func() ([]model.RawPosting, error) {
		url := fmt.Sprintf("%s/%s", ashbyBaseURL, a.boardToken)

		var resp ashbyResponse
		if err := a.client.GetJSON(ctx, url, nil, &resp); err != nil {
			return nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
		}

		postings := make([]model.RawPosting, 0, len(resp.Jobs))
		for _, aj := range resp.Jobs {
			if !aj.IsListed {
				continue
			}

			id := aj.ID
			if id == "" {
				id = aj.JobURL
			}
			location := aj.Location
			if aj.IsRemote && !strings.Contains(strings.ToLower(location), "remote") {
				location = strings.TrimPrefix(location+", Remote", ", ")
			}
			applyURL := aj.ApplyURL
			if applyURL == "" {
				applyURL = aj.JobURL
			}

			postings = append(postings, model.RawPosting{
				SourceID:       id,
				Company:        a.companyName,
				Title:          aj.Title,
				Location:       location,
				Department:     aj.Department,
				Description:    aj.DescriptionPlain,
				EmploymentType: aj.EmploymentType,
				ApplyURL:       applyURL,
				PostedAt:       parseDate(aj.PublishedAt),
				Source:         "company:ashby",
			})
		}
		return postings, nil
	})
}
