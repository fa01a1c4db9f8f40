package collector

import (
	"context"
	"fmt"
	"iter"

	"github.com/amishk599/jobsync/internal/model"
)

const gemBaseURL = "https://api.gem.com/job_board/v0"

type gemJob struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	AbsoluteURL    string `json:"absolute_url"`
	FirstPublished string `json:"first_published_at"`
	UpdatedAt      string `json:"updated_at"`
	Content        string `json:"content"`
	ContentPlain   string `json:"content_plain"`
	EmploymentType string `json:"employment_type"`
	Location       struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
}

// Gem reads a company's public Gem job board.
type Gem struct {
	boardToken  string
	companyName string
	client      *Client
}

// NewGem creates a collector for a Gem job board.
func NewGem(boardToken, companyName string, client *Client) *Gem {
	return &Gem{boardToken: boardToken, companyName: companyName, client: client}
}

func (g *Gem) Name() string { return "gem" }

// Collect fetches the whole board in one request.
func (g *Gem) Collect(ctx context.Context, _ string) iter.Seq2[model.RawPosting, error] {
	return single(func() ([]model.RawPosting, error) {
		url := fmt.Sprintf("%s/%s/job_posts/", gemBaseURL, g.boardToken)

		var jobs []gemJob
		if err := g.client.GetJSON(ctx, url, nil, &jobs); err != nil {
			return nil, fmt.Errorf("gem fetch for %s: %w", g.boardToken, err)
		}

		postings := make([]model.RawPosting, 0, len(jobs))
		for _, gj := range jobs {
			desc := gj.ContentPlain
			if desc == "" {
				desc = extractText(gj.Content)
			}
			p := model.RawPosting{
				SourceID:       gj.ID,
				Company:        g.companyName,
				Title:          gj.Title,
				Location:       gj.Location.Name,
				Description:    desc,
				EmploymentType: gj.EmploymentType,
				ApplyURL:       gj.AbsoluteURL,
				Source:         "company:gem",
			}
			if len(gj.Departments) > 0 {
				p.Department = gj.Departments[0].Name
			}
			p.PostedAt = parseDate(gj.FirstPublished)
			if p.PostedAt == nil {
				p.PostedAt = parseDate(gj.UpdatedAt)
			}
			postings = append(postings, p)
		}
		return postings, nil
	})
}
