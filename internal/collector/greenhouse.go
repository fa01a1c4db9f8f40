package collector

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/amishk599/jobsync/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	UpdatedAt      string             `json:"updated_at"`
	FirstPublished string             `json:"first_published"`
	Content        string             `json:"content"`
	Departments    []struct {
		Name string `json:"name"`
	} `json:"departments"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Greenhouse reads a company's public Greenhouse board.
type Greenhouse struct {
	boardToken  string
	companyName string
	client      *Client
}

// NewGreenhouse creates a collector for a Greenhouse board.
func NewGreenhouse(boardToken, companyName string, client *Client) *Greenhouse {
	return &Greenhouse{boardToken: boardToken, companyName: companyName, client: client}
}

func (g *Greenhouse) Name() string { return "greenhouse" }

// Collect fetches the whole board in one request.
func (g *Greenhouse) Collect(ctx context.Context, _ string) iter.Seq2[model.RawPosting, error] {
	return single(func() ([]model.RawPosting, error) {
		url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, g.boardToken)

		var resp greenhouseResponse
		if err := g.client.GetJSON(ctx, url, nil, &resp); err != nil {
			return nil, fmt.Errorf("greenhouse fetch for %s: %w", g.boardToken, err)
		}

		postings := make([]model.RawPosting, 0, len(resp.Jobs))
		for _, gj := range resp.Jobs {
			p := model.RawPosting{
				SourceID:    strconv.FormatInt(gj.ID, 10),
				Company:     g.companyName,
				Title:       gj.Title,
				Location:    gj.Location.Name,
				Description: extractText(gj.Content),
				ApplyURL:    gj.AbsoluteURL,
				Source:      "company:greenhouse",
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
