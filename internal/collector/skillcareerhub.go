package collector

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

type skillCareerHubJob struct {
	ID              flexID   `json:"id"`
	Title           string   `json:"title"`
	CompanyName     string   `json:"company_name"`
	CompanyLocation string   `json:"company_location"`
	Location        string   `json:"location"`
	Category        string   `json:"category"`
	Type            string   `json:"type"`
	Description     string   `json:"description"`
	Requirements    []string `json:"requirements"`
	Benefits        []string `json:"benefits"`
	ApplyURL        string   `json:"apply_url"`
	CreatedAt       string   `json:"created_at"`
}

// SkillCareerHub reads the SkillCareerHub listing endpoint, which returns
// every open job in one response.
type SkillCareerHub struct {
	url    string
	apiKey string
	client *Client
}

func NewSkillCareerHub(url, apiKey string, client *Client) *SkillCareerHub {
	return &SkillCareerHub{url: url, apiKey: apiKey, client: client}
}

func (s *SkillCareerHub) Name() string { return "skillcareerhub" }

// Collect ignores the cursor; the endpoint has no date filter and the
// upsert makes re-reading harmless.
func (s *SkillCareerHub) Collect(ctx context.Context, _ string) iter.Seq2[model.RawPosting, error] {
	return single(func() ([]model.RawPosting, error) {
		headers := map[string]string{
			"apikey":         s.apiKey,
			"Authorization":  "Bearer " + s.apiKey,
			"Accept":         "*/*",
			"Accept-Profile": "public",
		}
		var jobs []skillCareerHubJob
		if err := s.client.GetJSON(ctx, s.url, headers, &jobs); err != nil {
			return nil, fmt.Errorf("skillcareerhub fetch: %w", err)
		}

		postings := make([]model.RawPosting, 0, len(jobs))
		for _, j := range jobs {
			location := j.Location
			if location == "" {
				location = j.CompanyLocation
			}
			postings = append(postings, model.RawPosting{
				SourceID:       string(j.ID),
				Title:          j.Title,
				Company:        j.CompanyName,
				Location:       location,
				Department:     j.Category,
				Description:    buildDescription(j.Description, j.Requirements, j.Benefits),
				EmploymentType: j.Type,
				Source:         "SkillCareerHub",
				ApplyURL:       j.ApplyURL,
				PostedAt:       parseDate(j.CreatedAt),
			})
		}
		return postings, nil
	})
}

// buildDescription folds requirement and benefit bullets into the body.
func buildDescription(body string, requirements, benefits []string) string {
	var b strings.Builder
	b.WriteString(body)
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n\n=== " + title + " ===\n")
		for i, item := range items {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("• " + item)
		}
	}
	section("Requirements", requirements)
	section("Benefits", benefits)
	return b.String()
}
