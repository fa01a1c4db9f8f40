package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

// jsonRecord accepts both scraper output shapes: the Adzuna dump
// (job_type, date_posted) and the SkillCareerHub dump (employment_type,
// posted_at, category, company_name).
type jsonRecord struct {
	ID             flexID   `json:"id"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	CompanyName    string   `json:"company_name"`
	Location       string   `json:"location"`
	Department     string   `json:"department"`
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	JobType        string   `json:"job_type"`
	EmploymentType string   `json:"employment_type"`
	Source         string   `json:"source"`
	ApplyURL       string   `json:"apply_url"`
	SalaryMin      *float64 `json:"salary_min"`
	SalaryMax      *float64 `json:"salary_max"`
	DatePosted     string   `json:"date_posted"`
	PostedAt       string   `json:"posted_at"`
	CreatedAt      string   `json:"created_at"`
}

func (r jsonRecord) posting() model.RawPosting {
	return model.RawPosting{
		SourceID:       string(r.ID),
		Title:          r.Title,
		Company:        firstNonEmpty(r.Company, r.CompanyName),
		Location:       r.Location,
		Department:     firstNonEmpty(r.Department, r.Category),
		Description:    r.Description,
		EmploymentType: firstNonEmpty(r.JobType, r.EmploymentType),
		Source:         r.Source,
		ApplyURL:       r.ApplyURL,
		SalaryMin:      r.SalaryMin,
		SalaryMax:      r.SalaryMax,
		PostedAt:       parseDate(firstNonEmpty(r.DatePosted, r.PostedAt, r.CreatedAt)),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// JSONFile loads raw postings from a JSON array on disk, one element at a
// time. A record that does not decode is reported as a page error and
// skipped; a date it cannot read leaves PostedAt empty.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (j *JSONFile) Name() string { return "jsonfile" }

func (j *JSONFile) Collect(ctx context.Context, _ string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		f, err := os.Open(j.path)
		if err != nil {
			yield(model.RawPosting{}, fmt.Errorf("opening %s: %w", j.path, err))
			return
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		tok, err := dec.Token()
		if err != nil {
			yield(model.RawPosting{}, fmt.Errorf("reading %s: %w", j.path, err))
			return
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			yield(model.RawPosting{}, fmt.Errorf("reading %s: expected a JSON array", j.path))
			return
		}

		for i := 0; dec.More(); i++ {
			if err := ctx.Err(); err != nil {
				yield(model.RawPosting{}, err)
				return
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				// The stream is unusable past a syntax error.
				yield(model.RawPosting{}, fmt.Errorf("reading %s record %d: %w", j.path, i, err))
				return
			}
			var rec jsonRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				pe := &model.PageError{Collector: j.Name(), Page: fmt.Sprintf("record %d", i), Err: err}
				if !yield(model.RawPosting{}, pe) {
					return
				}
				continue
			}
			if !yield(rec.posting(), nil) {
				return
			}
		}
	}
}
