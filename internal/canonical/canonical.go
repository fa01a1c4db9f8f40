// Package canonical turns raw postings into storage-ready CanonicalJobs.
package canonical

import (
	"math"
	"net/url"
	"strings"

	"github.com/amishk599/jobsync/internal/identity"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/normalize"
	"github.com/amishk599/jobsync/internal/skills"
)

// UnknownCompany is stored when a posting has no company name.
const UnknownCompany = "Unknown"

// UnknownTitle is stored when a posting has no title.
const UnknownTitle = "Unknown"

// Canonicalizer composes skill extraction, field normalization and identity
// resolution. It is safe for concurrent use.
type Canonicalizer struct {
	skills *skills.Extractor
}

// New returns a Canonicalizer using the given skill extractor, or the
// default vocabulary when nil.
func New(extractor *skills.Extractor) *Canonicalizer {
	if extractor == nil {
		extractor = skills.Default()
	}
	return &Canonicalizer{skills: extractor}
}

// Canonicalize maps one raw posting to a CanonicalJob. It never fails:
// missing or malformed fields fall back to defaults.
func (c *Canonicalizer) Canonicalize(raw model.RawPosting) model.CanonicalJob {
	company := strings.TrimSpace(raw.Company)
	title := strings.TrimSpace(raw.Title)

	job := model.CanonicalJob{
		IdentityKey:    identity.Resolve(raw.Company, raw.Title, raw.SourceID),
		Company:        company,
		Title:          title,
		Location:       optional(raw.Location),
		Department:     optional(raw.Department),
		EmploymentType: normalize.EmploymentType(raw.EmploymentType),
		Description:    optional(raw.Description),
		ApplyURL:       applyURL(raw.ApplyURL),
		Source:         normalize.Source(raw.Source),
		IsRemote:       normalize.IsRemote(raw.Location, raw.Title),
		IsActive:       true,
		Skills:         c.skills.Extract(raw.Description),
		SalaryMin:      salary(raw.SalaryMin),
		SalaryMax:      salary(raw.SalaryMax),
	}
	if job.Company == "" {
		job.Company = UnknownCompany
	}
	if job.Title == "" {
		job.Title = UnknownTitle
	}
	if raw.PostedAt != nil && !raw.PostedAt.IsZero() {
		t := raw.PostedAt.UTC()
		job.PostedAt = &t
	}
	return job
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// applyURL returns raw as an absolute http(s) URL. A scheme-less link such
// as "careers.acme.com/jobs/1" gets https; anything unparseable becomes "".
func applyURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err == nil && u.Scheme == "" {
		s = "https://" + strings.TrimPrefix(s, "//")
		u, err = url.Parse(s)
	}
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return s
}

func salary(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0
	}
	return *v
}
