package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amishk599/jobsync/internal/model"
)

func TestEmploymentType(t *testing.T) {
	tests := []struct {
		in   string
		want model.EmploymentType
	}{
		{"", model.FullTime},
		{"full_time", model.FullTime},
		{"Permanent", model.FullTime},
		{"Summer Internship", model.Internship},
		{"contract", model.Contract},
		{"Part-time", model.PartTime},
		{"PART TIME", model.PartTime},
		{"Temporary", model.Temporary},
		{"temp", model.FullTime},
		{"Template Engineer", model.FullTime},
		{"Contemporary Arts Curator", model.Temporary}, // "contemporary" contains "temporary"
		{"Freelance", model.Freelance},
		// priority: internship beats contract, contract beats part-time
		{"contract internship", model.Internship},
		{"part-time contract", model.Contract},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EmploymentType(tt.in))
		})
	}
}

func TestSource(t *testing.T) {
	tests := []struct {
		in   string
		want model.Source
	}{
		{"", model.SourceOther},
		{"Adzuna", model.SourceOther},
		{"SkillCareerHub", model.SourceOther},
		{"LinkedIn", model.SourceLinkedIn},
		{"indeed.com", model.SourceIndeed},
		{"Glassdoor", model.SourceGlassdoor},
		{"greenhouse company board", model.SourceCompanyWebsite},
		// priority: linkedin beats company
		{"company page on linkedin", model.SourceLinkedIn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Source(tt.in))
		})
	}
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		name            string
		location, title string
		want            bool
	}{
		{"both absent", "", "", false},
		{"remote location", "Remote, US", "Backend Engineer", true},
		{"remote in title", "Bangalore", "Backend Engineer (REMOTE)", true},
		{"work from home", "Work From Home", "Analyst", true},
		{"onsite", "Pune, India", "SDE II", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRemote(tt.location, tt.title))
		})
	}
}
