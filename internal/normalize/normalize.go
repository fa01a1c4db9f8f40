// Package normalize maps free-text posting fields onto closed vocabularies.
//
// Matching is by substring with a fixed priority order. It is a heuristic
// for text that upstream sources never agreed on, not a classifier; keep the
// order stable so the same input keeps mapping to the same value.
package normalize

import (
	"strings"

	"github.com/amishk599/jobsync/internal/model"
)

type rule[T any] struct {
	needle string
	value  T
}

var employmentRules = []rule[model.EmploymentType]{
	{"intern", model.Internship},
	{"contract", model.Contract},
	{"part", model.PartTime},
	{"temporary", model.Temporary},
	{"freelance", model.Freelance},
}

var sourceRules = []rule[model.Source]{
	{"linkedin", model.SourceLinkedIn},
	{"indeed", model.SourceIndeed},
	{"glassdoor", model.SourceGlassdoor},
	{"company", model.SourceCompanyWebsite},
}

var remoteMarkers = []string{"remote", "work from home"}

func firstMatch[T any](raw string, rules []rule[T], fallback T) T {
	s := strings.ToLower(raw)
	for _, r := range rules {
		if strings.Contains(s, r.needle) {
			return r.value
		}
	}
	return fallback
}

// EmploymentType maps an employment-type hint such as "Part-time" or
// "contract" to the enum. Empty or unrecognized input is FULL_TIME.
func EmploymentType(raw string) model.EmploymentType {
	return firstMatch(raw, employmentRules, model.FullTime)
}

// Source maps a source name such as "LinkedIn Jobs" to the enum. Empty or
// unrecognized input is OTHER.
func Source(raw string) model.Source {
	return firstMatch(raw, sourceRules, model.SourceOther)
}

// IsRemote reports whether the location or title advertises remote work.
func IsRemote(location, title string) bool {
	text := strings.ToLower(location + " " + title)
	for _, m := range remoteMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
