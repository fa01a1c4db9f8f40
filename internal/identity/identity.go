// Package identity derives the stable key that identifies one logical job
// posting across re-ingestions.
package identity

import (
	"regexp"
	"strings"
)

// Placeholder stands in for a company or title that normalizes to nothing.
const Placeholder = "unknown"

var nonWord = regexp.MustCompile(`[^a-z0-9_]`)

// Normalize lower-cases s, turns each whitespace run into "_" and drops
// everything outside [a-z0-9_]. Whitespace is anything unicode.IsSpace
// accepts, so a non-breaking space separates words like a plain one.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), "_")
	s = nonWord.ReplaceAllString(s, "")
	if s == "" {
		return Placeholder
	}
	return s
}

// Resolve returns the identity key for a posting. It depends only on the
// three arguments.
func Resolve(company, title, sourceID string) string {
	return Normalize(company) + "_" + Normalize(title) + "_" + sourceID
}
