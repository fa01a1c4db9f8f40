// Package skills finds known skill tags in free-text job descriptions.
package skills

import (
	"regexp"
	"strings"
)

// Extractor matches a fixed, ordered vocabulary against text.
type Extractor struct {
	tags     []string
	patterns []*regexp.Regexp
}

// New compiles an extractor for vocab. Tags are matched case-insensitively;
// duplicates (ignoring case) and blank entries are dropped, first one wins.
func New(vocab []string) *Extractor {
	e := &Extractor{}
	seen := make(map[string]bool, len(vocab))
	for _, tag := range vocab {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		e.tags = append(e.tags, tag)
		// \W on both sides instead of \b so tags ending in symbols ("C++",
		// "C#") still match, while "C++11" does not yield "C++".
		e.patterns = append(e.patterns, regexp.MustCompile(`(?i)(?:^|\W)`+regexp.QuoteMeta(tag)+`(?:\W|$)`))
	}
	return e
}

// Default returns an extractor over DefaultVocabulary plus any extra tags.
func Default(extra ...string) *Extractor {
	vocab := make([]string, 0, len(DefaultVocabulary)+len(extra))
	vocab = append(vocab, DefaultVocabulary...)
	vocab = append(vocab, extra...)
	return New(vocab)
}

// Extract returns the vocabulary tags present in text, in vocabulary order.
// Empty text yields nil.
func (e *Extractor) Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var found []string
	for i, re := range e.patterns {
		if re.MatchString(text) {
			found = append(found, e.tags[i])
		}
	}
	return found
}

// Vocabulary returns the tags this extractor recognizes.
func (e *Extractor) Vocabulary() []string {
	out := make([]string, len(e.tags))
	copy(out, e.tags)
	return out
}
