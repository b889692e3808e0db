// Package intent decides whether a piece of comment text expresses purchase
// intent by checking it against an ordered keyword list.
package intent

import "strings"

// Match returns the first keyword, in list order, that occurs in text as a
// case-sensitive substring. Empty text never matches. No normalization is
// applied to either side.
func Match(text string, keywords []string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// Matcher binds a keyword list so callers can pass it around as a value
type Matcher struct {
	keywords []string
}

// NewMatcher creates a matcher over a copy of keywords
func NewMatcher(keywords []string) *Matcher {
	kws := make([]string, len(keywords))
	copy(kws, keywords)
	return &Matcher{keywords: kws}
}

// Match applies Match with the bound keywords
func (m *Matcher) Match(text string) (string, bool) {
	return Match(text, m.keywords)
}

// Keywords returns the bound keywords in order
func (m *Matcher) Keywords() []string {
	kws := make([]string, len(m.keywords))
	copy(kws, m.keywords)
	return kws
}
