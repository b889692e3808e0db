package scraper

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoPathRe = regexp.MustCompile(`/video/([0-9A-Za-z_-]+)`)
	itemIDRe    = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)
)

// NormalizeLink resolves href against base and rewrites any recognized item
// reference to the canonical <base>/video/<id> form. Links that do not
// reference an item report false.
func NormalizeLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	u, err := base.Parse(href)
	if err != nil {
		return "", false
	}

	var id string
	if m := videoPathRe.FindStringSubmatch(u.Path); m != nil {
		id = m[1]
	} else if modal := u.Query().Get("modal_id"); itemIDRe.MatchString(modal) {
		id = modal
	} else {
		return "", false
	}

	return base.Scheme + "://" + base.Host + "/video/" + id, true
}

// LinkSet accumulates unique item links in first-seen order
type LinkSet struct {
	order []string
	seen  map[string]struct{}
}

// NewLinkSet returns an empty set
func NewLinkSet() *LinkSet {
	return &LinkSet{seen: make(map[string]struct{})}
}

// Add inserts link and reports whether it was new
func (s *LinkSet) Add(link string) bool {
	if _, ok := s.seen[link]; ok {
		return false
	}
	s.seen[link] = struct{}{}
	s.order = append(s.order, link)
	return true
}

// Len returns the number of unique links
func (s *LinkSet) Len() int {
	return len(s.order)
}

// Freeze returns at most limit links in capture order
func (s *LinkSet) Freeze(limit int) []string {
	n := len(s.order)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	copy(out, s.order[:n])
	return out
}
