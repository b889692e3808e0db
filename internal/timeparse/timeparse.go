// Package timeparse turns the relative and absolute timestamps shown next to
// short-video comments ("刚刚", "5分钟前", "2 hours ago", "03-14",
// "2023-01-01") into absolute instants.
//
// Text that cannot be parsed is never an error: Parse degrades to the current
// time and reports the input, so an unknown timestamp counts as maximally
// recent instead of being dropped.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"comment-scout/internal/logging"
)

var (
	digitsRe    = regexp.MustCompile(`\d+`)
	fullDateRe  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)
	shortDateRe = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})`)

	// tokenRe matches text that is wholly one timestamp
	tokenRe = regexp.MustCompile(`(?i)^(?:刚刚|just now|昨天|yesterday|` +
		`\d+\s*(?:分钟前|小时前|天前|mins? ago|minutes? ago|hours? ago|days? ago)|` +
		`\d{4}-\d{1,2}-\d{1,2}|\d{1,2}-\d{1,2})$`)
)

// maxAge bounds relative counts; larger values are not timestamps
const maxAge = 100 * 365 * 24 * time.Hour

// relativeForm is checked by substring, most specific first
type relativeForm struct {
	markers []string
	unit    time.Duration
	counted bool
}

var relativeForms = []relativeForm{
	{markers: []string{"刚刚", "just now"}},
	{markers: []string{"分钟前", "minute ago", "minutes ago", "min ago", "mins ago"}, unit: time.Minute, counted: true},
	{markers: []string{"小时前", "hour ago", "hours ago"}, unit: time.Hour, counted: true},
	{markers: []string{"昨天", "yesterday"}, unit: 24 * time.Hour},
	{markers: []string{"天前", "day ago", "days ago"}, unit: 24 * time.Hour, counted: true},
}

// Parser converts timestamp text relative to a clock
type Parser struct {
	// Now returns the reference instant; defaults to time.Now
	Now func() time.Time
	// Report receives text that could not be parsed; defaults to a warning log
	Report func(text string)
}

// New creates a parser that reports unparseable input to logger
func New(logger logging.Logger) *Parser {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Parser{
		Now: time.Now,
		Report: func(text string) {
			logger.Warn("Could not parse time text, defaulting to now", map[string]interface{}{
				"component": "timeparse",
				"text":      text,
			})
		},
	}
}

// Parse returns the instant described by text. Unrecognized text yields the
// current time and is passed to Report.
func (p *Parser) Parse(text string) time.Time {
	t, ok := p.TryParse(text)
	if !ok && p.Report != nil {
		p.Report(text)
	}
	return t
}

// TryParse is Parse without reporting. ok is false when text was not
// recognized, in which case the returned time is the current time.
func (p *Parser) TryParse(text string) (time.Time, bool) {
	now := p.now()
	text = strings.TrimSpace(text)
	if text == "" {
		return now, false
	}
	lower := strings.ToLower(text)

	for _, form := range relativeForms {
		if !containsAny(lower, form.markers) {
			continue
		}
		if !form.counted {
			return now.Add(-form.unit), true
		}
		n, ok := firstNumber(text)
		if !ok || n > int(maxAge/form.unit) {
			return now, false
		}
		return now.Add(-time.Duration(n) * form.unit), true
	}

	if m := fullDateRe.FindStringSubmatch(text); m != nil {
		if t, ok := date(atoi(m[1]), atoi(m[2]), atoi(m[3]), now.Location()); ok {
			return t, true
		}
		return now, false
	}

	if m := shortDateRe.FindStringSubmatch(text); m != nil {
		if t, ok := date(now.Year(), atoi(m[1]), atoi(m[2]), now.Location()); ok {
			return t, true
		}
		return now, false
	}

	return now, false
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Recognize reports whether text, trimmed, is exactly one timestamp token
// such as "3天前" or "03-14". It checks shape only: "02-30" is recognized
// even though Parse degrades it.
func Recognize(text string) bool {
	return tokenRe.MatchString(strings.TrimSpace(text))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// firstNumber extracts the first run of digits in s
func firstNumber(s string) (int, bool) {
	m := digitsRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// date builds midnight of the given calendar day, rejecting dates that
// time.Date would silently normalize (e.g. 02-30).
func date(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
