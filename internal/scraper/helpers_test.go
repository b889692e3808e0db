package scraper

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"comment-scout/internal/browser"
	"comment-scout/internal/browser/browsertest"
	"comment-scout/internal/config"
	"comment-scout/pkg/models"
)

const (
	baseURL        = "https://www.douyin.com"
	searchTemplate = "https://www.douyin.com/search/%s?type=video&publish_time=7"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// browsingContext launches the fake runtime and returns a context usable as a PageSource
func browsingContext(t *testing.T, rt *browsertest.Runtime) browser.Context {
	t.Helper()
	b, err := rt.Launch(context.Background(), browser.LaunchOptions{})
	require.NoError(t, err)
	c, err := b.NewContext(context.Background(), browser.ContextOptions{})
	require.NoError(t, err)
	return c
}

// instantPacer never sleeps and records requested pauses
type instantPacer struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *instantPacer) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *instantPacer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pauses)
}

func newInstantPacer() (*Pacer, *instantPacer) {
	rec := &instantPacer{}
	return NewPacer(0).WithSleeper(rec.sleep).WithSeed(1), rec
}

func discoveryOptions() DiscoveryOptions {
	return DiscoveryOptions{
		BaseURL:           baseURL,
		SearchURL:         searchTemplate,
		MaxScrollAttempts: 10,
		ScrollOffset:      1000,
		ScrollPause:       config.Range{Min: time.Second, Max: 2 * time.Second},
	}
}

func extractionOptions() ExtractionOptions {
	return ExtractionOptions{
		MaxCommentLength: 300,
		ScrollOffset:     2000,
		SettlePause:      config.Range{Min: 2 * time.Second, Max: 3 * time.Second},
		ScrollPause:      config.Range{Min: time.Second, Max: 2 * time.Second},
	}
}

var containsArgRe = regexp.MustCompile(`contains\(\., '([^']*)'\)`)

// keywordOf returns the text a TextContains/StringContains selector looks for
func keywordOf(sel browser.Selector) string {
	if m := containsArgRe.FindStringSubmatch(sel.Expr); m != nil {
		return m[1]
	}
	return ""
}

// Markers distinguishing the default comment patterns
const (
	markCommentItem = "comment-item"
	markCommentText = "contains(@class, 'comment')"
	markAnyText     = "//body//*"
)

// commentSite serves nodes under the pattern identified by marker, filtered
// by the queried keyword the way a browser would
func commentSite(byMarker map[string][]*browsertest.Node, controls map[string]*browsertest.Node) func(browser.Selector, int) []*browsertest.Node {
	return func(sel browser.Selector, _ int) []*browsertest.Node {
		kw := keywordOf(sel)
		if node, ok := controls[kw]; ok && strings.HasPrefix(sel.Expr, "//*[text()") {
			return []*browsertest.Node{node}
		}
		for marker, nodes := range byMarker {
			if !strings.Contains(sel.Expr, marker) {
				continue
			}
			var out []*browsertest.Node
			for _, n := range nodes {
				if kw != "" && strings.Contains(n.Text, kw) {
					out = append(out, n)
				}
			}
			return out
		}
		return nil
	}
}

// memoryStore collects flushed batches
type memoryStore struct {
	mu      sync.Mutex
	batches [][]models.CommentRecord
	failOn  map[int]bool
	calls   int
}

func (s *memoryStore) Flush(_ context.Context, records []models.CommentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.calls
	s.calls++
	if s.failOn[call] {
		return errors.New("disk full")
	}
	s.batches = append(s.batches, records)
	return nil
}

func (s *memoryStore) flushed() [][]models.CommentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]models.CommentRecord(nil), s.batches...)
}
