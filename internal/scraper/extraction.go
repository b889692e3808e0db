package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"comment-scout/internal/browser"
	"comment-scout/internal/config"
	"comment-scout/internal/intent"
	"comment-scout/internal/logging"
	"comment-scout/internal/timeparse"
	"comment-scout/pkg/models"
	"comment-scout/pkg/utils"
)

// ExtractionOptions tunes per-item extraction
type ExtractionOptions struct {
	// MaxCommentLength is in runes; longer blocks are container text
	MaxCommentLength  int
	ScrollOffset      int
	SettlePause       config.Range
	ScrollPause       config.Range
	// NavigationTimeout bounds each item page load; zero means unbounded
	NavigationTimeout time.Duration
}

// ExtractionOptionsFromConfig derives options from application config
func ExtractionOptionsFromConfig(cfg *config.Config) ExtractionOptions {
	return ExtractionOptions{
		MaxCommentLength:  cfg.Extraction.MaxCommentLength,
		ScrollOffset:      cfg.Extraction.ScrollOffset,
		SettlePause:       cfg.Extraction.SettlePause,
		ScrollPause:       cfg.Extraction.ScrollPause,
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
	}
}

// Extractor opens items and pulls out comments that show purchase intent
type Extractor struct {
	pages        PageSource
	opts         ExtractionOptions
	patterns     []CommentPattern
	expandLabels []string
	pacer        *Pacer
	times        *timeparse.Parser
	now          func() time.Time
	logger       logging.Logger
}

// NewExtractor builds an Extractor with the default comment patterns
func NewExtractor(pages PageSource, opts ExtractionOptions, pacer *Pacer, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if pacer == nil {
		pacer = NewPacer(0)
	}
	if opts.MaxCommentLength <= 0 {
		opts.MaxCommentLength = 300
	}
	logger = logger.WithField("component", "extraction")

	return &Extractor{
		pages:        pages,
		opts:         opts,
		patterns:     DefaultCommentPatterns(),
		expandLabels: DefaultExpandLabels(),
		pacer:        pacer,
		times:        timeparse.New(logger),
		now:          time.Now,
		logger:       logger,
	}
}

// Extract returns the intent-matching comments of one item. The item page
// is closed on every path.
func (e *Extractor) Extract(ctx context.Context, itemURL string, keywords []string) ([]models.CommentRecord, error) {
	page, err := e.pages.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open item page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			e.logger.Warn("Failed to close item page", map[string]interface{}{
				"url":   itemURL,
				"error": err.Error(),
			})
		}
	}()

	if err := e.pacer.Navigate(ctx); err != nil {
		return nil, err
	}
	if err := navigate(ctx, page, itemURL, e.opts.NavigationTimeout); err != nil {
		return nil, err
	}
	if err := page.WaitForLoad(ctx, browser.LoadDOMContentLoaded); err != nil {
		return nil, utils.NewNavigationError(itemURL, err)
	}
	if err := e.pacer.Pause(ctx, e.opts.SettlePause); err != nil {
		return nil, err
	}

	// comments are lazy-loaded below the player
	if err := page.ScrollBy(ctx, 0, e.opts.ScrollOffset); err != nil {
		return nil, utils.NewNavigationError(itemURL, fmt.Errorf("scroll: %w", err))
	}
	if err := e.pacer.Pause(ctx, e.opts.ScrollPause); err != nil {
		return nil, err
	}

	if e.expandComments(ctx, page) {
		if err := e.pacer.Pause(ctx, e.opts.ScrollPause); err != nil {
			return nil, err
		}
	}

	title := e.itemTitle(ctx, page)
	observedAt := e.now()

	var records []models.CommentRecord
	seen := make(map[string]struct{})
	matcher := intent.NewMatcher(keywords)

	for _, keyword := range matcher.Keywords() {
		if keyword == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return records, err
		}

		for _, pattern := range e.patterns {
			elements, err := page.QueryAll(ctx, pattern.Selector(keyword))
			if err != nil {
				e.logger.Debug("Comment query failed", map[string]interface{}{
					"pattern": pattern.Name,
					"keyword": keyword,
					"error":   err.Error(),
				})
				continue
			}
			if len(elements) == 0 {
				continue
			}

			for _, el := range elements {
				card, ok := e.candidate(ctx, el, pattern)
				if !ok {
					continue
				}

				content := card.Content
				matched, ok := matcher.Match(content)
				if !ok && card.Body != "" && card.Body != content {
					// the keyword can sit on a line the card layout did not attribute to content
					content = card.Body
					matched, ok = matcher.Match(content)
					ok = ok && e.fits(content)
				}
				if !ok {
					continue
				}
				if _, dup := seen[content]; dup {
					continue
				}
				seen[content] = struct{}{}

				records = append(records, models.CommentRecord{
					SourceItemURL:  itemURL,
					ItemTitle:      title,
					Content:        content,
					MatchedKeyword: matched,
					Author:         utils.StringPtr(card.Author),
					PublishedAt:    card.PublishedAt,
					ObservedAt:     observedAt,
				})
			}
			break
		}
	}

	e.logger.Info("Extracted item", map[string]interface{}{
		"url":     itemURL,
		"title":   title,
		"matches": len(records),
	})
	return records, nil
}

// candidate reads a visible element into a comment within the length limit
func (e *Extractor) candidate(ctx context.Context, el browser.Element, pattern CommentPattern) (commentCard, bool) {
	visible, err := el.Visible(ctx)
	if err != nil || !visible {
		return commentCard{}, false
	}

	text, err := el.Text(ctx)
	if err != nil {
		return commentCard{}, false
	}

	var card commentCard
	if pattern.Structured {
		var ok bool
		if card, ok = parseCommentCard(text, e.times); !ok {
			return commentCard{}, false
		}
	} else {
		card.Content = strings.TrimSpace(text)
	}

	if !e.fits(card.Content) {
		return commentCard{}, false
	}
	return card, true
}

// fits reports whether content is non-empty and within the length limit
func (e *Extractor) fits(content string) bool {
	return content != "" && utf8.RuneCountInString(content) <= e.opts.MaxCommentLength
}

// expandComments clicks the first present and visible expand control
func (e *Extractor) expandComments(ctx context.Context, page browser.Page) bool {
	for _, label := range e.expandLabels {
		control := firstVisible(ctx, page, browser.TextContains("", label))
		if control == nil {
			continue
		}
		if err := control.Click(ctx); err != nil {
			e.logger.Warn("Failed to expand comments", map[string]interface{}{
				"label": label,
				"error": err.Error(),
			})
			return false
		}
		e.logger.Debug("Expanded comments", map[string]interface{}{
			"label": label,
		})
		return true
	}
	return false
}

func (e *Extractor) itemTitle(ctx context.Context, page browser.Page) string {
	if html, err := page.HTML(ctx); err == nil {
		if title := titleFromHTML(html); title != "" {
			return title
		}
	}
	title, err := page.Title(ctx)
	if err != nil {
		e.logger.Debug("Failed to read page title", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	return strings.TrimSpace(title)
}
