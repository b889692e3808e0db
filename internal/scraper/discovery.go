package scraper

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"comment-scout/internal/browser"
	"comment-scout/internal/config"
	"comment-scout/internal/logging"
	"comment-scout/pkg/utils"
)

// DiscoveryOptions tunes the search and scroll loop
type DiscoveryOptions struct {
	BaseURL string
	// SearchURL holds one %s for the path-escaped keyword
	SearchURL         string
	MaxScrollAttempts int
	ScrollOffset      int
	ScrollPause       config.Range
	// NavigationTimeout bounds the search page load; zero means unbounded
	NavigationTimeout time.Duration
}

// DiscoveryOptionsFromConfig derives options from application config
func DiscoveryOptionsFromConfig(cfg *config.Config) DiscoveryOptions {
	return DiscoveryOptions{
		BaseURL:           cfg.Scraper.BaseURL,
		SearchURL:         cfg.Scraper.SearchURL,
		MaxScrollAttempts: cfg.Discovery.MaxScrollAttempts,
		ScrollOffset:      cfg.Discovery.ScrollOffset,
		ScrollPause:       cfg.Discovery.ScrollPause,
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
	}
}

// Discoverer searches for a keyword and collects item links by scrolling
type Discoverer struct {
	pages    PageSource
	opts     DiscoveryOptions
	base     *url.URL
	patterns []LinkPattern
	pacer    *Pacer
	logger   logging.Logger
}

// NewDiscoverer validates the base URL and builds a Discoverer
func NewDiscoverer(pages PageSource, opts DiscoveryOptions, pacer *Pacer, logger logging.Logger) (*Discoverer, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if pacer == nil {
		pacer = NewPacer(0)
	}

	return &Discoverer{
		pages:    pages,
		opts:     opts,
		base:     base,
		patterns: DefaultLinkPatterns(),
		pacer:    pacer,
		logger:   logger.WithField("component", "discovery"),
	}, nil
}

// SearchURL builds the recency-filtered search address for keyword
func (d *Discoverer) SearchURL(keyword string) string {
	return fmt.Sprintf(d.opts.SearchURL, url.PathEscape(keyword))
}

// Discover returns at most limit unique item links for keyword. The scroll
// loop stops at limit or after MaxScrollAttempts scrolls, whichever is first.
func (d *Discoverer) Discover(ctx context.Context, keyword string, limit int) ([]string, error) {
	page, err := d.pages.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open search page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			d.logger.Warn("Failed to close search page", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	searchURL := d.SearchURL(keyword)
	d.logger.Info("Searching", map[string]interface{}{
		"keyword": keyword,
		"url":     searchURL,
	})

	if err := d.pacer.Navigate(ctx); err != nil {
		return nil, err
	}
	if err := navigate(ctx, page, searchURL, d.opts.NavigationTimeout); err != nil {
		return nil, err
	}
	if err := page.WaitForLoad(ctx, browser.LoadNetworkIdle); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.logger.Warn("Search page did not settle, continuing", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := d.pacer.Pause(ctx, d.opts.ScrollPause); err != nil {
		return nil, err
	}

	if err := d.applyRecencyFilter(ctx, page); err != nil {
		return nil, err
	}

	links := NewLinkSet()
	for scrolls := 0; ; scrolls++ {
		d.collect(ctx, page, links)
		d.logger.Debug("Collected links", map[string]interface{}{
			"links":  links.Len(),
			"scroll": scrolls,
		})

		if links.Len() >= limit || scrolls >= d.opts.MaxScrollAttempts {
			break
		}

		if err := page.ScrollBy(ctx, 0, d.opts.ScrollOffset); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.logger.Warn("Scroll failed, ending discovery early", map[string]interface{}{
				"error": err.Error(),
			})
			break
		}
		if err := d.pacer.Pause(ctx, d.opts.ScrollPause); err != nil {
			return nil, err
		}
	}

	result := links.Freeze(limit)
	d.logger.Info("Discovery finished", map[string]interface{}{
		"keyword": keyword,
		"links":   len(result),
		"found":   links.Len(),
	})
	return result, nil
}

// collect adds the links matched by the first pattern that matches anything
func (d *Discoverer) collect(ctx context.Context, page browser.Page, links *LinkSet) {
	for _, pattern := range d.patterns {
		elements, err := page.QueryAll(ctx, pattern.Selector)
		if err != nil {
			d.logger.Debug("Link query failed", map[string]interface{}{
				"pattern": pattern.Name,
				"error":   err.Error(),
			})
			continue
		}

		matched := 0
		for _, el := range elements {
			href, ok, err := el.Attribute(ctx, "href")
			if err != nil || !ok {
				continue
			}
			if link, ok := NormalizeLink(d.base, href); ok {
				matched++
				links.Add(link)
			}
		}
		if matched > 0 {
			return
		}
	}
}

// applyRecencyFilter opens the filter panel and picks the one-week option
// when both controls are present. Missing controls are not an error; only
// cancellation is returned.
func (d *Discoverer) applyRecencyFilter(ctx context.Context, page browser.Page) error {
	button := firstVisible(ctx, page, browser.TextContains("", FilterButtonLabel))
	if button == nil {
		d.logger.Info("Filter control not found, relying on search parameters", map[string]interface{}{})
		return ctx.Err()
	}
	if err := button.Click(ctx); err != nil {
		d.logger.Warn("Failed to open filter panel", map[string]interface{}{
			"error": err.Error(),
		})
		return ctx.Err()
	}
	if err := d.pacer.Pause(ctx, d.opts.ScrollPause); err != nil {
		return err
	}

	option := firstVisible(ctx, page, browser.TextContains("", FilterWeekLabel))
	if option == nil {
		d.logger.Info("Recency filter option not found", map[string]interface{}{})
		return ctx.Err()
	}
	if err := option.Click(ctx); err != nil {
		d.logger.Warn("Failed to apply recency filter", map[string]interface{}{
			"error": err.Error(),
		})
		return ctx.Err()
	}

	d.logger.Info("Applied recency filter", map[string]interface{}{
		"filter": FilterWeekLabel,
	})
	return d.pacer.Pause(ctx, d.opts.ScrollPause)
}

// firstVisible returns the first visible element matching sel, or nil
func firstVisible(ctx context.Context, page browser.Page, sel browser.Selector) browser.Element {
	elements, err := page.QueryAll(ctx, sel)
	if err != nil {
		return nil
	}
	for _, el := range elements {
		if visible, err := el.Visible(ctx); err == nil && visible {
			return el
		}
	}
	return nil
}

// navigate loads target, bounded by timeout when positive
func navigate(ctx context.Context, page browser.Page, target string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := page.Goto(ctx, target); err != nil {
		return utils.NewNavigationError(target, err)
	}
	return nil
}
