package scraper

import "comment-scout/internal/browser"

// LinkPattern is a named query for item links on the search surface
type LinkPattern struct {
	Name     string
	Selector browser.Selector
}

// DefaultLinkPatterns are tried in order; later patterns only run when the
// earlier ones match nothing.
func DefaultLinkPatterns() []LinkPattern {
	return []LinkPattern{
		{Name: "video-path", Selector: browser.AttrContains("a", "href", "/video/")},
		{Name: "modal-id", Selector: browser.AttrContains("a", "href", "modal_id=")},
	}
}

// CommentPattern is a named query for comment elements mentioning a keyword
type CommentPattern struct {
	Name     string
	Selector func(keyword string) browser.Selector
	// Structured patterns match whole comment cards whose text lines carry
	// author, content and time in that order
	Structured bool
}

// DefaultCommentPatterns are tried in order per keyword; the first one that
// returns any element wins.
func DefaultCommentPatterns() []CommentPattern {
	return []CommentPattern{
		{
			Name: "comment-item",
			Selector: func(keyword string) browser.Selector {
				return browser.StringContains("//*[@data-e2e='comment-item']", keyword)
			},
			Structured: true,
		},
		{
			Name: "comment-text",
			Selector: func(keyword string) browser.Selector {
				return browser.TextContains("//*[contains(@class, 'comment')]//*", keyword)
			},
		},
		{
			Name: "any-text",
			Selector: func(keyword string) browser.Selector {
				return browser.TextContains("//body//*[not(self::script or self::style)]", keyword)
			},
		},
	}
}

// Labels of optional controls on the search and item surfaces
const (
	FilterButtonLabel = "筛选"
	FilterWeekLabel   = "一周内"
)

// DefaultExpandLabels name the controls that reveal collapsed comments
func DefaultExpandLabels() []string {
	return []string{"展开更多评论", "查看更多评论", "展开评论"}
}
