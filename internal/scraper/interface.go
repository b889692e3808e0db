package scraper

import (
	"context"

	"comment-scout/internal/browser"
	"comment-scout/pkg/models"
)

// PageSource opens isolated pages in the shared browsing context
type PageSource interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// Flusher persists the records of one item before the next is processed
type Flusher interface {
	Flush(ctx context.Context, records []models.CommentRecord) error
}
