package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimeLayout is the textual form used for timestamps in both output files.
const TimeLayout = time.RFC3339

// CommentRecord represents a single comment that matched a purchase-intent keyword
type CommentRecord struct {
	SourceItemURL  string     `json:"source_item_url"`
	ItemTitle      string     `json:"item_title"`
	Content        string     `json:"content"`
	MatchedKeyword string     `json:"matched_keyword"`
	Author         *string    `json:"author"`
	PublishedAt    *time.Time `json:"published_at"`
	ObservedAt     time.Time  `json:"observed_at"`
}

// recordFields is the column order shared by the CSV header and JSON keys.
var recordFields = []string{
	"source_item_url",
	"item_title",
	"content",
	"matched_keyword",
	"author",
	"published_at",
	"observed_at",
}

// Fields returns the record's field names in output order
func (r CommentRecord) Fields() []string {
	fields := make([]string, len(recordFields))
	copy(fields, recordFields)
	return fields
}

// Values returns the record rendered as strings, aligned with Fields.
// Unknown optional values render as empty strings.
func (r CommentRecord) Values() []string {
	author := ""
	if r.Author != nil {
		author = *r.Author
	}

	publishedAt := ""
	if r.PublishedAt != nil {
		publishedAt = r.PublishedAt.Format(TimeLayout)
	}

	return []string{
		r.SourceItemURL,
		r.ItemTitle,
		r.Content,
		r.MatchedKeyword,
		author,
		publishedAt,
		r.ObservedAt.Format(TimeLayout),
	}
}

// MarshalJSON renders timestamps with TimeLayout so JSON output carries the
// same values as the CSV row
func (r CommentRecord) MarshalJSON() ([]byte, error) {
	out := struct {
		SourceItemURL  string  `json:"source_item_url"`
		ItemTitle      string  `json:"item_title"`
		Content        string  `json:"content"`
		MatchedKeyword string  `json:"matched_keyword"`
		Author         *string `json:"author"`
		PublishedAt    *string `json:"published_at"`
		ObservedAt     string  `json:"observed_at"`
	}{
		SourceItemURL:  r.SourceItemURL,
		ItemTitle:      r.ItemTitle,
		Content:        r.Content,
		MatchedKeyword: r.MatchedKeyword,
		Author:         r.Author,
		ObservedAt:     r.ObservedAt.Format(TimeLayout),
	}
	if r.PublishedAt != nil {
		published := r.PublishedAt.Format(TimeLayout)
		out.PublishedAt = &published
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
