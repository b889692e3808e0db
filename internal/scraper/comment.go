package scraper

import (
	"strings"
	"time"

	"comment-scout/internal/timeparse"
)

// commentCard is the text of one comment card split into its parts
type commentCard struct {
	Author      string
	Content     string
	PublishedAt *time.Time
	// Body is every line after the author, used when Content misses the keyword
	Body string
}

// parseCommentCard splits card text laid out as author, content lines, then
// a "time·location" line followed by action labels. Only a line whose time
// field is wholly a timestamp ends the content. Without one, only the line
// after the author is taken as content.
func parseCommentCard(text string, times *timeparse.Parser) (commentCard, bool) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	switch len(lines) {
	case 0:
		return commentCard{}, false
	case 1:
		return commentCard{Content: lines[0]}, true
	}

	card := commentCard{
		Author:  lines[0],
		Content: lines[1],
		Body:    strings.Join(lines[1:], "\n"),
	}
	for i := 2; i < len(lines); i++ {
		field := timeField(lines[i])
		if !timeparse.Recognize(field) {
			continue
		}
		at := times.Parse(field)
		card.Content = strings.Join(lines[1:i], "\n")
		card.PublishedAt = &at
		break
	}
	return card, true
}

// timeField strips the location suffix from a "3天前·广东" line
func timeField(line string) string {
	if i := strings.Index(line, "·"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}
