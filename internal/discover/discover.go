// Package discover finds article URLs in a newsletter archive, either by
// driving a browser through the archive's "load more" pagination or by
// reading the archive's RSS feed.
package discover

import (
	"context"
	"time"
)

// Article is one discovered archive entry.
type Article struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Date      string `json:"date,omitempty"` // free-text, as shown in the archive
	ScrapedAt string `json:"scraped_at"`
}

// Source produces article references from an archive.
type Source interface {
	Discover(ctx context.Context, maxIterations int) ([]Article, error)
}

// URLList is the envelope persisted as urls/urls_latest.json.
type URLList struct {
	ScrapedAt string    `json:"scraped_at"`
	Total     int       `json:"total"`
	Articles  []Article `json:"articles"`
}

// NewURLList wraps articles for persistence.
func NewURLList(articles []Article) URLList {
	return URLList{
		ScrapedAt: time.Now().Format(time.RFC3339),
		Total:     len(articles),
		Articles:  articles,
	}
}
