package discover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedSource discovers articles from the archive's RSS feed. It needs no
// browser, so it is the source of choice when Chrome is unavailable or the
// archive publishes a feed.
type FeedSource struct {
	feedURL string
	parser  *gofeed.Parser
	logger  *slog.Logger
}

func NewFeedSource(feedURL string, logger *slog.Logger) *FeedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedSource{feedURL: feedURL, parser: gofeed.NewParser(), logger: logger}
}

// Discover reads the feed once; maxIterations is ignored because a feed
// has no pagination to click through.
func (f *FeedSource) Discover(ctx context.Context, _ int) ([]Article, error) {
	f.logger.Info("discover.feed.start", "feed_url", f.feedURL)
	feed, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	seen := map[string]bool{}
	var articles []Article
	for _, item := range feed.Items {
		if item.Link == "" || seen[item.Link] {
			continue
		}
		seen[item.Link] = true

		date := ""
		if item.PublishedParsed != nil {
			date = item.PublishedParsed.Format("Jan 2 2006")
		} else if item.Published != "" {
			date = item.Published
		}
		articles = append(articles, Article{
			URL:       item.Link,
			Title:     item.Title,
			Date:      date,
			ScrapedAt: now,
		})
	}
	f.logger.Info("discover.feed.done", "articles", len(articles))
	return articles, nil
}
