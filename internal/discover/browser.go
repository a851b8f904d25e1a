package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"newsdigest/internal/common"
)

// BrowserSource drives a headless browser through the archive page,
// clicking the load-more control until the page stops growing or the
// iteration budget runs out, then harvests article links from the DOM.
type BrowserSource struct {
	cfg      common.DiscoverConfig
	headless bool
	logger   *slog.Logger
}

func NewBrowserSource(cfg common.DiscoverConfig, headless bool, logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClickPause <= 0 {
		cfg.ClickPause = 2 * time.Second
	}
	return &BrowserSource{cfg: cfg, headless: headless, logger: logger}
}

func (b *BrowserSource) Discover(ctx context.Context, maxIterations int) ([]Article, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	b.logger.Info("discover.start", "archive_url", b.cfg.ArchiveURL, "max_iterations", maxIterations)

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(b.cfg.ArchiveURL),
		chromedp.WaitReady("body"),
	); err != nil {
		return nil, fmt.Errorf("navigate archive: %w", err)
	}

	// Click "load more" until the archive stops growing. Each click is
	// followed by a fixed pause so the next batch can render; the pause is
	// also the crude rate limit against the archive host.
	prevCount := -1
	for i := 0; i < maxIterations; i++ {
		var count int
		if err := chromedp.Run(browserCtx,
			chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, b.cfg.LinkSelector), &count),
		); err != nil {
			return nil, fmt.Errorf("count links: %w", err)
		}
		if count == prevCount {
			b.logger.Info("discover.no_more_results", "clicks", i, "links", count)
			break
		}
		prevCount = count

		err := chromedp.Run(browserCtx,
			chromedp.Click(b.cfg.MoreSelector, chromedp.ByQuery),
			chromedp.Sleep(b.cfg.ClickPause),
		)
		if err != nil {
			// The control disappears once the archive is exhausted.
			b.logger.Info("discover.load_more_gone", "clicks", i, "links", count)
			break
		}
		b.logger.Debug("discover.clicked", "iteration", i+1, "links", count)
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("read archive dom: %w", err)
	}

	articles, err := HarvestLinks(html, b.cfg.ArchiveURL, b.cfg.LinkSelector)
	if err != nil {
		return nil, err
	}
	b.logger.Info("discover.done", "articles", len(articles))
	return articles, nil
}

// HarvestLinks extracts article references from rendered archive HTML.
// Relative hrefs are resolved against baseURL and duplicates collapse by
// resolved URL, first occurrence wins.
func HarvestLinks(html, baseURL, selector string) ([]Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse archive html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	seen := map[string]bool{}
	var articles []Article

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := base.Parse(href)
		if err != nil {
			return
		}
		ref.Fragment = ""
		abs := ref.String()
		if seen[abs] {
			return
		}
		seen[abs] = true

		title := strings.Join(strings.Fields(sel.Text()), " ")
		date := strings.TrimSpace(sel.Find("time").First().Text())
		if date == "" {
			// Archives commonly put the issue date in a sibling element.
			date = strings.TrimSpace(sel.Parent().Find("time").First().Text())
		}

		articles = append(articles, Article{
			URL:       abs,
			Title:     title,
			Date:      date,
			ScrapedAt: now,
		})
	})

	return articles, nil
}
