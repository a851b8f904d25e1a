// Package render turns article URLs into PDF documents with a headless
// browser. The browser is an acquired resource: callers must Open the
// generator before rendering and Close it on every exit path.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"newsdigest/constants"
	"newsdigest/internal/artifacts"
	"newsdigest/internal/common"
	"newsdigest/internal/discover"
)

// Generator renders pages to PDF artifacts through one shared browser.
type Generator struct {
	cfg      common.RenderConfig
	store    *artifacts.Store
	headless bool
	logger   *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func NewGenerator(cfg common.RenderConfig, store *artifacts.Store, headless bool, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestPause <= 0 {
		cfg.RequestPause = 2 * time.Second
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	return &Generator{cfg: cfg, store: store, headless: headless, logger: logger}
}

// Open acquires the browser. It must be paired with Close.
func (g *Generator) Open(ctx context.Context) error {
	if g.browserCtx != nil {
		return errors.New("generator already open")
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", g.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so Open fails fast when Chrome is
	// missing, instead of on the first render.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("start browser: %w", err)
	}

	g.allocCancel = allocCancel
	g.browserCtx = browserCtx
	g.browserCancel = browserCancel
	g.logger.Info("render.browser.open", "headless", g.headless)
	return nil
}

// Close releases the browser. Safe to call more than once.
func (g *Generator) Close() {
	if g.browserCancel != nil {
		g.browserCancel()
		g.browserCancel = nil
	}
	if g.allocCancel != nil {
		g.allocCancel()
		g.allocCancel = nil
	}
	if g.browserCtx != nil {
		g.browserCtx = nil
		g.logger.Info("render.browser.closed")
	}
}

// RenderAll renders up to limit articles to PDF files under pdfs/ and
// returns the artifact names actually present afterwards, including ones
// carried over from a previous attempt.
func (g *Generator) RenderAll(ctx context.Context, articles []discover.Article, limit int) ([]string, error) {
	if g.browserCtx == nil {
		return nil, errors.New("generator not open")
	}
	if limit <= 0 || limit > len(articles) {
		limit = len(articles)
	}

	g.store.SweepTemp(constants.PDFsDir)

	rendered := 0
	for i, art := range articles[:limit] {
		name := Filename(art, i)
		if _, err := os.Stat(g.store.Path(constants.PDFsDir, name)); err == nil {
			g.logger.Info("render.skip_existing", "name", name)
			continue
		}

		g.logger.Info("render.page", "index", i+1, "total", limit, "url", art.URL)
		pdf, err := g.renderOne(ctx, art.URL)
		if err != nil {
			g.logger.Error("render.failed", "url", art.URL, "error", err)
			continue
		}
		if err := g.store.Write(constants.PDFsDir, name, pdf); err != nil {
			return nil, err
		}
		rendered++

		if i+1 < limit {
			time.Sleep(g.cfg.RequestPause)
		}
	}

	names, err := g.store.List(constants.PDFsDir, ".pdf")
	if err != nil {
		return nil, err
	}
	g.logger.Info("render.done", "rendered", rendered, "total_artifacts", len(names))
	return names, nil
}

func (g *Generator) renderOne(ctx context.Context, url string) ([]byte, error) {
	navCtx, cancel := context.WithTimeout(g.browserCtx, g.cfg.NavTimeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second), // let lazy images settle
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return pdf, nil
}

// Filename derives the PDF artifact name from the article's date and
// title. Articles without a date fall back to their position so names stay
// stable across retries.
func Filename(art discover.Article, index int) string {
	title := art.Title
	if title == "" {
		title = "untitled"
	}
	var stem string
	if art.Date != "" {
		stem = strings.ReplaceAll(art.Date, ",", "") + " " + title
	} else {
		stem = fmt.Sprintf("%03d %s", index+1, title)
	}
	return sanitize(stem) + ".pdf"
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if len(out) > 100 {
		out = strings.TrimSpace(out[:100])
	}
	return out
}
