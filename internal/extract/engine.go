// Package extract recovers text from rendered PDF documents. It tries the
// embedded text first and falls back to rasterizing pages for OCR when the
// document looks scanned. The length threshold separating the two paths is
// a crude heuristic, so it stays a tunable config value rather than a
// constant.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"newsdigest/constants"
	"newsdigest/internal/artifacts"
	"newsdigest/internal/common"
)

// ErrNoText means every recovery path came up empty for a document.
var ErrNoText = errors.New("no text extracted")

// Method records which path produced a document's text.
const (
	MethodDirect = "direct"
	MethodOCR    = "ocr"
)

// Config holds extraction tunables.
type Config struct {
	Pdftoppm            string  // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract           string  // binary name or absolute path; if empty -> "tesseract"
	TesseractLang       string  // default "eng"
	UpscaleFactor       float64 // raster zoom over 72dpi base, default 2.0
	DirectTextThreshold int     // trimmed chars above which embedded text wins, default 100
}

// Result is the extracted text of one document.
type Result struct {
	SourceName string `json:"source_name"`
	Text       string `json:"text"`
	Method     string `json:"method"`
	CharCount  int    `json:"char_count"`
}

// Stats accumulates counters across a batch.
type Stats struct {
	Processed  int `json:"processed"`
	DirectText int `json:"direct_text"`
	OCRUsed    int `json:"ocr_used"`
	Failed     int `json:"failed"`
}

// SuccessRate is (direct+ocr)/processed, 0 when nothing was processed.
func (s Stats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.DirectText+s.OCRUsed) / float64(s.Processed)
}

// Engine implements the direct-vs-OCR extraction policy.
type Engine struct {
	cfg    Config
	runner Runner
	pages  PageReader
	logger *slog.Logger
	stats  Stats
}

func NewEngine(cfg common.OCRConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	c := Config{
		Pdftoppm:            cfg.Pdftoppm,
		Tesseract:           cfg.Tesseract,
		TesseractLang:       cfg.TesseractLang,
		UpscaleFactor:       cfg.UpscaleFactor,
		DirectTextThreshold: cfg.DirectTextThreshold,
	}
	return newEngine(c, execRunner{logger: logger}, pdfPages{}, logger)
}

func newEngine(cfg Config, runner Runner, pages PageReader, logger *slog.Logger) *Engine {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.UpscaleFactor <= 0 {
		cfg.UpscaleFactor = 2.0
	}
	if cfg.DirectTextThreshold <= 0 {
		cfg.DirectTextThreshold = 100
	}
	return &Engine{cfg: cfg, runner: runner, pages: pages, logger: logger}
}

// Stats returns a copy of the batch counters.
func (e *Engine) Stats() Stats { return e.stats }

// Extract recovers the text of one document. With forceOCR false the
// embedded text is tried first and wins when its trimmed length exceeds
// the threshold; otherwise every page is rasterized and OCR'd.
func (e *Engine) Extract(ctx context.Context, pdfPath string, forceOCR bool) (Result, error) {
	name := filepath.Base(pdfPath)
	e.stats.Processed++

	if !forceOCR {
		text, err := e.extractDirect(pdfPath)
		if err != nil {
			e.logger.Warn("extract.direct.error", "name", name, "error", err)
		} else if len(strings.TrimSpace(text)) > e.cfg.DirectTextThreshold {
			e.stats.DirectText++
			e.logger.Info("extract.direct.ok", "name", name, "chars", len(text))
			return Result{SourceName: name, Text: text, Method: MethodDirect, CharCount: len(text)}, nil
		}
	}

	text, err := e.extractOCR(ctx, pdfPath)
	if err != nil {
		e.stats.Failed++
		e.logger.Error("extract.ocr.failed", "name", name, "error", err)
		return Result{}, err
	}
	e.stats.OCRUsed++
	e.logger.Info("extract.ocr.ok", "name", name, "chars", len(text))
	return Result{SourceName: name, Text: text, Method: MethodOCR, CharCount: len(text)}, nil
}

// extractDirect concatenates the embedded text of every non-empty page,
// each block prefixed with a page marker, in page order.
func (e *Engine) extractDirect(pdfPath string) (string, error) {
	pages, err := e.pages.Pages(pdfPath)
	if err != nil {
		return "", err
	}
	var parts []string
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, text))
	}
	return strings.Join(parts, "\n\n"), nil
}

// extractOCR rasterizes each page to a grayscale PNG and runs the OCR
// binary on it. A page that fails OCR is logged and skipped; a document
// whose every page fails yields ErrNoText.
func (e *Engine) extractOCR(ctx context.Context, pdfPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "nd-ocr-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("extract.ocr.cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	dpi := int(72 * e.cfg.UpscaleFactor)
	// pdftoppm -gray -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-gray", "-r", fmt.Sprintf("%d", dpi), "-png", pdfPath, prefix)
	if err != nil {
		return "", fmt.Errorf("rasterize pages: %w (%s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("rasterizer produced no pages: %w", ErrNoText)
	}

	var parts []string
	for i, img := range matches {
		// tesseract <img> stdout -l <lang>
		out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, img, "stdout", "-l", e.cfg.TesseractLang)
		if err != nil {
			e.logger.Warn("extract.ocr.page_failed", "page", i+1, "error", err, "stderr", truncate(string(errb), 512))
			continue
		}
		text := string(out)
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, text))
	}
	if len(parts) == 0 {
		return "", ErrNoText
	}
	return strings.Join(parts, "\n\n"), nil
}

// ProcessDirectory extracts every PDF in the run's pdfs/ directory and
// writes the texts as <stem>.txt artifacts. A document whose text artifact
// already exists is returned from cache without touching the extractors,
// unless forceOCR is set. The result maps document stems to their text.
func (e *Engine) ProcessDirectory(ctx context.Context, store *artifacts.Store, forceOCR bool) (map[string]string, error) {
	pdfs, err := store.List(constants.PDFsDir, ".pdf")
	if err != nil {
		return nil, err
	}
	if len(pdfs) == 0 {
		e.logger.Error("extract.no_input", "dir", store.Dir(constants.PDFsDir))
		return map[string]string{}, nil
	}
	store.SweepTemp(constants.TextDir)

	results := make(map[string]string, len(pdfs))
	for _, name := range pdfs {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		txtName := stem + ".txt"

		if !forceOCR {
			if cached, err := store.Read(constants.TextDir, txtName); err == nil {
				e.logger.Info("extract.cached", "name", name)
				results[stem] = string(cached)
				continue
			}
		}

		res, err := e.Extract(ctx, store.Path(constants.PDFsDir, name), forceOCR)
		if err != nil {
			continue
		}
		if err := store.Write(constants.TextDir, txtName, []byte(res.Text)); err != nil {
			return nil, err
		}
		results[stem] = res.Text
	}

	s := e.stats
	e.logger.Info("extract.batch.done",
		"processed", s.Processed,
		"direct_text", s.DirectText,
		"ocr_used", s.OCRUsed,
		"failed", s.Failed,
		"success_rate", fmt.Sprintf("%.1f%%", s.SuccessRate()*100),
	)
	return results, nil
}
