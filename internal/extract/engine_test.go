package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"newsdigest/constants"
	"newsdigest/internal/artifacts"
)

// stubPages serves canned per-page embedded text keyed by file base name.
type stubPages struct {
	docs  map[string][]string
	err   error
	calls int
}

func (s *stubPages) Pages(path string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.docs[filepath.Base(path)], nil
}

// stubRunner fakes pdftoppm by dropping PNGs into the requested prefix dir
// and fakes tesseract with canned per-page output.
type stubRunner struct {
	pageCount int
	ocrText   map[string]string // png base name -> text
	ocrErr    map[string]error  // png base name -> error
	calls     []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	base := filepath.Base(name)
	switch base {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= s.pageCount; i++ {
			png := fmt.Sprintf("%s-%d.png", prefix, i)
			if err := os.WriteFile(png, []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		img := filepath.Base(args[0])
		if err, ok := s.ocrErr[img]; ok {
			return nil, []byte("boom"), err
		}
		return []byte(s.ocrText[img]), nil, nil
	default:
		return nil, nil, fmt.Errorf("unexpected command %q", name)
	}
}

func testEngine(pages PageReader, runner Runner) *Engine {
	return newEngine(Config{}, runner, pages, slog.New(slog.DiscardHandler))
}

func TestExtract_DirectWinsAboveThreshold(t *testing.T) {
	long := strings.Repeat("market news ", 20)
	pages := &stubPages{docs: map[string][]string{"doc.pdf": {long, "second page"}}}
	runner := &stubRunner{}
	e := testEngine(pages, runner)

	res, err := e.Extract(context.Background(), "doc.pdf", false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodDirect {
		t.Errorf("Method = %q, want %q", res.Method, MethodDirect)
	}
	if res.CharCount != len(res.Text) {
		t.Errorf("CharCount = %d, want %d", res.CharCount, len(res.Text))
	}
	if !strings.HasPrefix(res.Text, "--- Page 1 ---\n") {
		t.Errorf("missing first page marker: %q", res.Text[:30])
	}
	if !strings.Contains(res.Text, "--- Page 2 ---\nsecond page") {
		t.Error("missing second page block")
	}
	if len(runner.calls) != 0 {
		t.Errorf("OCR binaries invoked on direct path: %v", runner.calls)
	}
}

func TestExtract_ShortDirectTextFallsBackToOCR(t *testing.T) {
	// Trimmed direct result stays at or below the 100-char default, so the
	// engine must rasterize and OCR instead.
	pages := &stubPages{docs: map[string][]string{"doc.pdf": {"tiny"}}}
	runner := &stubRunner{
		pageCount: 2,
		ocrText:   map[string]string{"page-1.png": "ocr one", "page-2.png": "ocr two"},
	}
	e := testEngine(pages, runner)

	res, err := e.Extract(context.Background(), "doc.pdf", false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodOCR {
		t.Errorf("Method = %q, want %q", res.Method, MethodOCR)
	}
	want := "--- Page 1 ---\nocr one\n\n--- Page 2 ---\nocr two"
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
}

func TestExtract_ThresholdFencepost(t *testing.T) {
	// The single page marker contributes 15 characters, so an 85-char
	// page lands the trimmed direct text at exactly the 100-char default
	// and an 86-char page at 101. The boundary itself must fall back.
	t.Run("exactly 100 falls back to OCR", func(t *testing.T) {
		pages := &stubPages{docs: map[string][]string{"doc.pdf": {strings.Repeat("a", 85)}}}
		runner := &stubRunner{pageCount: 1, ocrText: map[string]string{"page-1.png": "from ocr"}}
		e := testEngine(pages, runner)

		res, err := e.Extract(context.Background(), "doc.pdf", false)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if res.Method != MethodOCR {
			t.Errorf("Method = %q, want %q", res.Method, MethodOCR)
		}
	})

	t.Run("101 goes direct", func(t *testing.T) {
		pages := &stubPages{docs: map[string][]string{"doc.pdf": {strings.Repeat("a", 86)}}}
		runner := &stubRunner{}
		e := testEngine(pages, runner)

		res, err := e.Extract(context.Background(), "doc.pdf", false)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if res.Method != MethodDirect {
			t.Errorf("Method = %q, want %q", res.Method, MethodDirect)
		}
		if len(runner.calls) != 0 {
			t.Errorf("OCR binaries invoked on direct path: %v", runner.calls)
		}
	})
}

func TestExtract_ForceOCRSkipsDirect(t *testing.T) {
	pages := &stubPages{docs: map[string][]string{"doc.pdf": {strings.Repeat("x", 500)}}}
	runner := &stubRunner{pageCount: 1, ocrText: map[string]string{"page-1.png": "from ocr"}}
	e := testEngine(pages, runner)

	res, err := e.Extract(context.Background(), "doc.pdf", true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodOCR {
		t.Errorf("Method = %q, want %q", res.Method, MethodOCR)
	}
	if pages.calls != 0 {
		t.Errorf("direct extractor called %d times with forceOCR, want 0", pages.calls)
	}
}

func TestExtract_PerPageOCRFailureIsSkipped(t *testing.T) {
	pages := &stubPages{docs: map[string][]string{"doc.pdf": {""}}}
	runner := &stubRunner{
		pageCount: 3,
		ocrText:   map[string]string{"page-1.png": "one", "page-3.png": "three"},
		ocrErr:    map[string]error{"page-2.png": errors.New("tesseract crashed")},
	}
	e := testEngine(pages, runner)

	res, err := e.Extract(context.Background(), "doc.pdf", false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "--- Page 1 ---\none\n\n--- Page 3 ---\nthree"
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
}

func TestExtract_AllPagesFailingYieldsError(t *testing.T) {
	pages := &stubPages{docs: map[string][]string{"doc.pdf": {""}}}
	runner := &stubRunner{
		pageCount: 2,
		ocrErr: map[string]error{
			"page-1.png": errors.New("fail"),
			"page-2.png": errors.New("fail"),
		},
	}
	e := testEngine(pages, runner)

	_, err := e.Extract(context.Background(), "doc.pdf", false)
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("err = %v, want ErrNoText", err)
	}
	if got := e.Stats().Failed; got != 1 {
		t.Errorf("Stats.Failed = %d, want 1", got)
	}
}

func TestProcessDirectory_MixedBatchStats(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, name := range []string{"embedded.pdf", "scanned.pdf"} {
		if err := store.Write(constants.PDFsDir, name, []byte("%PDF")); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	pages := &stubPages{docs: map[string][]string{
		"embedded.pdf": {strings.Repeat("embedded text ", 20)},
		"scanned.pdf":  {""},
	}}
	runner := &stubRunner{pageCount: 1, ocrText: map[string]string{"page-1.png": "scanned words"}}
	e := testEngine(pages, runner)

	results, err := e.ProcessDirectory(context.Background(), store, false)
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	want := Stats{Processed: 2, DirectText: 1, OCRUsed: 1, Failed: 0}
	if diff := cmp.Diff(want, e.Stats()); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
	if rate := e.Stats().SuccessRate(); rate != 1.0 {
		t.Errorf("SuccessRate = %v, want 1.0", rate)
	}

	// Text artifacts were persisted under the document stems.
	for _, stem := range []string{"embedded", "scanned"} {
		if _, err := store.Read(constants.TextDir, stem+".txt"); err != nil {
			t.Errorf("missing text artifact for %s: %v", stem, err)
		}
	}
}

func TestProcessDirectory_CacheSkipsExtraction(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Write(constants.PDFsDir, "doc.pdf", []byte("%PDF")); err != nil {
		t.Fatalf("seed pdf: %v", err)
	}
	if err := store.Write(constants.TextDir, "doc.txt", []byte("cached text")); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	pages := &stubPages{err: errors.New("direct extractor must not run")}
	runner := &stubRunner{}
	e := testEngine(pages, runner)

	results, err := e.ProcessDirectory(context.Background(), store, false)
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	if got := results["doc"]; got != "cached text" {
		t.Errorf("results[doc] = %q, want cached text", got)
	}
	if pages.calls != 0 || len(runner.calls) != 0 {
		t.Error("cached document still hit the extractors")
	}
	if e.Stats().Processed != 0 {
		t.Errorf("cached document counted as processed: %+v", e.Stats())
	}
}

func TestProcessDirectory_EmptyInput(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	results, err := e2(t).ProcessDirectory(context.Background(), store, false)
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty dir, want 0", len(results))
	}
}

func e2(t *testing.T) *Engine {
	t.Helper()
	return testEngine(&stubPages{}, &stubRunner{})
}
