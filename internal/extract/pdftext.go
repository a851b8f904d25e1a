package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageReader yields the embedded text of each page of a document, in page
// order. Pages without embedded text come back as empty strings.
type PageReader interface {
	Pages(path string) ([]string, error)
}

// pdfPages reads embedded text with a pure-Go PDF parser; no external
// process is involved on the direct path.
type pdfPages struct{}

func (pdfPages) Pages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for n := 1; n <= total; n++ {
		p := reader.Page(n)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not sink the document; the
			// caller's threshold decides whether OCR is needed.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
