package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"newsdigest/constants"
	"newsdigest/internal/artifacts"
)

const interDocPause = 1 * time.Second

// ProcessBatch summarizes documents in input order. Each successful record
// is persisted immediately (per-document artifact plus the append-only
// metadata log), so a failure partway through loses nothing already done.
// Cancellation stops the batch at the next document boundary and returns
// what has been persisted so far. Afterwards the derived outputs are
// rebuilt: the reverse-chronological combined file, the pipe-delimited
// table, and the XLSX workbook. The returned slice is sorted
// reverse-chronologically.
func (p *Processor) ProcessBatch(ctx context.Context, store *artifacts.Store, docs []Document) ([]Record, error) {
	total := len(docs)
	p.logger.Info("summarize.batch.start", "documents", total)
	store.SweepTemp(filepath.Join(constants.ProcessedDir, constants.IndividualDir))

	var results []Record
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("summarize.batch.canceled", "done", i, "total", total)
			return results, err
		}
		p.logger.Info("summarize.batch.doc", "index", i+1, "total", total, "id", doc.ID)

		rec, err := p.Process(ctx, doc)
		if err != nil {
			return results, err
		}
		if rec != nil {
			if err := p.persist(store, *rec); err != nil {
				return results, err
			}
			results = append(results, *rec)
		} else {
			p.logger.Error("summarize.batch.doc_failed", "id", doc.ID)
		}

		if i+1 < total {
			if err := p.sleep(ctx, interDocPause); err != nil {
				return results, err
			}
		}
	}

	SortRecords(results)

	if err := writeCombined(store, results); err != nil {
		return results, err
	}
	if err := writePipeTable(store, results); err != nil {
		return results, err
	}
	if err := writeXLSX(store, results); err != nil {
		return results, err
	}

	p.logger.Info("summarize.batch.done", "succeeded", len(results), "total", total)
	return results, nil
}

// persist writes the per-document summary artifact and appends the record
// to the metadata log.
func (p *Processor) persist(store *artifacts.Store, rec Record) error {
	dir := filepath.Join(constants.ProcessedDir, constants.IndividualDir)
	if err := store.Write(dir, rec.ID+".txt", []byte(rec.Summary)); err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	logPath := store.Path(constants.ProcessedDir, constants.MetadataFile)
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open metadata log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append metadata log: %w", err)
	}
	return nil
}

// SortRecords orders records reverse-chronologically by their date string
// (lexicographic on the "On <date>, <year>" prefix); records without a
// date sort last. The sort is stable so equal keys keep input order.
func SortRecords(records []Record) {
	key := func(r Record) string {
		if r.DateString == nil {
			return ""
		}
		return *r.DateString
	}
	sort.SliceStable(records, func(i, j int) bool {
		return key(records[i]) > key(records[j])
	})
}

func writeCombined(store *artifacts.Store, records []Record) error {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(rec.Summary)
		b.WriteString("\n\n")
	}
	return store.Write(constants.ProcessedDir, constants.CombinedFile, []byte(b.String()))
}

func writePipeTable(store *artifacts.Store, records []Record) error {
	var b strings.Builder
	b.WriteString("document_id|summary\n")
	for _, rec := range records {
		escaped := strings.ReplaceAll(rec.Summary, "|", `\|`)
		fmt.Fprintf(&b, "%s|%s\n", rec.ID, escaped)
	}
	return store.Write(constants.ProcessedDir, constants.CSVFile, []byte(b.String()))
}
