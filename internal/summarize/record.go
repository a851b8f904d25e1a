// Package summarize turns extracted newsletter text into dense one-paragraph
// summaries through the language-model collaborator, with retry/backoff for
// transient failures, and persists every successful record immediately so a
// partial batch never loses prior work.
package summarize

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Record is one processed document.
type Record struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	Summary     string  `json:"summary"`
	DateString  *string `json:"date_string"`
	ProcessedAt string  `json:"processed_at"`
	WordCount   int     `json:"word_count"`
}

// Document is summarizer input: one extracted text artifact.
type Document struct {
	ID       string // filename stem
	Filename string
	Text     string
}

// LoadDocuments reads every non-empty .txt file in dir, sorted by name.
func LoadDocuments(dir string, logger *slog.Logger) ([]Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}

	var docs []Document
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Error("summarize.load.failed", "path", path, "error", err)
			continue
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		name := filepath.Base(path)
		docs = append(docs, Document{
			ID:       strings.TrimSuffix(name, filepath.Ext(name)),
			Filename: name,
			Text:     string(content),
		})
	}
	logger.Info("summarize.load.done", "documents", len(docs), "dir", dir)
	return docs, nil
}
