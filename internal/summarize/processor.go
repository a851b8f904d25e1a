package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsdigest/internal/llm"
)

const (
	maxAttempts    = 3
	shortRetryWait = 5 * time.Second
	maxBackoffWait = 300 * time.Second
	systemPrompt   = "You are a data extraction specialist. Create dense, comprehensive summaries that preserve all important facts, numbers, and context from newsletters."
)

// Processor drives single-document summarization with retry/backoff.
type Processor struct {
	client llm.CompletionClient
	source string // the publication name the prompt attributes reporting to
	logger *slog.Logger

	// sleep is swapped out in tests so backoff timing is observable
	// without waiting.
	sleep func(context.Context, time.Duration) error
}

func NewProcessor(client llm.CompletionClient, source string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if source == "" {
		source = "Morning Brew"
	}
	return &Processor{client: client, source: source, logger: logger, sleep: ctxSleep}
}

// ctxSleep waits for d or until ctx is cancelled, whichever comes first.
func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildPrompt is deterministic given (text, dateInfo).
func (p *Processor) buildPrompt(text, dateInfo string) string {
	dateInstruction := "Find the date in the newsletter text. "
	if dateInfo != "" {
		dateInstruction = fmt.Sprintf("Use this date: %s. ", dateInfo)
	}
	return fmt.Sprintf(`Extract ALL key information from this newsletter into a single dense paragraph.

IMPORTANT: %sStart with "On [DATE], %s reported..." using the actual date.

Include:
- The date (from filename or newsletter text)
- Market movements with exact numbers and percentages
- All major stories with specific numbers, dollar amounts, and percentages
- Company actions, regulatory decisions, and political developments
- Key implications and context

Newsletter text: %s

Write summary starting with the real date:`, dateInstruction, p.source, text)
}

// Process summarizes one document. Rate limits back off exponentially
// (60s, 120s, 240s, capped at 300s); other failures wait a short fixed
// interval. Exhausted retries yield (nil, nil): the document is skipped,
// the batch continues. Cancellation is not retried: it aborts the
// document immediately, including mid-backoff.
func (p *Processor) Process(ctx context.Context, doc Document) (*Record, error) {
	dateInfo := InferDate(doc.Filename)
	if dateInfo != "" {
		p.logger.Info("summarize.date_from_filename", "id", doc.ID, "date", dateInfo)
	} else {
		p.logger.Warn("summarize.date_missing", "id", doc.ID, "filename", doc.Filename)
	}

	req := llm.Request{
		System: systemPrompt,
		User:   p.buildPrompt(doc.Text, dateInfo),
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.logger.Info("summarize.attempt", "id", doc.ID, "attempt", attempt+1)

		result, err := p.client.Complete(ctx, req)
		if err == nil {
			summary := applyDate(result, dateInfo)
			now := time.Now().Format(time.RFC3339)
			rec := &Record{
				ID:          doc.ID,
				Filename:    doc.Filename,
				Summary:     summary,
				DateString:  summaryDateString(summary),
				ProcessedAt: now,
				WordCount:   len(strings.Fields(summary)),
			}
			p.logger.Info("summarize.ok", "id", doc.ID, "words", rec.WordCount)
			return rec, nil
		}

		var rle *llm.RateLimitError
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			p.logger.Warn("summarize.canceled", "id", doc.ID, "attempt", attempt+1)
			return nil, err
		case errors.As(err, &rle):
			wait := min(time.Duration(60*(1<<attempt))*time.Second, maxBackoffWait)
			p.logger.Warn("summarize.rate_limited", "id", doc.ID, "wait_s", wait.Seconds(), "error", err)
			if err := p.sleep(ctx, wait); err != nil {
				return nil, err
			}
		case attempt == maxAttempts-1:
			p.logger.Error("summarize.exhausted", "id", doc.ID, "attempts", maxAttempts, "error", err)
			return nil, nil
		default:
			p.logger.Error("summarize.error", "id", doc.ID, "attempt", attempt+1, "error", err)
			if err := p.sleep(ctx, shortRetryWait); err != nil {
				return nil, err
			}
		}
	}

	p.logger.Error("summarize.exhausted", "id", doc.ID, "attempts", maxAttempts)
	return nil, nil
}
