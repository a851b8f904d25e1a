// Package llm defines the language-model boundary: a completion client
// the summarizer can call, plus the error taxonomy the retry policy keys
// on.
package llm

import (
	"context"
	"fmt"
)

// Request is one completion call.
type Request struct {
	System string
	User   string
}

// CompletionClient is the language-model collaborator: text in, text out,
// may fail transiently.
type CompletionClient interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// RateLimitError signals the provider throttled us; callers back off
// exponentially instead of retrying at the short interval.
type RateLimitError struct {
	Status int
	Body   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (status %d): %s", e.Status, e.Body)
}
