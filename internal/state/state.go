// Package state persists the run state that makes the pipeline resumable.
// The JSON file written here is the single source of truth: a stage is
// completed if and only if it is recorded in StepsCompleted, and stage
// outputs are recorded only after their artifacts are durably on disk.
package state

import (
	"slices"

	"newsdigest/constants"
	"newsdigest/internal/discover"
	"newsdigest/internal/summarize"
)

// RunState accumulates stage outputs monotonically over a run. A completed
// stage is never un-recorded.
type RunState struct {
	RunID          string               `json:"run_id"`
	Status         constants.RunStatus  `json:"status"`
	StepsCompleted []string             `json:"steps_completed"`
	URLs           []discover.Article   `json:"urls"`
	PDFs           []string             `json:"pdfs"`
	Texts          []string             `json:"texts"`
	Processed      []summarize.Record   `json:"processed"`
}

// New returns the initial state for a fresh run.
func New(runID string) *RunState {
	return &RunState{
		RunID:          runID,
		Status:         constants.StatusInitialized,
		StepsCompleted: []string{},
		URLs:           []discover.Article{},
		PDFs:           []string{},
		Texts:          []string{},
		Processed:      []summarize.Record{},
	}
}

// Completed reports whether the stage has already run to completion.
func (s *RunState) Completed(stage constants.Stage) bool {
	return slices.Contains(s.StepsCompleted, string(stage))
}

// MarkCompleted records stage completion and advances the run status.
// Recording the same stage twice is a no-op.
func (s *RunState) MarkCompleted(stage constants.Stage) {
	if s.Completed(stage) {
		return
	}
	s.StepsCompleted = append(s.StepsCompleted, string(stage))
	if status, ok := constants.StatusAfter[stage]; ok {
		s.Status = status
	}
}
