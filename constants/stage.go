package constants

// Stage is one of the four ordered pipeline phases.
type Stage string

// Stable values (these exact strings appear in pipeline_state.json).
const (
	StageDiscover  Stage = "discover"
	StageRender    Stage = "render"
	StageExtract   Stage = "extract"
	StageSummarize Stage = "summarize"
)

// StageOrder is the canonical execution order. Requested stages always run
// in this order regardless of how they were asked for.
var StageOrder = []Stage{StageDiscover, StageRender, StageExtract, StageSummarize}

// RunStatus tracks how far a run has advanced.
type RunStatus string

const (
	StatusInitialized   RunStatus = "initialized"
	StatusURLsScraped   RunStatus = "urls_scraped"
	StatusPDFsGenerated RunStatus = "pdfs_generated"
	StatusTextExtracted RunStatus = "text_extracted"
	StatusCompleted     RunStatus = "completed"
)

// StatusAfter maps a completed stage to the run status it advances to.
var StatusAfter = map[Stage]RunStatus{
	StageDiscover:  StatusURLsScraped,
	StageRender:    StatusPDFsGenerated,
	StageExtract:   StatusTextExtracted,
	StageSummarize: StatusCompleted,
}

// IsStage reports whether s names a known stage.
func IsStage(s string) bool {
	for _, st := range StageOrder {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Normalize filters and reorders requested stages into canonical order,
// dropping duplicates and unknown names.
func Normalize(requested []string) []Stage {
	want := map[Stage]bool{}
	for _, r := range requested {
		want[Stage(r)] = true
	}
	var out []Stage
	for _, st := range StageOrder {
		if want[st] {
			out = append(out, st)
		}
	}
	return out
}
