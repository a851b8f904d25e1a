package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"newsdigest/internal/common"
	"newsdigest/internal/state"
)

var statusFlags struct {
	outputDir string
	runID     string
}

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the persisted state of a pipeline run",
	Long: `Show how far a run has advanced: its status, the stages already
completed, and the artifact counts recorded per stage.

Without a run id, the most recent run under the output directory is
inspected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusFlags.outputDir, "output-dir", "results", "Base directory for run output")
	f.StringVar(&statusFlags.runID, "run", "", "Run id to inspect (default: most recent)")
}

func runStatus(_ *cobra.Command, args []string) error {
	runID := statusFlags.runID
	if runID == "" && len(args) > 0 {
		runID = args[0]
	}
	if runID == "" {
		latest, err := latestRunID(statusFlags.outputDir)
		if err != nil {
			return err
		}
		runID = latest
	}

	runDir := filepath.Join(statusFlags.outputDir, "run_"+runID)
	st, err := state.NewStore(runDir, nil).Load()
	if errors.Is(err, common.ErrStateNotFound) {
		return fmt.Errorf("no pipeline state in %s", runDir)
	}
	if err != nil {
		return err
	}

	fmt.Printf("run      %s\n", st.RunID)
	fmt.Printf("dir      %s\n", runDir)
	fmt.Printf("status   %s\n", st.Status)
	if len(st.StepsCompleted) > 0 {
		fmt.Printf("steps    %s\n", strings.Join(st.StepsCompleted, ", "))
	} else {
		fmt.Printf("steps    (none completed)\n")
	}
	fmt.Printf("urls     %d\n", len(st.URLs))
	fmt.Printf("pdfs     %d\n", len(st.PDFs))
	fmt.Printf("texts    %d\n", len(st.Texts))
	fmt.Printf("summaries %d\n", len(st.Processed))
	return nil
}

func latestRunID(outputDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, "run_*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no runs found under %s", outputDir)
	}
	sort.Strings(matches)
	// Run ids are timestamps, so lexicographic order is chronological.
	last := filepath.Base(matches[len(matches)-1])
	return strings.TrimPrefix(last, "run_"), nil
}
