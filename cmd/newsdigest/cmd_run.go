package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"newsdigest/constants"
	"newsdigest/internal/artifacts"
	"newsdigest/internal/common"
	"newsdigest/internal/discover"
	"newsdigest/internal/extract"
	"newsdigest/internal/llm/openai"
	"newsdigest/internal/pipeline"
	"newsdigest/internal/render"
	"newsdigest/internal/summarize"
)

var runFlags struct {
	steps         []string
	limit         int
	maxIterations int
	noHeadless    bool
	forceOCR      bool
	outputDir     string
	resume        string
	useFeed       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the pipeline: discover, render, extract, summarize",
	Long: `Execute the article pipeline end to end, or a subset of its stages.

Stages always run in canonical order regardless of how --steps lists
them. A stage that produced artifacts in a previous run of the same
run directory is skipped and its persisted results reused.

Usage:
  newsdigest run                                  # full pipeline, new run
  newsdigest run --steps discover,render          # first two stages only
  newsdigest run --resume 20250907_120000         # pick up where a run stopped
  newsdigest run --force-ocr --limit 10           # OCR every page, 10 issues

The OpenAI API key is read from OPENAI_API_KEY. It is only required
once the summarize stage runs; earlier stages work without it.`,
	RunE: runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runFlags.steps, "steps", nil, "Comma-separated stages to run (default: all)")
	f.IntVar(&runFlags.limit, "limit", 30, "Maximum number of articles to render")
	f.IntVar(&runFlags.maxIterations, "max-iterations", 0, "Archive pagination budget (default: limit/10, minimum 1)")
	f.BoolVar(&runFlags.noHeadless, "no-headless", false, "Show the browser window during discovery and rendering")
	f.BoolVar(&runFlags.forceOCR, "force-ocr", false, "Skip embedded-text extraction and OCR every page")
	f.StringVar(&runFlags.outputDir, "output-dir", "results", "Base directory for run output")
	f.StringVar(&runFlags.resume, "resume", "", "Run id to resume (e.g. 20250907_120000)")
	f.BoolVar(&runFlags.useFeed, "use-feed", false, "Discover articles from the RSS feed instead of the archive page")
}

// validateSteps rejects stage names the pipeline does not know, before
// any run directory is created for them.
func validateSteps(steps []string) error {
	for _, s := range steps {
		if !constants.IsStage(s) {
			return common.NewAppError("INVALID_INPUT",
				fmt.Sprintf("unknown stage %q (valid: discover, render, extract, summarize)", s),
				common.ErrInvalidInput)
		}
	}
	return nil
}

// selectSource picks the discovery strategy. The feed is opt-in via
// --use-feed only; a configured feed URL alone never overrides the
// browser source.
func selectSource(cfg *common.Config, useFeed, headless bool, logger *slog.Logger) (discover.Source, error) {
	if useFeed {
		if cfg.Discover.FeedURL == "" {
			return nil, common.NewAppError("INVALID_INPUT",
				"--use-feed requires a feed URL (set ARCHIVE_FEED_URL or discover.feedUrl)",
				common.ErrInvalidInput)
		}
		return discover.NewFeedSource(cfg.Discover.FeedURL, logger), nil
	}
	return discover.NewBrowserSource(cfg.Discover, headless, logger), nil
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg := common.LoadConfig()
	logger := slog.Default()

	if err := validateSteps(runFlags.steps); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headless := !runFlags.noHeadless
	source, err := selectSource(cfg, runFlags.useFeed, headless, logger)
	if err != nil {
		return err
	}

	var store *artifacts.Store
	if runFlags.resume != "" {
		store, err = artifacts.OpenStore(runFlags.outputDir, runFlags.resume, logger)
		if errors.Is(err, common.ErrStateNotFound) {
			return fmt.Errorf("no run %q under %s; was it started with this output dir?",
				runFlags.resume, runFlags.outputDir)
		}
	} else {
		store, err = artifacts.NewStore(runFlags.outputDir, logger)
	}
	if err != nil {
		return err
	}

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	deps := pipeline.Deps{
		Source:     source,
		Renderer:   render.NewGenerator(cfg.Render, store, headless, logger),
		Extractor:  extract.NewEngine(cfg.OCR, logger),
		Summarizer: summarize.NewProcessor(client, "", logger),
		APIKey:     cfg.LLM.APIKey,
		Logger:     logger,
	}

	var orch *pipeline.Orchestrator
	if runFlags.resume != "" {
		orch, err = pipeline.Resume(store, deps)
		if errors.Is(err, common.ErrStateNotFound) {
			return fmt.Errorf("no pipeline state in %s; was the run id %q started with this output dir?",
				store.RunDir(), runFlags.resume)
		}
	} else {
		orch, err = pipeline.New(store, deps)
	}
	if err != nil {
		return err
	}

	summary, runErr := orch.Run(ctx, pipeline.Options{
		Steps:         runFlags.steps,
		Limit:         runFlags.limit,
		MaxIterations: runFlags.maxIterations,
		ForceOCR:      runFlags.forceOCR,
	})

	if ctx.Err() != nil {
		fmt.Fprintf(os.Stderr, "\ninterrupted; resume with:\n  newsdigest run --resume %s --output-dir %s\n",
			orch.RunID(), runFlags.outputDir)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("run %s finished (%s)\n", summary.RunID, summary.RunDir)
	for _, stage := range constants.StageOrder {
		if count, ok := summary.Results[string(stage)]; ok {
			fmt.Printf("  %-10s %d\n", stage, count)
		}
	}
	return nil
}
