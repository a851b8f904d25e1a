// Package pipeline drives the four ordered stages — discover, render,
// extract, summarize — over a resumable run directory. Each stage records
// its artifacts in the persisted run state only after they are durably
// written, and a stage recorded as completed is never executed again:
// re-running it serves the persisted results without touching the external
// collaborator.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"newsdigest/constants"
	"newsdigest/internal/artifacts"
	"newsdigest/internal/common"
	"newsdigest/internal/discover"
	"newsdigest/internal/state"
	"newsdigest/internal/summarize"
)

// URLSource discovers article references (stage 1 collaborator).
type URLSource interface {
	Discover(ctx context.Context, maxIterations int) ([]discover.Article, error)
}

// DocumentRenderer turns article URLs into PDF artifacts (stage 2
// collaborator). Open acquires the browser; Close must release it on
// every exit path.
type DocumentRenderer interface {
	Open(ctx context.Context) error
	Close()
	RenderAll(ctx context.Context, articles []discover.Article, limit int) ([]string, error)
}

// TextExtractor recovers text from the run's PDF artifacts (stage 3
// collaborator).
type TextExtractor interface {
	ProcessDirectory(ctx context.Context, store *artifacts.Store, forceOCR bool) (map[string]string, error)
}

// Summarizer processes extracted documents through the language model
// (stage 4 collaborator).
type Summarizer interface {
	ProcessBatch(ctx context.Context, store *artifacts.Store, docs []summarize.Document) ([]summarize.Record, error)
}

// Deps wires the stage collaborators into the orchestrator.
type Deps struct {
	Source     URLSource
	Renderer   DocumentRenderer
	Extractor  TextExtractor
	Summarizer Summarizer
	APIKey     string // summarize-stage credential; checked at that stage, not at startup
	Logger     *slog.Logger
}

// Options selects what a Run executes.
type Options struct {
	Steps         []string // subset of stage names; empty means all
	Limit         int      // max articles to render
	MaxIterations int      // discovery pagination budget; <=0 derives max(1, Limit/10)
	ForceOCR      bool
}

// RunSummary aggregates per-stage artifact counts for one Run call. It is
// written to pipeline_results.json, independent of the run state.
type RunSummary struct {
	RunID    string         `json:"run_id"`
	RunDir   string         `json:"run_dir"`
	StepsRun []string       `json:"steps_run"`
	Results  map[string]int `json:"results"`
}

// Orchestrator owns the run state. Exactly one orchestrator may operate on
// a given run directory.
type Orchestrator struct {
	store      *artifacts.Store
	stateStore *state.Store
	st         *state.RunState
	deps       Deps
	logger     *slog.Logger
}

// New starts a fresh run on an already-created run directory, persisting
// the initial state. The store is built by the caller because stage
// collaborators (the renderer, notably) need it before the orchestrator
// exists.
func New(store *artifacts.Store, deps Deps) (*Orchestrator, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		store:      store,
		stateStore: state.NewStore(store.RunDir(), logger),
		st:         state.New(store.RunID()),
		deps:       deps,
		logger:     logger,
	}
	if err := o.stateStore.Save(o.st); err != nil {
		return nil, err
	}
	logger.Info("pipeline.run.created", "run_id", store.RunID(), "run_dir", store.RunDir())
	return o, nil
}

// Resume attaches to an existing run directory and reloads its state.
// A directory without persisted state yields common.ErrStateNotFound.
func Resume(store *artifacts.Store, deps Deps) (*Orchestrator, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stateStore := state.NewStore(store.RunDir(), logger)
	st, err := stateStore.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("pipeline.run.resumed", "run_id", st.RunID, "status", st.Status)
	return &Orchestrator{store: store, stateStore: stateStore, st: st, deps: deps, logger: logger}, nil
}

func (o *Orchestrator) RunID() string { return o.store.RunID() }
func (o *Orchestrator) RunDir() string { return o.store.RunDir() }
func (o *Orchestrator) State() state.RunState { return *o.st }
func (o *Orchestrator) Store() *artifacts.Store { return o.store }

// Run executes the requested stages in canonical order and writes the
// aggregated RunSummary. A stage producing nothing halts the pipeline
// gracefully; only fatal configuration errors come back as a non-nil
// error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*RunSummary, error) {
	stages := constants.Normalize(opts.Steps)
	if len(stages) == 0 {
		stages = constants.StageOrder
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = max(1, opts.Limit/10)
	}

	stepsRun := make([]string, len(stages))
	for i, s := range stages {
		stepsRun[i] = string(s)
	}
	o.logger.Info("pipeline.run.start",
		"run_id", o.st.RunID,
		"steps", stepsRun,
		"limit", opts.Limit,
		"max_iterations", maxIterations,
	)

	summary := &RunSummary{
		RunID:    o.st.RunID,
		RunDir:   o.store.RunDir(),
		StepsRun: stepsRun,
		Results:  map[string]int{},
	}

	var runErr error
	for _, stage := range stages {
		var count int
		var err error
		switch stage {
		case constants.StageDiscover:
			var urls []discover.Article
			urls, err = o.StepDiscover(ctx, maxIterations)
			count = len(urls)
		case constants.StageRender:
			var pdfs []string
			pdfs, err = o.StepRender(ctx, opts.Limit)
			count = len(pdfs)
		case constants.StageExtract:
			var texts []string
			texts, err = o.StepExtract(ctx, opts.ForceOCR)
			count = len(texts)
		case constants.StageSummarize:
			var recs []summarize.Record
			recs, err = o.StepSummarize(ctx)
			count = len(recs)
		}
		summary.Results[string(stage)] = count

		if err != nil {
			o.logger.Error("pipeline.stage.error", "stage", stage, "error", err)
			runErr = err
			break
		}
		if count == 0 && stage != constants.StageSummarize {
			o.logger.Error("pipeline.stage.empty", "stage", stage, "hint", "stopping pipeline")
			break
		}
	}

	if err := o.store.WriteJSON("", constants.ResultsFile, summary); err != nil {
		o.logger.Error("pipeline.results.write_failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	o.logger.Info("pipeline.run.done", "run_id", o.st.RunID, "results", summary.Results)
	return summary, runErr
}

// StepDiscover is stage 1: scrape article URLs from the archive.
func (o *Orchestrator) StepDiscover(ctx context.Context, maxIterations int) ([]discover.Article, error) {
	o.logStage(1, "discovering urls")
	if o.st.Completed(constants.StageDiscover) {
		o.logger.Info("pipeline.stage.skip", "stage", constants.StageDiscover, "urls", len(o.st.URLs))
		return o.st.URLs, nil
	}

	articles, err := o.deps.Source.Discover(ctx, maxIterations)
	if err != nil {
		return nil, fmt.Errorf("discover urls: %w", err)
	}
	if len(articles) == 0 {
		o.logger.Error("pipeline.discover.empty")
		return nil, nil
	}

	if err := o.store.WriteJSON(constants.URLsDir, constants.URLsFile, discover.NewURLList(articles)); err != nil {
		return nil, err
	}

	o.st.URLs = articles
	o.st.MarkCompleted(constants.StageDiscover)
	if err := o.stateStore.Save(o.st); err != nil {
		return nil, err
	}
	o.logger.Info("pipeline.discover.done", "urls", len(articles))
	return articles, nil
}

// StepRender is stage 2: render discovered URLs to PDF artifacts.
func (o *Orchestrator) StepRender(ctx context.Context, limit int) ([]string, error) {
	o.logStage(2, "rendering pdfs")
	if o.st.Completed(constants.StageRender) {
		o.logger.Info("pipeline.stage.skip", "stage", constants.StageRender, "pdfs", len(o.st.PDFs))
		return o.st.PDFs, nil
	}
	if len(o.st.URLs) == 0 {
		o.logger.Error("pipeline.render.no_urls", "hint", "run the discover stage first")
		return nil, nil
	}

	if err := o.deps.Renderer.Open(ctx); err != nil {
		return nil, fmt.Errorf("acquire renderer: %w", err)
	}
	defer o.deps.Renderer.Close()

	names, err := o.deps.Renderer.RenderAll(ctx, o.st.URLs, limit)
	if err != nil {
		return nil, fmt.Errorf("render pdfs: %w", err)
	}
	if len(names) == 0 {
		o.logger.Error("pipeline.render.empty")
		return nil, nil
	}

	o.st.PDFs = names
	o.st.MarkCompleted(constants.StageRender)
	if err := o.stateStore.Save(o.st); err != nil {
		return nil, err
	}
	o.logger.Info("pipeline.render.done", "pdfs", len(names))
	return names, nil
}

// StepExtract is stage 3: recover text from the rendered PDFs.
func (o *Orchestrator) StepExtract(ctx context.Context, forceOCR bool) ([]string, error) {
	o.logStage(3, "extracting text")
	if o.st.Completed(constants.StageExtract) {
		o.logger.Info("pipeline.stage.skip", "stage", constants.StageExtract, "texts", len(o.st.Texts))
		return o.st.Texts, nil
	}
	if len(o.st.PDFs) == 0 {
		o.logger.Error("pipeline.extract.no_pdfs", "hint", "run the render stage first")
		return nil, nil
	}

	results, err := o.deps.Extractor.ProcessDirectory(ctx, o.store, forceOCR)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if len(results) == 0 {
		o.logger.Error("pipeline.extract.empty")
		return nil, nil
	}

	texts := make([]string, 0, len(results))
	for stem := range results {
		texts = append(texts, stem)
	}
	sort.Strings(texts)

	o.st.Texts = texts
	o.st.MarkCompleted(constants.StageExtract)
	if err := o.stateStore.Save(o.st); err != nil {
		return nil, err
	}
	o.logger.Info("pipeline.extract.done", "texts", len(texts))
	return texts, nil
}

// StepSummarize is stage 4: process extracted text through the language
// model. A missing API credential is a stage-level configuration error;
// the earlier stages run fine without it.
func (o *Orchestrator) StepSummarize(ctx context.Context) ([]summarize.Record, error) {
	o.logStage(4, "summarizing documents")
	if o.st.Completed(constants.StageSummarize) {
		o.logger.Info("pipeline.stage.skip", "stage", constants.StageSummarize, "processed", len(o.st.Processed))
		return o.st.Processed, nil
	}
	if len(o.st.Texts) == 0 {
		o.logger.Error("pipeline.summarize.no_texts", "hint", "run the extract stage first")
		return nil, nil
	}
	if o.deps.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "OPENAI_API_KEY not set in environment", common.ErrMissingCredential)
	}

	docs, err := summarize.LoadDocuments(o.store.Dir(constants.TextDir), o.logger)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		o.logger.Error("pipeline.summarize.no_documents")
		return nil, nil
	}

	records, err := o.deps.Summarizer.ProcessBatch(ctx, o.store, docs)
	if err != nil {
		return nil, fmt.Errorf("summarize batch: %w", err)
	}

	o.st.Processed = records
	o.st.MarkCompleted(constants.StageSummarize)
	if err := o.stateStore.Save(o.st); err != nil {
		return nil, err
	}
	o.logger.Info("pipeline.summarize.done", "processed", len(records))
	return records, nil
}

func (o *Orchestrator) logStage(n int, what string) {
	o.logger.Info(fmt.Sprintf("pipeline.step_%d", n), "what", what)
}
