package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sourcelens/audit-cli/internal/benchmark"
	"github.com/sourcelens/audit-cli/internal/catalog"
	"github.com/sourcelens/audit-cli/internal/compare"
	"github.com/sourcelens/audit-cli/internal/config"
	"github.com/sourcelens/audit-cli/internal/fixes"
	"github.com/sourcelens/audit-cli/internal/impact"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/observation"
	"github.com/sourcelens/audit-cli/internal/report"
	"github.com/sourcelens/audit-cli/internal/retrieval"
	"github.com/sourcelens/audit-cli/internal/scoring"
	"github.com/sourcelens/audit-cli/internal/simulation"
	"github.com/sourcelens/audit-cli/internal/store"
)

// Input describes one audit to run.
type Input struct {
	SiteID      string
	CompanyName string
	Domain      string
	Pages       []model.ExtractedPage

	// Competitors enables the benchmark stage when observation runs.
	Competitors []benchmark.Competitor
}

// Pipeline wires the audit stages together. Stages within one run execute
// sequentially; parallelism lives across runs and inside observation.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	catalog   *catalog.Catalog
	chunker   Chunker
	embedder  Embedder
	simulator *simulation.Runner
	scorer    *scoring.Calculator
	generator *fixes.Generator
	tierC     *impact.TierC
	tierB     *impact.TierB
	observer  *observation.Runner
	assembler *report.Assembler
}

// New creates a pipeline. st may be nil for ephemeral runs; observer may be
// nil to skip the observation stage.
func New(cfg *config.Config, st store.Store, observer *observation.Runner) *Pipeline {
	tierC := impact.NewTierC(impact.TierCOptionsFromConfig(cfg.Impact))
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		catalog:   catalog.Default(),
		chunker:   NewHeadingChunker(),
		embedder:  NewLocalEmbedder(),
		simulator: simulation.NewRunner(simulation.OptionsFromConfig(cfg.Simulation)),
		scorer:    scoring.NewCalculator(scoring.DefaultRubric()),
		generator: fixes.NewGenerator(fixes.OptionsFromConfig(cfg.Fixes)),
		tierC:     tierC,
		tierB:     impact.NewTierB(impact.TierBOptionsFromConfig(cfg.Impact), tierC),
		observer:  observer,
		assembler: report.NewAssembler(),
	}
}

// embedderAdapter exposes the pipeline Embedder to the retrieval index.
type embedderAdapter struct {
	inner Embedder
}

func (a embedderAdapter) Embed(ctx context.Context, text string) ([]float64, error) {
	return a.inner.Embed(ctx, text)
}

// Run executes the full audit and returns the assembled report. When a
// store is configured the run, its question results, and the report are
// persisted.
func (p *Pipeline) Run(ctx context.Context, in Input) (*model.FullReport, error) {
	if in.CompanyName == "" {
		return nil, eris.New("pipeline: company name is required")
	}

	log := zap.L().With(zap.String("company", in.CompanyName), zap.String("domain", in.Domain))
	log.Info("pipeline: starting audit")
	startedAt := time.Now().UTC()

	runID := in.SiteID
	var run *model.AuditRun
	if p.store != nil {
		var err error
		run, err = p.store.CreateRun(ctx, in.SiteID, in.CompanyName, in.Domain)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
		p.setStatus(ctx, runID, model.RunStatusRunning, "")
	}

	rep, err := p.execute(ctx, in, runID, startedAt, log)
	if p.store != nil && run != nil {
		switch {
		case err == nil:
			if saveErr := p.store.SaveReport(ctx, runID, rep); saveErr != nil {
				log.Warn("pipeline: failed to save report", zap.Error(saveErr))
			}
			p.setStatus(ctx, runID, model.RunStatusComplete, "")
		case eris.Is(err, model.ErrCancelled):
			p.setStatus(ctx, runID, model.RunStatusCancelled, err.Error())
		default:
			p.setStatus(ctx, runID, model.RunStatusFailed, err.Error())
		}
	}
	return rep, err
}

func (p *Pipeline) execute(ctx context.Context, in Input, runID string, startedAt time.Time, log *zap.Logger) (*model.FullReport, error) {
	// Question set: universal catalog plus site-derived questions.
	questions, err := p.buildQuestions(in)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: question set ready", zap.Int("questions", len(questions)))

	// Index. Populated fully before simulation; read-only after.
	index, siteContent, err := p.buildIndex(ctx, in.Pages)
	if err != nil {
		return nil, err
	}
	if index.Size() == 0 {
		// An empty index still produces a report: every question comes back
		// unanswerable and the fix plan spells out what is missing.
		log.Warn("pipeline: pages yielded no indexable content")
	} else {
		log.Info("pipeline: index built", zap.Int("chunks", index.Size()))
	}

	sim, err := p.simulator.Run(ctx, index, in.SiteID, runID, in.CompanyName, questions)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: simulation")
	}
	if p.store != nil {
		if saveErr := p.store.SaveQuestionResults(ctx, runID, sim.Results); saveErr != nil {
			log.Warn("pipeline: failed to save question results", zap.Error(saveErr))
		}
	}

	breakdown, err := p.scorer.Calculate(sim)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: scoring")
	}
	log.Info("pipeline: scored",
		zap.Float64("total", breakdown.TotalScore),
		zap.String("grade", breakdown.Grade),
	)

	plan, err := p.generator.Generate(ctx, sim, siteContent)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fix generation")
	}

	planImpact, err := p.tierB.EstimatePlan(ctx, plan, sim)
	if err != nil {
		log.Warn("pipeline: tier B impact failed, falling back to lookup", zap.Error(err))
		planImpact, err = p.tierC.EstimatePlan(ctx, plan)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: impact estimation")
		}
	}

	inputs := report.Inputs{
		SiteID:       in.SiteID,
		RunID:        runID,
		CompanyName:  in.CompanyName,
		Domain:       in.Domain,
		RunStartedAt: &startedAt,
		Simulation:   sim,
		Breakdown:    breakdown,
		FixPlan:      plan,
		PlanImpact:   planImpact,
	}

	if p.observer != nil && p.cfg.Observation.Enabled {
		p.observe(ctx, in, sim, &inputs, log)
	}

	completedAt := time.Now().UTC()
	inputs.RunCompletedAt = &completedAt

	rep, err := p.assembler.Assemble(inputs)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: assemble report")
	}
	log.Info("pipeline: audit complete",
		zap.String("run_id", runID),
		zap.Float64("duration_s", completedAt.Sub(startedAt).Seconds()),
	)
	return rep, nil
}

func (p *Pipeline) buildQuestions(in Input) ([]model.Question, error) {
	siteCtx := model.SiteContext{
		CompanyName: in.CompanyName,
		Domain:      in.Domain,
	}
	for _, page := range in.Pages {
		siteCtx.PageTexts = append(siteCtx.PageTexts, page.MainContent)
		if siteCtx.Title == "" {
			siteCtx.Title = page.Title
		}
		if desc, ok := page.Metadata["description"]; ok && siteCtx.Description == "" {
			siteCtx.Description = desc
		}
		if st, ok := page.Metadata["schema_type"]; ok {
			siteCtx.SchemaTypes = append(siteCtx.SchemaTypes, st)
		}
		if siteCtx.Headings == nil {
			siteCtx.Headings = page.Headings
		}
	}

	opts := catalog.DeriveOptions{
		MaxQuestions:        p.cfg.Catalog.MaxQuestions,
		MinKeywordFrequency: p.cfg.Catalog.MinKeywordFrequency,
	}
	set, err := p.catalog.GenerateForSite(siteCtx, opts)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: derive questions")
	}
	return set.All(), nil
}

// buildIndex chunks and embeds the pages, returning the populated index and
// a url -> content map used for fix evidence extraction.
func (p *Pipeline) buildIndex(ctx context.Context, pages []model.ExtractedPage) (*retrieval.Index, map[string]string, error) {
	chunks := p.chunker.Chunk(pages)

	embeddings, err := p.embedder.EmbedMany(ctx, chunks)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: embed chunks")
	}

	index := retrieval.NewIndex(embedderAdapter{inner: p.embedder})
	for i, chunk := range chunks {
		var embedding []float64
		if i < len(embeddings) {
			embedding = embeddings[i].Embedding
		}
		index.Add(chunk.ID, chunk.Content, embedding, chunk.URL, chunk.Title, chunk.HeadingPath)
	}

	siteContent := make(map[string]string, len(pages))
	for _, page := range pages {
		siteContent[page.URL] = page.MainContent
	}
	return index, siteContent, nil
}

// observe runs the observation, comparison, and benchmark stages. Failures
// here degrade the report instead of failing the audit.
func (p *Pipeline) observe(ctx context.Context, in Input, sim *model.SimulationResult, inputs *report.Inputs, log *zap.Logger) {
	requests := observation.BuildRequests(sim, in.Domain, p.cfg.Provider)
	batch, err := p.observer.Run(ctx, requests)
	if err != nil {
		log.Warn("pipeline: observation failed", zap.Error(err))
		return
	}
	if batch.Failed {
		log.Warn("pipeline: observation produced no responses")
		return
	}
	inputs.Observation = batch

	comparator := compare.NewComparator(compare.ThresholdsFromConfig(p.cfg.Report))
	summary, err := comparator.Compare(sim, batch)
	if err != nil {
		log.Warn("pipeline: comparison failed", zap.Error(err))
		return
	}
	inputs.Comparison = summary
	inputs.Divergence = comparator.Divergence(summary)

	if p.cfg.Report.IncludeBenchmark && len(in.Competitors) > 0 {
		competitors := p.observeCompetitors(ctx, in.Competitors, sim, log)
		if len(competitors) == 0 {
			return
		}
		result, err := benchmark.NewBenchmarker().Run(batch, competitors)
		if err != nil {
			log.Warn("pipeline: benchmark failed", zap.Error(err))
			return
		}
		inputs.Benchmark = result
	}
}

// observeCompetitors asks the same questions about each competitor. A
// competitor arriving with a prefilled batch is used as-is; one whose
// observation fails is skipped.
func (p *Pipeline) observeCompetitors(ctx context.Context, competitors []benchmark.Competitor, sim *model.SimulationResult, log *zap.Logger) []benchmark.Competitor {
	out := make([]benchmark.Competitor, 0, len(competitors))
	for _, comp := range competitors {
		if comp.Batch == nil {
			requests := observation.BuildCompetitorRequests(sim, comp.Name, comp.Domain, p.cfg.Provider)
			batch, err := p.observer.Run(ctx, requests)
			if err != nil || batch.Failed {
				log.Warn("pipeline: competitor observation failed",
					zap.String("competitor", comp.Name),
					zap.Error(err),
				)
				continue
			}
			comp.Batch = batch
		}
		out = append(out, comp)
	}
	return out
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) {
	if err := p.store.UpdateRunStatus(ctx, runID, status, errMsg); err != nil {
		zap.L().Warn("pipeline: failed to update run status",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}
