package observation

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sourcelens/audit-cli/internal/config"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/resilience"
)

// Options controls the observation runner.
type Options struct {
	Parallelism       int
	TimeoutSeconds    int
	MaxRetries        int
	RetryDelaySeconds int
	RequestsPerMinute int
}

// DefaultOptions returns the standard runner configuration.
func DefaultOptions() Options {
	return Options{
		Parallelism:       2,
		TimeoutSeconds:    30,
		MaxRetries:        3,
		RetryDelaySeconds: 1,
		RequestsPerMinute: 60,
	}
}

// OptionsFromConfig maps the provider and observation config sections onto
// runner options.
func OptionsFromConfig(provider config.ProviderConfig, obs config.ObservationConfig) Options {
	opts := DefaultOptions()
	if obs.Parallelism > 0 {
		opts.Parallelism = obs.Parallelism
	}
	if provider.TimeoutSeconds > 0 {
		opts.TimeoutSeconds = provider.TimeoutSeconds
	}
	if provider.MaxRetries > 0 {
		opts.MaxRetries = provider.MaxRetries
	}
	if provider.RetryDelaySeconds > 0 {
		opts.RetryDelaySeconds = provider.RetryDelaySeconds
	}
	if provider.RequestsPerMinute > 0 {
		opts.RequestsPerMinute = provider.RequestsPerMinute
	}
	return opts
}

// Runner executes observation batches against a primary provider with a
// fallback, honoring a per-minute rate limit.
type Runner struct {
	primary  Provider
	fallback Provider
	parser   *Parser
	opts     Options
	limiter  *rate.Limiter
	breakers *resilience.BreakerSet
}

// NewRunner creates a runner. fallback may be nil.
func NewRunner(primary, fallback Provider, opts Options) *Runner {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	return &Runner{
		primary:  primary,
		fallback: fallback,
		parser:   NewParser(),
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1),
		breakers: resilience.NewBreakerSet(resilience.DefaultBreakerConfig()),
	}
}

// BuildRequests turns a simulation result into one observation request per
// question, reusing the rendered question text.
func BuildRequests(sim *model.SimulationResult, domain string, provider config.ProviderConfig) []model.ObservationRequest {
	reqs := make([]model.ObservationRequest, 0, len(sim.Results))
	for _, qr := range sim.Results {
		reqs = append(reqs, model.ObservationRequest{
			QuestionID:  qr.Question.ID,
			Question:    qr.RenderedText,
			CompanyName: sim.CompanyName,
			Domain:      domain,
			Model:       provider.Model,
			Temperature: provider.Temperature,
			MaxTokens:   provider.MaxTokens,
		})
	}
	return reqs
}

// BuildCompetitorRequests renders the same question set against a competitor
// so benchmark batches stay comparable question for question.
func BuildCompetitorRequests(sim *model.SimulationResult, companyName, domain string, provider config.ProviderConfig) []model.ObservationRequest {
	reqs := make([]model.ObservationRequest, 0, len(sim.Results))
	for _, qr := range sim.Results {
		reqs = append(reqs, model.ObservationRequest{
			QuestionID:  qr.Question.ID,
			Question:    qr.Question.Render(companyName),
			CompanyName: companyName,
			Domain:      domain,
			Model:       provider.Model,
			Temperature: provider.Temperature,
			MaxTokens:   provider.MaxTokens,
		})
	}
	return reqs
}

// Run executes the batch. Cancellation is checked at each question boundary;
// on cancellation the partial batch is returned marked cancelled alongside
// model.ErrCancelled. The batch fails only when no request succeeded.
func (r *Runner) Run(ctx context.Context, requests []model.ObservationRequest) (*model.ObservationBatch, error) {
	if r.primary == nil {
		return nil, eris.New("observation: no primary provider")
	}
	if len(requests) == 0 {
		return nil, eris.New("observation: no requests")
	}

	start := time.Now()
	results := make([]*model.ObservationResult, len(requests))
	var mu sync.Mutex
	cancelled := false

	var g errgroup.Group
	g.SetLimit(r.opts.Parallelism)
	for i, req := range requests {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		g.Go(func() error {
			if err := r.limiter.Wait(ctx); err != nil {
				mu.Lock()
				cancelled = true
				mu.Unlock()
				return nil
			}
			res := r.observeOne(ctx, req)
			mu.Lock()
			results[i] = res
			if ctx.Err() != nil {
				cancelled = true
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	batch := &model.ObservationBatch{
		Provider: r.primary.Name(),
	}
	if len(requests) > 0 {
		batch.Model = requests[0].Model
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		batch.Results = append(batch.Results, *res)
		if !res.Failed {
			batch.Succeeded++
			batch.Model = res.Model
		}
	}
	batch.Failed = batch.Succeeded == 0
	batch.Cancelled = cancelled
	batch.DurationMs = time.Since(start).Milliseconds()

	if cancelled {
		return batch, model.ErrCancelled
	}
	return batch, nil
}

// observeOne calls the primary provider with retries, falling back to the
// secondary provider when the primary fails. A per-request failure yields a
// failed result, never an error.
func (r *Runner) observeOne(ctx context.Context, req model.ObservationRequest) *model.ObservationResult {
	start := time.Now()

	res, err := r.callProvider(ctx, r.primary, req)
	if err != nil && r.fallback != nil && ctx.Err() == nil {
		zap.L().Warn("primary provider failed, trying fallback",
			zap.String("question_id", req.QuestionID),
			zap.String("primary", r.primary.Name()),
			zap.String("fallback", r.fallback.Name()),
			zap.Error(err),
		)
		res, err = r.callProvider(ctx, r.fallback, req)
	}
	if err != nil {
		return &model.ObservationResult{
			QuestionID: req.QuestionID,
			Provider:   r.primary.Name(),
			Model:      req.Model,
			Failed:     true,
			Error:      err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	res.Parsed = r.parser.Parse(res.RawResponse, req.CompanyName, req.Domain)
	res.DurationMs = time.Since(start).Milliseconds()
	return res
}

func (r *Runner) callProvider(ctx context.Context, p Provider, req model.ObservationRequest) (*model.ObservationResult, error) {
	policy := resilience.Policy{
		Attempts:  r.opts.MaxRetries,
		BaseDelay: time.Duration(r.opts.RetryDelaySeconds) * time.Second,
		OnAttempt: resilience.LogAttempts(p.Name(), "observe"),
	}

	breaker := r.breakers.For(p.Name())
	return resilience.RetryVal(ctx, policy, func(ctx context.Context) (*model.ObservationResult, error) {
		callCtx := ctx
		if r.opts.TimeoutSeconds > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(r.opts.TimeoutSeconds)*time.Second)
			defer cancel()
		}
		return resilience.GuardVal(callCtx, breaker, func(ctx context.Context) (*model.ObservationResult, error) {
			return p.Observe(ctx, req)
		})
	})
}
