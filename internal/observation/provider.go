// Package observation asks live AI providers the audit questions and
// analyzes the responses for company mentions and citations.
package observation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sourcelens/audit-cli/internal/config"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/resilience"
	"github.com/sourcelens/audit-cli/pkg/anthropic"
	"github.com/sourcelens/audit-cli/pkg/openai"
	"github.com/sourcelens/audit-cli/pkg/openrouter"
)

// Provider is one AI backend the observation stage can query.
type Provider interface {
	// Name identifies the provider in results and logs.
	Name() string
	// Observe sends one question and returns the raw response and usage.
	// The returned result is unparsed.
	Observe(ctx context.Context, req model.ObservationRequest) (*model.ObservationResult, error)
	// HealthCheck verifies the provider is reachable and configured.
	HealthCheck(ctx context.Context) error
}

// NewProvider builds a provider by name from the provider config.
func NewProvider(name string, cfg config.ProviderConfig) (Provider, error) {
	switch strings.ToLower(name) {
	case "openrouter":
		if cfg.OpenRouterKey == "" {
			return nil, eris.New("observation: openrouter key not configured")
		}
		return &openRouterProvider{client: openrouter.NewClient(cfg.OpenRouterKey)}, nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, eris.New("observation: openai key not configured")
		}
		return &openAIProvider{client: openai.NewClient(cfg.OpenAIKey)}, nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, eris.New("observation: anthropic key not configured")
		}
		return &anthropicProvider{client: anthropic.NewClient(cfg.AnthropicKey)}, nil
	case "mock":
		return &MockProvider{}, nil
	default:
		return nil, eris.Errorf("observation: unknown provider %q", name)
	}
}

// questionPrompt phrases the audit question the way an end user would ask
// an assistant, with no hints about the company's website.
func questionPrompt(req model.ObservationRequest) string {
	return req.Question
}

// wrapProviderErr marks retryable HTTP failures so the retry and breaker
// layers treat them correctly. 429 is retryable.
func wrapProviderErr(err error, provider string) error {
	if err == nil {
		return nil
	}
	var status int
	var orErr *openrouter.APIError
	var oaErr *openai.APIError
	switch {
	case errors.As(err, &orErr):
		status = orErr.StatusCode
	case errors.As(err, &oaErr):
		status = oaErr.StatusCode
	}
	if status != 0 && resilience.RetryableStatus(status) {
		return resilience.MarkRetryable(eris.Wrap(err, fmt.Sprintf("observation: %s call", provider)), status)
	}
	return eris.Wrap(err, fmt.Sprintf("observation: %s call", provider))
}

type openRouterProvider struct {
	client openrouter.Client
}

func (p *openRouterProvider) Name() string { return "openrouter" }

func (p *openRouterProvider) Observe(ctx context.Context, req model.ObservationRequest) (*model.ObservationResult, error) {
	temp := req.Temperature
	maxTokens := req.MaxTokens
	resp, err := p.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    []openrouter.Message{{Role: "user", Content: questionPrompt(req)}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, wrapProviderErr(err, p.Name())
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("observation: openrouter returned no choices")
	}
	return &model.ObservationResult{
		QuestionID:  req.QuestionID,
		Provider:    p.Name(),
		Model:       resp.Model,
		RawResponse: resp.Choices[0].Message.Content,
		Usage: model.ObservationUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (p *openRouterProvider) HealthCheck(ctx context.Context) error {
	one := 1
	_, err := p.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Messages:  []openrouter.Message{{Role: "user", Content: "ping"}},
		MaxTokens: &one,
	})
	return wrapProviderErr(err, p.Name())
}

type openAIProvider struct {
	client openai.Client
}

func (p *openAIProvider) Name() string { return "openai" }

func (p *openAIProvider) Observe(ctx context.Context, req model.ObservationRequest) (*model.ObservationResult, error) {
	temp := req.Temperature
	maxTokens := req.MaxTokens
	// OpenRouter model ids carry a vendor prefix that OpenAI does not accept.
	mdl := req.Model
	if i := strings.IndexByte(mdl, '/'); i >= 0 {
		mdl = mdl[i+1:]
	}
	resp, err := p.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       mdl,
		Messages:    []openai.Message{{Role: "user", Content: questionPrompt(req)}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, wrapProviderErr(err, p.Name())
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("observation: openai returned no choices")
	}
	return &model.ObservationResult{
		QuestionID:  req.QuestionID,
		Provider:    p.Name(),
		Model:       resp.Model,
		RawResponse: resp.Choices[0].Message.Content,
		Usage: model.ObservationUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (p *openAIProvider) HealthCheck(ctx context.Context) error {
	one := 1
	_, err := p.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages:  []openai.Message{{Role: "user", Content: "ping"}},
		MaxTokens: &one,
	})
	return wrapProviderErr(err, p.Name())
}

type anthropicProvider struct {
	client anthropic.Client
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Observe(ctx context.Context, req model.ObservationRequest) (*model.ObservationResult, error) {
	temp := req.Temperature
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   int64(req.MaxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: questionPrompt(req)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, wrapProviderErr(err, p.Name())
	}
	return &model.ObservationResult{
		QuestionID:  req.QuestionID,
		Provider:    p.Name(),
		Model:       resp.Model,
		RawResponse: resp.Text,
		Usage: model.ObservationUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

func (p *anthropicProvider) HealthCheck(ctx context.Context) error {
	_, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		MaxTokens: 1,
		Messages:  []anthropic.Message{{Role: "user", Content: "ping"}},
	})
	return wrapProviderErr(err, p.Name())
}

// MockProvider returns canned responses. It exists for offline runs and
// tests.
type MockProvider struct {
	// Respond overrides the canned response when set.
	Respond func(req model.ObservationRequest) (string, error)
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Observe(ctx context.Context, req model.ObservationRequest) (*model.ObservationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := fmt.Sprintf("%s is a company. I don't have detailed information about it.", req.CompanyName)
	if p.Respond != nil {
		var err error
		raw, err = p.Respond(req)
		if err != nil {
			return nil, err
		}
	}
	return &model.ObservationResult{
		QuestionID:  req.QuestionID,
		Provider:    p.Name(),
		Model:       "mock",
		RawResponse: raw,
	}, nil
}

func (p *MockProvider) HealthCheck(ctx context.Context) error { return ctx.Err() }
