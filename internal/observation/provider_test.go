package observation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/config"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/resilience"
	"github.com/sourcelens/audit-cli/pkg/openrouter"
)

func providerTestConfig() config.ProviderConfig {
	return config.ProviderConfig{
		Model:       "openai/gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   256,
	}
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider("mock", providerTestConfig())
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	res, err := p.Observe(context.Background(), model.ObservationRequest{
		QuestionID:  "q1",
		Question:    "What is Acme?",
		CompanyName: "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "q1", res.QuestionID)
	assert.NotEmpty(t, res.RawResponse)
}

func TestNewProvider_MissingKeys(t *testing.T) {
	for _, name := range []string{"openrouter", "openai", "anthropic"} {
		_, err := NewProvider(name, config.ProviderConfig{})
		require.Error(t, err, name)
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider("bedrock", providerTestConfig())
	require.Error(t, err)
}

func TestNewProvider_ConfiguredKeys(t *testing.T) {
	cfg := providerTestConfig()
	cfg.OpenRouterKey = "k1"
	cfg.OpenAIKey = "k2"
	cfg.AnthropicKey = "k3"

	for _, name := range []string{"openrouter", "openai", "anthropic"} {
		p, err := NewProvider(name, cfg)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestWrapProviderErr(t *testing.T) {
	assert.NoError(t, wrapProviderErr(nil, "openrouter"))

	rateLimited := wrapProviderErr(&openrouter.APIError{StatusCode: 429}, "openrouter")
	assert.True(t, resilience.IsRetryable(rateLimited))

	badRequest := wrapProviderErr(&openrouter.APIError{StatusCode: 400}, "openrouter")
	assert.False(t, resilience.IsRetryable(badRequest))

	plain := wrapProviderErr(errors.New("boom"), "openrouter")
	assert.False(t, resilience.IsRetryable(plain))
	assert.Error(t, plain)
}
