package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Catalog     CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	Simulation  SimulationConfig  `yaml:"simulation" mapstructure:"simulation"`
	Fixes       FixesConfig       `yaml:"fixes" mapstructure:"fixes"`
	Impact      ImpactConfig      `yaml:"impact" mapstructure:"impact"`
	Provider    ProviderConfig    `yaml:"provider" mapstructure:"provider"`
	Observation ObservationConfig `yaml:"observation" mapstructure:"observation"`
	Report      ReportConfig      `yaml:"report" mapstructure:"report"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// CatalogConfig configures question derivation.
type CatalogConfig struct {
	MaxQuestions        int `yaml:"max_questions" mapstructure:"max_questions"`
	MinKeywordFrequency int `yaml:"min_keyword_frequency" mapstructure:"min_keyword_frequency"`
}

// SimulationConfig configures the simulation runner.
type SimulationConfig struct {
	ChunksPerQuestion            int     `yaml:"chunks_per_question" mapstructure:"chunks_per_question"`
	MinRelevanceScore            float64 `yaml:"min_relevance_score" mapstructure:"min_relevance_score"`
	FullyAnswerableThreshold     float64 `yaml:"fully_answerable_threshold" mapstructure:"fully_answerable_threshold"`
	PartiallyAnswerableThreshold float64 `yaml:"partially_answerable_threshold" mapstructure:"partially_answerable_threshold"`
	SignalMatchThreshold         float64 `yaml:"signal_match_threshold" mapstructure:"signal_match_threshold"`
	UseFuzzyMatching             bool    `yaml:"use_fuzzy_matching" mapstructure:"use_fuzzy_matching"`
	MaxContentLength             int     `yaml:"max_content_length" mapstructure:"max_content_length"`
	RelevanceWeight              float64 `yaml:"relevance_weight" mapstructure:"relevance_weight"`
	SignalWeight                 float64 `yaml:"signal_weight" mapstructure:"signal_weight"`
	ConfidenceWeight             float64 `yaml:"confidence_weight" mapstructure:"confidence_weight"`
}

// FixesConfig configures the fix generator.
type FixesConfig struct {
	LowScoreThreshold    float64 `yaml:"low_score_threshold" mapstructure:"low_score_threshold"`
	PartialThreshold     float64 `yaml:"partial_threshold" mapstructure:"partial_threshold"`
	MaxFixes             int     `yaml:"max_fixes" mapstructure:"max_fixes"`
	MaxFixesPerCategory  int     `yaml:"max_fixes_per_category" mapstructure:"max_fixes_per_category"`
	IncludeExamples      bool    `yaml:"include_examples" mapstructure:"include_examples"`
	ExtractSiteContent   bool    `yaml:"extract_site_content" mapstructure:"extract_site_content"`
	MaxExtractedSnippets int     `yaml:"max_extracted_snippets" mapstructure:"max_extracted_snippets"`
}

// ImpactConfig configures the impact estimators.
type ImpactConfig struct {
	MaxTotalImpact     float64 `yaml:"max_total_impact" mapstructure:"max_total_impact"`
	BaseRelevanceBoost float64 `yaml:"base_relevance_boost" mapstructure:"base_relevance_boost"`
	MaxRelevanceScore  float64 `yaml:"max_relevance_score" mapstructure:"max_relevance_score"`
	SignalConfidence   float64 `yaml:"signal_confidence" mapstructure:"signal_confidence"`
	TierBTopFixes      int     `yaml:"tier_b_top_fixes" mapstructure:"tier_b_top_fixes"`
}

// ProviderConfig configures AI provider access.
type ProviderConfig struct {
	Primary           string  `yaml:"primary" mapstructure:"primary"`
	Fallback          string  `yaml:"fallback" mapstructure:"fallback"`
	Model             string  `yaml:"model" mapstructure:"model"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySeconds int     `yaml:"retry_delay_seconds" mapstructure:"retry_delay_seconds"`
	RequestsPerMinute int     `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	OpenRouterKey     string  `yaml:"openrouter_key" mapstructure:"openrouter_key"`
	OpenAIKey         string  `yaml:"openai_key" mapstructure:"openai_key"`
	AnthropicKey      string  `yaml:"anthropic_key" mapstructure:"anthropic_key"`
}

// ObservationConfig configures the observation stage.
type ObservationConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	Parallelism int  `yaml:"parallelism" mapstructure:"parallelism"`
}

// ReportConfig configures report assembly.
type ReportConfig struct {
	IncludeObservation   bool    `yaml:"include_observation" mapstructure:"include_observation"`
	IncludeBenchmark     bool    `yaml:"include_benchmark" mapstructure:"include_benchmark"`
	DivergenceLow        float64 `yaml:"divergence_low" mapstructure:"divergence_low"`
	DivergenceMedium     float64 `yaml:"divergence_medium" mapstructure:"divergence_medium"`
	DivergenceHigh       float64 `yaml:"divergence_high" mapstructure:"divergence_high"`
	RefreshOnLowAccuracy float64 `yaml:"refresh_on_low_accuracy" mapstructure:"refresh_on_low_accuracy"`
}

// ServerConfig configures the question service HTTP server.
type ServerConfig struct {
	Port      int    `yaml:"port" mapstructure:"port"`
	AuthToken string `yaml:"auth_token" mapstructure:"auth_token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SOURCELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "audit.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("catalog.max_questions", 5)
	v.SetDefault("catalog.min_keyword_frequency", 3)
	v.SetDefault("simulation.chunks_per_question", 5)
	v.SetDefault("simulation.min_relevance_score", 0.3)
	v.SetDefault("simulation.fully_answerable_threshold", 0.7)
	v.SetDefault("simulation.partially_answerable_threshold", 0.3)
	v.SetDefault("simulation.signal_match_threshold", 0.5)
	v.SetDefault("simulation.use_fuzzy_matching", true)
	v.SetDefault("simulation.max_content_length", 2000)
	v.SetDefault("simulation.relevance_weight", 0.4)
	v.SetDefault("simulation.signal_weight", 0.4)
	v.SetDefault("simulation.confidence_weight", 0.2)
	v.SetDefault("fixes.low_score_threshold", 0.5)
	v.SetDefault("fixes.partial_threshold", 0.7)
	v.SetDefault("fixes.max_fixes", 10)
	v.SetDefault("fixes.max_fixes_per_category", 3)
	v.SetDefault("fixes.include_examples", true)
	v.SetDefault("fixes.extract_site_content", true)
	v.SetDefault("fixes.max_extracted_snippets", 3)
	v.SetDefault("impact.max_total_impact", 30.0)
	v.SetDefault("impact.base_relevance_boost", 0.3)
	v.SetDefault("impact.max_relevance_score", 0.95)
	v.SetDefault("impact.signal_confidence", 0.9)
	v.SetDefault("impact.tier_b_top_fixes", 5)
	v.SetDefault("provider.primary", "openrouter")
	v.SetDefault("provider.fallback", "openai")
	v.SetDefault("provider.model", "openai/gpt-4o-mini")
	v.SetDefault("provider.temperature", 0.3)
	v.SetDefault("provider.max_tokens", 1024)
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.retry_delay_seconds", 1)
	v.SetDefault("provider.requests_per_minute", 60)
	v.SetDefault("observation.enabled", true)
	v.SetDefault("observation.parallelism", 2)
	v.SetDefault("report.include_observation", true)
	v.SetDefault("report.include_benchmark", true)
	v.SetDefault("report.divergence_low", 0.1)
	v.SetDefault("report.divergence_medium", 0.2)
	v.SetDefault("report.divergence_high", 0.35)
	v.SetDefault("report.refresh_on_low_accuracy", 0.5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
