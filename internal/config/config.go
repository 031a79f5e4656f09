// Package config loads process-wide configuration for ragpilot from an env
// file plus environment variable overrides, the way internal/ai-service's
// LoadAIConfig does for the teacher's AI provider settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// RouterConfig tunes the Query Router.
type RouterConfig struct {
	ComplexityThreshold    int
	DecompositionThreshold int
	HydeThreshold          int
	FastPathMaxLatencyMs   int
}

// CacheConfig tunes the Cache and which sub-pipelines use it.
type CacheConfig struct {
	Enabled               bool
	MaxSize               int
	DefaultTTLSeconds     int
	CacheRoutes           bool
	CacheHyDE             bool
	CacheDecompositions   bool
	CacheSearchResults    bool
}

// EnhancerConfig tunes the Query Enhancer.
type EnhancerConfig struct {
	MaxAlternatives int
	MaxRelated      int
	Temperature     float64
}

// DecomposerConfig tunes the Query Decomposer.
type DecomposerConfig struct {
	MaxSubQueries int
	Temperature   float64
}

// TemporalThresholds maps named temporal-scope tiers to age limits.
type TemporalThresholds struct {
	LastMessageSeconds int
	RecentSeconds      int
	SessionSeconds     int
}

// RetrieverConfig tunes the Hybrid Retriever.
type RetrieverConfig struct {
	BM25K1             float64
	BM25B              float64
	BM25Weight         float64
	DenseWeight        float64
	MaxResultsPerQuery int
	TemporalThresholds TemporalThresholds
}

// ValidatorConfig tunes the RAG Validator.
type ValidatorConfig struct {
	DefaultMinScore        float64
	MaxParallelValidations int
	Temperature            float64
}

// ContextWindowConfig tunes the Context Window Manager.
type ContextWindowConfig struct {
	MaxContextTokens int
	MinResponseTokens int
	CharsPerToken    int
}

// PromptBuilderConfig tunes the Prompt Builder.
type PromptBuilderConfig struct {
	IncludeCitations  bool
	MaxCitationLength int
	CharsPerToken     int
}

// GraderWeights weighs the three axes of a Quality Grader score.
type GraderWeights struct {
	Relevance    float64
	Completeness float64
	Clarity      float64
}

// GraderConfig tunes the Quality Grader.
type GraderConfig struct {
	Temperature float64
	Weights     GraderWeights
}

// ToolPlannerConfig tunes the Tool Planner.
type ToolPlannerConfig struct {
	MaxSteps    int
	Temperature float64
}

// ServerConfig tunes the thin HTTP + WebSocket front end.
type ServerConfig struct {
	Port                 string
	CompletionTemperature float64
	CompletionMaxTokens   int
}

// Config is the full process-wide configuration for the orchestration engine.
type Config struct {
	LLMModel       string
	EmbeddingModel string

	Router       RouterConfig
	Cache        CacheConfig
	Enhancer     EnhancerConfig
	Decomposer   DecomposerConfig
	Retriever    RetrieverConfig
	Validator    ValidatorConfig
	ContextWindow ContextWindowConfig
	PromptBuilder PromptBuilderConfig
	Grader       GraderConfig
	ToolPlanner  ToolPlannerConfig
	Server       ServerConfig
}

// Default returns the configuration defaults named throughout the
// component design (fusion weights summing to 1, 0.15 minimum validation
// score, etc.).
func Default() *Config {
	return &Config{
		LLMModel:       "gpt-4-turbo-preview",
		EmbeddingModel: "nomic-embed-text-v1.5",
		Router: RouterConfig{
			ComplexityThreshold:    7,
			DecompositionThreshold: 6,
			HydeThreshold:          5,
			FastPathMaxLatencyMs:   1500,
		},
		Cache: CacheConfig{
			Enabled:             true,
			MaxSize:             1000,
			DefaultTTLSeconds:   300,
			CacheRoutes:         true,
			CacheHyDE:           true,
			CacheDecompositions: true,
			CacheSearchResults:  false,
		},
		Enhancer: EnhancerConfig{
			MaxAlternatives: 3,
			MaxRelated:      2,
			Temperature:     0.7,
		},
		Decomposer: DecomposerConfig{
			MaxSubQueries: 5,
			Temperature:   0.3,
		},
		Retriever: RetrieverConfig{
			BM25K1:             1.5,
			BM25B:              0.75,
			BM25Weight:         0.4,
			DenseWeight:        0.6,
			MaxResultsPerQuery: 30,
			TemporalThresholds: TemporalThresholds{
				LastMessageSeconds: 5 * 60,
				RecentSeconds:      60 * 60,
				SessionSeconds:     24 * 60 * 60,
			},
		},
		Validator: ValidatorConfig{
			DefaultMinScore:        0.15,
			MaxParallelValidations: 5,
			Temperature:            0.1,
		},
		ContextWindow: ContextWindowConfig{
			MaxContextTokens:  8192,
			MinResponseTokens: 1024,
			CharsPerToken:     4,
		},
		PromptBuilder: PromptBuilderConfig{
			IncludeCitations:  true,
			MaxCitationLength: 280,
			CharsPerToken:     4,
		},
		Grader: GraderConfig{
			Temperature: 0.0,
			Weights: GraderWeights{
				Relevance:    0.4,
				Completeness: 0.3,
				Clarity:      0.3,
			},
		},
		ToolPlanner: ToolPlannerConfig{
			MaxSteps:    5,
			Temperature: 0.2,
		},
		Server: ServerConfig{
			Port:                  "8080",
			CompletionTemperature: 0.3,
			CompletionMaxTokens:   1024,
		},
	}
}

// Load reads config from an env file (if non-empty) and overlays environment
// variables on top of Default(). Unlike LoadAIConfig, every field has a
// usable default, so Load never fails on missing variables. It fails when the
// env file cannot be loaded, on malformed numeric values (reported rather than
// silently ignored), and when the result fails Validate. A malformed boolean
// keeps its default.
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFilePath, err)
		}
	}

	cfg := Default()

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}

	if err := overlayInt(&cfg.Router.ComplexityThreshold, "ROUTER_COMPLEXITY_THRESHOLD"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Router.DecompositionThreshold, "ROUTER_DECOMPOSITION_THRESHOLD"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Router.HydeThreshold, "ROUTER_HYDE_THRESHOLD"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Router.FastPathMaxLatencyMs, "ROUTER_FAST_PATH_MAX_LATENCY_MS"); err != nil {
		return nil, err
	}

	cfg.Cache.Enabled = overlayBool(cfg.Cache.Enabled, "CACHE_ENABLED")
	if err := overlayInt(&cfg.Cache.MaxSize, "CACHE_MAX_SIZE"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Cache.DefaultTTLSeconds, "CACHE_DEFAULT_TTL_SECONDS"); err != nil {
		return nil, err
	}
	cfg.Cache.CacheRoutes = overlayBool(cfg.Cache.CacheRoutes, "CACHE_ROUTES")
	cfg.Cache.CacheHyDE = overlayBool(cfg.Cache.CacheHyDE, "CACHE_HYDE")
	cfg.Cache.CacheDecompositions = overlayBool(cfg.Cache.CacheDecompositions, "CACHE_DECOMPOSITIONS")
	cfg.Cache.CacheSearchResults = overlayBool(cfg.Cache.CacheSearchResults, "CACHE_SEARCH_RESULTS")

	if err := overlayInt(&cfg.Enhancer.MaxAlternatives, "ENHANCER_MAX_ALTERNATIVES"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Enhancer.MaxRelated, "ENHANCER_MAX_RELATED"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Enhancer.Temperature, "ENHANCER_TEMPERATURE"); err != nil {
		return nil, err
	}

	if err := overlayInt(&cfg.Decomposer.MaxSubQueries, "DECOMPOSER_MAX_SUB_QUERIES"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Decomposer.Temperature, "DECOMPOSER_TEMPERATURE"); err != nil {
		return nil, err
	}

	if err := overlayFloat(&cfg.Retriever.BM25K1, "RETRIEVER_BM25_K1"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Retriever.BM25B, "RETRIEVER_BM25_B"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Retriever.BM25Weight, "RETRIEVER_BM25_WEIGHT"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Retriever.DenseWeight, "RETRIEVER_DENSE_WEIGHT"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Retriever.MaxResultsPerQuery, "RETRIEVER_MAX_RESULTS_PER_QUERY"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Retriever.TemporalThresholds.LastMessageSeconds, "RETRIEVER_TEMPORAL_LAST_MESSAGE_SECONDS"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Retriever.TemporalThresholds.RecentSeconds, "RETRIEVER_TEMPORAL_RECENT_SECONDS"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Retriever.TemporalThresholds.SessionSeconds, "RETRIEVER_TEMPORAL_SESSION_SECONDS"); err != nil {
		return nil, err
	}

	if err := overlayFloat(&cfg.Validator.DefaultMinScore, "VALIDATOR_DEFAULT_MIN_SCORE"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Validator.MaxParallelValidations, "VALIDATOR_MAX_PARALLEL_VALIDATIONS"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Validator.Temperature, "VALIDATOR_TEMPERATURE"); err != nil {
		return nil, err
	}

	if err := overlayInt(&cfg.ContextWindow.MaxContextTokens, "CONTEXT_MAX_TOKENS"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.ContextWindow.MinResponseTokens, "CONTEXT_MIN_RESPONSE_TOKENS"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.ContextWindow.CharsPerToken, "CONTEXT_CHARS_PER_TOKEN"); err != nil {
		return nil, err
	}

	cfg.PromptBuilder.IncludeCitations = overlayBool(cfg.PromptBuilder.IncludeCitations, "PROMPT_INCLUDE_CITATIONS")
	if err := overlayInt(&cfg.PromptBuilder.MaxCitationLength, "PROMPT_MAX_CITATION_LENGTH"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.PromptBuilder.CharsPerToken, "PROMPT_CHARS_PER_TOKEN"); err != nil {
		return nil, err
	}

	if err := overlayFloat(&cfg.Grader.Temperature, "GRADER_TEMPERATURE"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Grader.Weights.Relevance, "GRADER_WEIGHT_RELEVANCE"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Grader.Weights.Completeness, "GRADER_WEIGHT_COMPLETENESS"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.Grader.Weights.Clarity, "GRADER_WEIGHT_CLARITY"); err != nil {
		return nil, err
	}

	if err := overlayInt(&cfg.ToolPlanner.MaxSteps, "TOOL_PLANNER_MAX_STEPS"); err != nil {
		return nil, err
	}
	if err := overlayFloat(&cfg.ToolPlanner.Temperature, "TOOL_PLANNER_TEMPERATURE"); err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if err := overlayFloat(&cfg.Server.CompletionTemperature, "SERVER_COMPLETION_TEMPERATURE"); err != nil {
		return nil, err
	}
	if err := overlayInt(&cfg.Server.CompletionMaxTokens, "SERVER_COMPLETION_MAX_TOKENS"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the pipeline relies on (fusion weights summing
// to 1, positive batch sizes) the way AIConfig.Validate checks provider
// configuration.
func (c *Config) Validate() error {
	if sum := c.Retriever.DenseWeight + c.Retriever.BM25Weight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("retriever dense_weight + bm25_weight must equal 1.0, got %f", sum)
	}
	if c.Validator.MaxParallelValidations <= 0 {
		return fmt.Errorf("validator max parallel validations must be positive")
	}
	if c.ContextWindow.CharsPerToken <= 0 {
		return fmt.Errorf("context window chars per token must be positive")
	}
	return nil
}

func overlayBool(current bool, key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return current
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return current
	}
	return b
}

func overlayInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func overlayFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid float for %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
