// Package config loads the YAML configuration shared by the CLI and the HTTP server.
//
// Values may reference the environment:
//
//	model:
//	  provider: openai
//	  name: ${OPENAI_MODEL:-gpt-4o}
//	  api_key_env: OPENAI_API_KEY
//	search:
//	  api_key_env: ${TAVILY_KEY_NAME:?set the name of the tavily key}
//
// Load applies defaults first, so a file only needs the fields it changes.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickchristie/agentloops"
)

var (
	// ErrNotFound is returned when the configuration file does not exist.
	ErrNotFound = errors.New("config file not found")

	// ErrInvalidFormat is returned when the file is not valid YAML or has unknown fields.
	ErrInvalidFormat = errors.New("invalid config format")

	// ErrMissingEnvVar is returned when a ${VAR:?message} reference is unset.
	ErrMissingEnvVar = errors.New("missing environment variable")

	// ErrInvalid is returned when validation fails.
	ErrInvalid = errors.New("invalid config")
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the root configuration object.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Model   ModelConfig   `yaml:"model"`
	Retry   RetryConfig   `yaml:"retry"`
	Search  SearchConfig  `yaml:"search"`
	React   ReactConfig   `yaml:"react"`
	Essay   EssayConfig   `yaml:"essay"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Secrets SecretsConfig `yaml:"secrets"`
}

// LogConfig configures the loggers package.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error. LOG_LEVEL overrides it.
	Level string `yaml:"level"`

	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// ModelConfig selects and configures the language model.
type ModelConfig struct {
	// Provider is one of openai, anthropic, ollama, bedrock, github.
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`

	// APIKeyEnv names the environment variable or secret holding the API key. Bedrock uses the
	// AWS credential chain and ignores it.
	APIKeyEnv string `yaml:"api_key_env"`

	// Region is the AWS region for bedrock.
	Region string `yaml:"region"`

	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond enables client-side rate limiting when positive.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	Params agentloops.InferenceParams `yaml:"params"`
}

// RetryConfig configures retries around model and search calls. MaxAttempts of 1 disables
// retries.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
}

// SearchConfig configures the Tavily retriever.
type SearchConfig struct {
	APIKeyEnv   string        `yaml:"api_key_env"`
	BaseURL     string        `yaml:"base_url"`
	SearchDepth string        `yaml:"search_depth"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ReactConfig configures the ReAct agent.
type ReactConfig struct {
	TurnLimit    int    `yaml:"turn_limit"`
	Instructions string `yaml:"instructions"`
}

// EssayConfig configures the essay writer.
type EssayConfig struct {
	MaxRevisions            int      `yaml:"max_revisions"`
	RevisionNumber          int      `yaml:"revision_number"`
	MaxQueries              int      `yaml:"max_queries"`
	MaxResults              int      `yaml:"max_results"`
	StructuredOutputRetries int      `yaml:"structured_output_retries"`
	InterruptAfter          []string `yaml:"interrupt_after"`

	// StepLimit bounds node executions per invocation. Zero is unlimited.
	StepLimit int `yaml:"step_limit"`
}

// StoreConfig selects where workflow checkpoints live.
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis checkpointer and run lock.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SecretsConfig configures AWS Secrets Manager lookups for API keys.
type SecretsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
}

// Default returns the shipped configuration. Unlike the library defaults, it retries transport
// failures and malformed query payloads once.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Model: ModelConfig{
			Provider:  agentloops.ProviderOpenAI,
			Name:      agentloops.ModelOpenAIGPT4o,
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   60 * time.Second,
			Params:    agentloops.DefaultInferenceParams(),
		},
		Retry: RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2,
			Jitter:       true,
		},
		Search: SearchConfig{
			APIKeyEnv:   "TAVILY_API_KEY",
			SearchDepth: "basic",
			Timeout:     30 * time.Second,
		},
		React: ReactConfig{TurnLimit: 5},
		Essay: EssayConfig{
			MaxRevisions:            2,
			RevisionNumber:          1,
			MaxQueries:              3,
			MaxResults:              2,
			StructuredOutputRetries: 1,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "agentloops",
				TTL:       7 * 24 * time.Hour,
				LockTTL:   5 * time.Minute,
			},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Secrets: SecretsConfig{Region: "us-east-1"},
	}
}

// Validate reports every invalid field, joined into one error wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		add("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		add("log.format: must be json or console, got %q", c.Log.Format)
	}

	switch c.Model.Provider {
	case agentloops.ProviderOpenAI, agentloops.ProviderAnthropic, agentloops.ProviderOllama,
		agentloops.ProviderGitHub:
	case agentloops.ProviderBedrock:
		if c.Model.Region == "" {
			add("model.region: required for bedrock")
		}
	default:
		add("model.provider: unknown provider %q", c.Model.Provider)
	}
	if c.Model.Name == "" {
		add("model.name: required")
	}
	if c.Model.Timeout < 0 {
		add("model.timeout: must not be negative")
	}
	if c.Model.RequestsPerSecond < 0 {
		add("model.requests_per_second: must not be negative")
	}
	if c.Model.Params.TopK < 0 || c.Model.Params.MaxOutputTokens < 0 {
		add("model.params: top_k and max_output_tokens must not be negative")
	}

	if c.Retry.MaxAttempts < 1 {
		add("retry.max_attempts: must be at least 1")
	}
	if c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		add("retry.multiplier: must be at least 1")
	}

	if c.React.TurnLimit < 1 {
		add("react.turn_limit: must be at least 1")
	}

	if c.Essay.MaxRevisions < 0 {
		add("essay.max_revisions: must not be negative")
	}
	if c.Essay.RevisionNumber < 0 {
		add("essay.revision_number: must not be negative")
	}
	if c.Essay.MaxQueries < 1 {
		add("essay.max_queries: must be at least 1")
	}
	if c.Essay.MaxResults < 1 {
		add("essay.max_results: must be at least 1")
	}
	if c.Essay.StructuredOutputRetries < 0 {
		add("essay.structured_output_retries: must not be negative")
	}
	if c.Essay.StepLimit < 0 {
		add("essay.step_limit: must not be negative")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			add("store.redis.addr: required for the redis backend")
		}
	default:
		add("store.backend: must be memory or redis, got %q", c.Store.Backend)
	}

	if c.Secrets.Enabled && c.Secrets.Region == "" {
		add("secrets.region: required when secrets are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
