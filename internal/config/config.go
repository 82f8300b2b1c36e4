package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	LLM       LLMConfig
	Search    SearchConfig
	Sentiment SentimentConfig
	Logging   LoggingConfig

	// ParamPrefix selects AWS SSM Parameter Store as the secret source when set.
	ParamPrefix string
	// RulesPath overrides the location of the assessment rules document.
	RulesPath string
}

// HTTPConfig governs the local HTTP server.
type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// LLMConfig describes the chat completion service.
type LLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// SearchConfig describes the web search service.
type SearchConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SentimentConfig describes the sentiment classification service.
type SentimentConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8000
	defaultReadTimeout      = 30 * time.Second
	defaultWriteTimeout     = 15 * time.Minute
	defaultShutdownTimeout  = 10 * time.Second
	defaultMaxUploadBytes   = 10 << 20
	defaultLLMBaseURL       = "https://openrouter.ai/api/v1"
	defaultLLMModel         = "nvidia/llama-3.1-nemotron-70b-instruct:free"
	defaultLLMTimeout       = 60 * time.Second
	defaultSearchBaseURL    = "https://api.duckduckgo.com/"
	defaultSearchTimeout    = 10 * time.Second
	defaultSentimentBaseURL = "https://api-inference.huggingface.co"
	defaultSentimentModel   = "distilbert-base-uncased-finetuned-sst-2-english"
	defaultSentimentTimeout = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
)

// LoadDotEnv loads a .env file from the working directory if one exists.
// It reports whether a file was loaded.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			MaxUploadBytes:  int64(parseIntWithDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		},
		LLM: LLMConfig{
			BaseURL: valueOrDefault("LLM_BASE_URL", defaultLLMBaseURL),
			Model:   valueOrDefault("LLM_MODEL", defaultLLMModel),
			APIKey:  strings.TrimSpace(os.Getenv("LLM_API_KEY")),
		},
		Search: SearchConfig{
			BaseURL: valueOrDefault("SEARCH_BASE_URL", defaultSearchBaseURL),
		},
		Sentiment: SentimentConfig{
			BaseURL: valueOrDefault("SENTIMENT_BASE_URL", defaultSentimentBaseURL),
			Model:   valueOrDefault("SENTIMENT_MODEL", defaultSentimentModel),
			APIKey:  strings.TrimSpace(os.Getenv("SENTIMENT_API_KEY")),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		ParamPrefix: strings.TrimRight(strings.TrimSpace(os.Getenv("PARAM_PREFIX")), "/"),
		RulesPath:   strings.TrimSpace(os.Getenv("RULES_PATH")),
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"LLM_TIMEOUT", defaultLLMTimeout, &cfg.LLM.Timeout},
		{"SEARCH_TIMEOUT", defaultSearchTimeout, &cfg.Search.Timeout},
		{"SENTIMENT_TIMEOUT", defaultSentimentTimeout, &cfg.Sentiment.Timeout},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if cfg.ParamPrefix == "" && cfg.LLM.APIKey == "" {
		return Config{}, errors.New("either PARAM_PREFIX or LLM_API_KEY must be set")
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
