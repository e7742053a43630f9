package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
	AI        AIConfig        `envconfig:"AI"`
	Pricing   PricingConfig   `envconfig:"PRICING"`
	Knowledge KnowledgeConfig `envconfig:"KNOWLEDGE"`
	Logging   LoggingConfig   `envconfig:"LOGGING"`
}

// ServerConfig represents HTTP server parameters
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"3000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxBodyBytes    int64         `envconfig:"SERVER_MAX_BODY_BYTES" default:"1048576"`
	MaxMessageChars int           `envconfig:"SERVER_MAX_MESSAGE_CHARS" default:"4000"`
	// Empty means any origin is reflected back.
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

// RateLimitConfig represents per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" default:"2"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

// AIConfig represents chat completion provider configuration
type AIConfig struct {
	APIKey        string        `envconfig:"OPENAI_API_KEY" required:"false"`
	BaseURL       string        `envconfig:"OPENAI_BASE_URL" required:"false"`
	Model         string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Temperature   float32       `envconfig:"OPENAI_TEMPERATURE" default:"0.3"`
	MaxTokens     int           `envconfig:"OPENAI_MAX_TOKENS" default:"800"`
	MaxToolRounds int           `envconfig:"AI_MAX_TOOL_ROUNDS" default:"4"`
	Timeout       time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	// PromptsDir optionally overrides the built-in prompt templates.
	PromptsDir string `envconfig:"PROMPTS_DIR" default:""`
}

// PricingConfig represents price oracle parameters
type PricingConfig struct {
	TTL             time.Duration `envconfig:"PRICE_CACHE_TTL" default:"5m"`
	Timeout         time.Duration `envconfig:"PRICE_FETCH_TIMEOUT" default:"10s"`
	RefreshInterval time.Duration `envconfig:"PRICE_REFRESH_INTERVAL" default:"5m"`
	SwapAmount      int64         `envconfig:"PRICE_SWAP_AMOUNT" default:"1000000"`
	ScalingFactor   float64       `envconfig:"PRICE_SCALING_FACTOR" default:"1000000000"`
	FeedURL         string        `envconfig:"PRICE_FEED_URL" default:"https://api.raydium.io/v2/main/price"`
	QuoteURL        string        `envconfig:"PRICE_QUOTE_URL" default:"https://quote-api.jup.ag/v6/quote"`
	BaseSymbol      string        `envconfig:"PRICE_BASE_SYMBOL" default:"SOL"`
	BaseMint        string        `envconfig:"PRICE_BASE_MINT" default:"So11111111111111111111111111111111111111112"`
	// Tokens are SYMBOL:MINT pairs priced against the base symbol.
	Tokens []string `envconfig:"PRICE_TOKENS" default:"FATCAT:AHdVQs56QpEEkRx6m8yiYYEiqM2sKjQxVd6mGH12pump"`
	// Featured tokens get a dedicated get_<symbol>_price tool.
	Featured []string `envconfig:"PRICE_FEATURED" default:"FATCAT"`
}

// KnowledgeConfig represents local document settings
type KnowledgeConfig struct {
	DocsDir       string `envconfig:"DOCS_DIR" default:"docs2"`
	ContextBudget int    `envconfig:"KNOWLEDGE_CONTEXT_CHARS" default:"12000"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
	// MetricsFlushInterval is how often usage metrics summaries are logged.
	MetricsFlushInterval time.Duration `envconfig:"METRICS_FLUSH_INTERVAL" default:"1m"`
}

// Load reads configuration from an optional .env file and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	if c.Server.MaxMessageChars <= 0 {
		return fmt.Errorf("max_message_chars must be positive")
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit_rps must be positive")
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1")
	}

	if c.AI.MaxToolRounds < 1 {
		return fmt.Errorf("max_tool_rounds must be at least 1")
	}

	if c.Pricing.TTL <= 0 {
		return fmt.Errorf("price_cache_ttl must be positive")
	}
	if c.Pricing.Timeout <= 0 {
		return fmt.Errorf("price_fetch_timeout must be positive")
	}
	if c.Pricing.RefreshInterval <= 0 {
		return fmt.Errorf("price_refresh_interval must be positive")
	}
	if c.Pricing.SwapAmount <= 0 {
		return fmt.Errorf("price_swap_amount must be positive")
	}
	if c.Pricing.ScalingFactor <= 0 {
		return fmt.Errorf("price_scaling_factor must be positive")
	}
	if c.Pricing.BaseSymbol == "" || c.Pricing.BaseMint == "" {
		return fmt.Errorf("base symbol and mint are required")
	}
	for _, pair := range c.Pricing.Tokens {
		symbol, mint, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(symbol) == "" || strings.TrimSpace(mint) == "" {
			return fmt.Errorf("invalid token %q, expected SYMBOL:MINT", pair)
		}
	}

	if c.Knowledge.ContextBudget <= 0 {
		return fmt.Errorf("knowledge_context_chars must be positive")
	}

	return nil
}

// ChatEnabled returns true when a chat completion provider is configured
func (c *AIConfig) ChatEnabled() bool {
	return c.APIKey != ""
}
