package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/crm-assist/internal/cost"
	"github.com/sells-group/crm-assist/internal/policy"
	"github.com/sells-group/crm-assist/internal/provider"
	"github.com/sells-group/crm-assist/internal/resilience"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRM"

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig      `yaml:"store" mapstructure:"store"`
	Providers []ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Breaker   BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Assist    AssistConfig     `yaml:"assist" mapstructure:"assist"`
	Tasks     TasksConfig      `yaml:"tasks" mapstructure:"tasks"`
	Fallback  FallbackConfig   `yaml:"fallback" mapstructure:"fallback"`
	Server    ServerConfig     `yaml:"server" mapstructure:"server"`
	Log       LogConfig        `yaml:"log" mapstructure:"log"`
	Metrics   MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Pricing   []PricingConfig  `yaml:"pricing" mapstructure:"pricing"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ProviderConfig describes one generative backend.
type ProviderConfig struct {
	Name        string            `yaml:"name" mapstructure:"name"`
	Kind        string            `yaml:"kind" mapstructure:"kind"`
	Endpoint    string            `yaml:"endpoint" mapstructure:"endpoint"`
	Model       string            `yaml:"model" mapstructure:"model"`
	Key         string            `yaml:"key" mapstructure:"key"`
	Headers     map[string]string `yaml:"headers" mapstructure:"headers"`
	Priority    int               `yaml:"priority" mapstructure:"priority"`
	TimeoutSecs int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64           `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxTokens   int               `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PricingConfig overrides the token price of one model (USD per million
// tokens). Model names may contain dots, so pricing is a list, not a map.
type PricingConfig struct {
	Model  string  `yaml:"model" mapstructure:"model"`
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	Threshold    int `yaml:"threshold" mapstructure:"threshold"`
	CooldownSecs int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// AssistConfig configures the AI adapters.
type AssistConfig struct {
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
}

// TasksConfig configures the due-date window for generated tasks.
type TasksConfig struct {
	DueOffsetsDays []int  `yaml:"due_offsets_days" mapstructure:"due_offsets_days"`
	DefaultHour    int    `yaml:"default_hour" mapstructure:"default_hour"`
	DefaultMinute  int    `yaml:"default_minute" mapstructure:"default_minute"`
	Timezone       string `yaml:"timezone" mapstructure:"timezone"`
}

// FallbackConfig configures the deterministic fallback generator.
type FallbackConfig struct {
	TemplatesPath string `yaml:"templates_path" mapstructure:"templates_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

func defaultProviders() []map[string]any {
	return []map[string]any{
		{
			"name":     "groq",
			"kind":     "chat",
			"endpoint": "https://api.groq.com/openai/v1",
			"model":    "llama-3.3-70b-versatile",
			"priority": 1,
		},
		{
			"name":     "openrouter",
			"kind":     "chat",
			"endpoint": "https://openrouter.ai/api/v1",
			"model":    "meta-llama/llama-3.3-70b-instruct",
			"priority": 2,
			"headers": map[string]string{
				"HTTP-Referer": "https://github.com/sells-group/crm-assist",
				"X-Title":      "CRM Assist",
			},
		},
		{
			"name":     "openai",
			"kind":     "openai",
			"model":    "gpt-4o-mini",
			"priority": 3,
		},
		{
			"name":     "anthropic",
			"kind":     "anthropic",
			"model":    "claude-haiku-4-5-20251001",
			"priority": 4,
		},
	}
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crm-assist.db")
	v.SetDefault("providers", defaultProviders())
	v.SetDefault("breaker.threshold", 5)
	v.SetDefault("breaker.cooldown_secs", 30)
	v.SetDefault("assist.history_limit", 10)
	v.SetDefault("tasks.due_offsets_days", []int{1, 2})
	v.SetDefault("tasks.default_hour", 9)
	v.SetDefault("tasks.default_minute", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

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

	cfg.resolveProviderKeys(os.Getenv)
	return &cfg, nil
}

// ProviderKeyEnv returns the environment variable holding the credential for
// the named provider, e.g. CRM_PROVIDER_OPEN_ROUTER_KEY for "open-router".
func ProviderKeyEnv(name string) string {
	norm := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(strings.TrimSpace(name)))
	return EnvPrefix + "_PROVIDER_" + norm + "_KEY"
}

// resolveProviderKeys fills empty provider keys from the environment. A
// provider left without a key is disabled, not an error.
func (c *Config) resolveProviderKeys(getenv func(string) string) {
	for i := range c.Providers {
		if c.Providers[i].Key != "" {
			continue
		}
		c.Providers[i].Key = strings.TrimSpace(getenv(ProviderKeyEnv(c.Providers[i].Name)))
	}
}

// ProviderConfigs converts the provider section for provider.NewRegistry.
func (c *Config) ProviderConfigs() []provider.Config {
	out := make([]provider.Config, len(c.Providers))
	for i, p := range c.Providers {
		out[i] = provider.Config{
			Name:      p.Name,
			Kind:      provider.Kind(strings.ToLower(p.Kind)),
			Endpoint:  p.Endpoint,
			Model:     p.Model,
			APIKey:    p.Key,
			Headers:   p.Headers,
			Priority:  p.Priority,
			Timeout:   time.Duration(p.TimeoutSecs) * time.Second,
			RateLimit: p.RateLimit,
			MaxTokens: p.MaxTokens,
		}
	}
	return out
}

// BreakerConfig returns the circuit breaker settings.
func (c *Config) BreakerConfig() resilience.BreakerConfig {
	return resilience.NewBreakerConfig(c.Breaker.Threshold, c.Breaker.CooldownSecs)
}

// CostCalculator returns the spend estimator: built-in model prices with the
// pricing section applied on top.
func (c *Config) CostCalculator() *cost.Calculator {
	overrides := make(cost.Rates, len(c.Pricing))
	for _, p := range c.Pricing {
		if p.Model == "" {
			continue
		}
		overrides[p.Model] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	return cost.NewCalculator(cost.Merge(overrides))
}

// DueWindow returns the due-date policy. An unknown timezone falls back to
// the local zone.
func (c *Config) DueWindow() policy.DueWindow {
	loc := time.Local
	if tz := strings.TrimSpace(c.Tasks.Timezone); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			zap.L().Warn("config: unknown timezone, using local", zap.String("timezone", tz), zap.Error(err))
		}
	}
	return policy.NewDueWindow(c.Tasks.DueOffsetsDays, c.Tasks.DefaultHour, c.Tasks.DefaultMinute, loc)
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
