package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	CVM       CVMConfig       `yaml:"cvm" mapstructure:"cvm"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CVMConfig configures access to the CVM open-data portal and the local archive store.
type CVMConfig struct {
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	DataDir             string  `yaml:"data_dir" mapstructure:"data_dir"`
	ListingTimeoutSecs  int     `yaml:"listing_timeout_secs" mapstructure:"listing_timeout_secs"`
	DownloadTimeoutSecs int     `yaml:"download_timeout_secs" mapstructure:"download_timeout_secs"`
	UserAgent           string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries          int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit           float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LLMConfig selects the report provider.
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxPromptBytes int    `yaml:"max_prompt_bytes" mapstructure:"max_prompt_bytes"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Supported LLM providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Load reads configuration from a .env file, config file and environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CVM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// provider SDK variable names are accepted alongside the CVM_ ones
	_ = v.BindEnv("gemini.key", "CVM_GEMINI_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("anthropic.key", "CVM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")

	// Defaults
	v.SetDefault("cvm.base_url", "https://dados.cvm.gov.br/dados/")
	v.SetDefault("cvm.data_dir", "data/raw_cvm_files")
	v.SetDefault("cvm.listing_timeout_secs", 60)
	v.SetDefault("cvm.download_timeout_secs", 300)
	v.SetDefault("cvm.user_agent", "cvm-report/1.0")
	v.SetDefault("cvm.max_retries", 0)
	v.SetDefault("cvm.rate_limit", 5.0)
	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.max_prompt_bytes", 2_000_000)
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that the settings needed by mode are present.
// Modes: "serve", "report", "fetch". Serving does not require an LLM key;
// report endpoints fail at request time when the provider is unconfigured.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.CVM.ListingTimeoutSecs < 0 || c.CVM.DownloadTimeoutSecs < 0 {
		problems = append(problems, "cvm timeouts must be >= 0")
	}
	if c.CVM.MaxRetries != 0 {
		problems = append(problems, "cvm.max_retries must be 0; portal downloads are never retried")
	}
	if c.CVM.RateLimit < 0 {
		problems = append(problems, "cvm.rate_limit must be >= 0")
	}

	switch mode {
	case "fetch":
	case "report":
		problems = append(problems, c.validateLLM()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LLMConfigured reports whether the selected provider has a key.
func (c *Config) LLMConfigured() bool {
	return len(c.validateLLM()) == 0
}

func (c *Config) validateLLM() []string {
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.Gemini.Key == "" {
			return []string{"gemini.key is required when llm.provider is gemini"}
		}
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			return []string{"anthropic.key is required when llm.provider is anthropic"}
		}
	default:
		return []string{fmt.Sprintf("llm.provider must be %q or %q", ProviderGemini, ProviderAnthropic)}
	}
	return nil
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
