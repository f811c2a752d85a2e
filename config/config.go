package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"node.town/triage/session"
	"node.town/triage/stt"
)

type Config struct {
	DeepgramAPIKey string `mapstructure:"deepgram_api_key"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`

	LLMProvider string `mapstructure:"llm_provider"`
	LLMModel    string `mapstructure:"llm_model"`

	DeepgramModel string `mapstructure:"deepgram_model"`
	Language      string `mapstructure:"language"`
	SampleRate    int    `mapstructure:"sample_rate"`

	HTTPPort int    `mapstructure:"http_port"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	DossierPath string `mapstructure:"dossier"`
	CatalogPath string `mapstructure:"protocols"`

	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	ReceiveTimeout     time.Duration `mapstructure:"keepalive_timeout"`
	KeepAliveInterval  time.Duration `mapstructure:"keepalive_interval"`
	SuggestionInterval time.Duration `mapstructure:"suggestion_interval"`
	DetachedWait       time.Duration `mapstructure:"summary_join_timeout"`
	MaxProbeFailures   int           `mapstructure:"max_probe_failures"`
	BufferCapacity     int           `mapstructure:"buffer_capacity"`
	BufferWindow       time.Duration `mapstructure:"buffer_window"`
}

var defaultModels = map[string]string{
	"openai": "gpt-4.1-nano",
	"gemini": "gemini-1.5-flash",
}

func SetDefaults(v *viper.Viper) {
	def := session.DefaultConfig()
	opts := stt.DefaultOptions()

	v.SetDefault("deepgram_api_key", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("llm_provider", "openai")
	v.SetDefault("llm_model", "")
	v.SetDefault("deepgram_model", opts.Model)
	v.SetDefault("language", opts.Language)
	v.SetDefault("sample_rate", opts.SampleRate)
	v.SetDefault("http_port", 5000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("dossier", "")
	v.SetDefault("protocols", "")
	v.SetDefault("connect_timeout", def.ConnectTimeout)
	v.SetDefault("keepalive_timeout", def.ReceiveTimeout)
	v.SetDefault("keepalive_interval", def.KeepAliveInterval)
	v.SetDefault("suggestion_interval", def.SuggestionInterval)
	v.SetDefault("summary_join_timeout", def.DetachedWait)
	v.SetDefault("max_probe_failures", def.MaxProbeFailures)
	v.SetDefault("buffer_capacity", def.BufferCapacity)
	v.SetDefault("buffer_window", def.BufferWindow)
}

// Load applies defaults, decodes v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if c.LLMModel == "" {
		c.LLMModel = defaultModels[c.LLMProvider]
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm_provider must be openai or gemini, got %q", c.LLMProvider))
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port out of range: %d", c.HTTPPort))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if c.BufferCapacity <= 0 {
		errs = append(errs, fmt.Errorf("buffer_capacity must be positive, got %d", c.BufferCapacity))
	}
	if c.MaxProbeFailures < 1 {
		errs = append(errs, fmt.Errorf("max_probe_failures must be at least 1, got %d", c.MaxProbeFailures))
	}
	for name, d := range map[string]time.Duration{
		"connect_timeout":   c.ConnectTimeout,
		"keepalive_timeout": c.ReceiveTimeout,
		"buffer_window":     c.BufferWindow,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) RequireDeepgram() error {
	if c.DeepgramAPIKey == "" {
		return errors.New("missing DEEPGRAM_API_KEY or --deepgram-api-key=")
	}
	return nil
}

func (c *Config) RequireLanguageModel() error {
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("missing GEMINI_API_KEY or --gemini-api-key=")
		}
	default:
		if c.OpenAIAPIKey == "" {
			return errors.New("missing OPENAI_API_KEY or --openai-api-key=")
		}
	}
	return nil
}

func (c *Config) Session() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = c.ConnectTimeout
	cfg.ReceiveTimeout = c.ReceiveTimeout
	cfg.KeepAliveInterval = c.KeepAliveInterval
	cfg.SuggestionInterval = c.SuggestionInterval
	cfg.DetachedWait = c.DetachedWait
	cfg.MaxProbeFailures = c.MaxProbeFailures
	cfg.BufferCapacity = c.BufferCapacity
	cfg.BufferWindow = c.BufferWindow
	return cfg
}

func (c *Config) Deepgram() stt.Options {
	opts := stt.DefaultOptions()
	opts.Model = c.DeepgramModel
	opts.Language = c.Language
	opts.SampleRate = c.SampleRate
	return opts
}
