// Package config loads textlens settings from viper, the environment and credentials files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved startup configuration.
type Config struct {
	Logging  LoggingConfig
	Session  SessionConfig
	Watson   WatsonConfig
	Google   GoogleConfig
	LLM      LLMConfig
	Analysis AnalysisConfig
	Budget   BudgetConfig
	Server   ServerConfig
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// SessionConfig selects where session state lives.
type SessionConfig struct {
	Backend string
	Path    string
	// Secret seals stored API keys. Empty stores them in plaintext.
	Secret string
}

// WatsonConfig holds IBM Watson NLU settings.
type WatsonConfig struct {
	APIKey          string
	URL             string
	Region          string
	InstanceID      string
	AuthType        string
	ProxyURL        string
	CredentialsFile string
	Timeout         time.Duration
}

// GoogleConfig holds Google Cloud Natural Language settings.
type GoogleConfig struct {
	APIKey   string
	Endpoint string
}

// LLMConfig holds optimizer model settings.
type LLMConfig struct {
	Provider          string
	Model             string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	AnthropicAPIKey   string
	AnthropicBaseURL  string
	Timeout           time.Duration
	Temperature       float64
	RequestsPerMinute int
}

// AnalysisConfig tunes the analysis orchestrator.
type AnalysisConfig struct {
	DefaultProvider string
	DefaultLanguage string
	ToneLanguages   []string
	CacheTTL        time.Duration
	Concurrency     int
}

// BudgetConfig holds the starting budget for providers without a saved one.
// OpenAI and Anthropic fall back to Default when budget.openai or budget.anthropic is unset.
type BudgetConfig struct {
	Default   float64
	OpenAI    float64
	Anthropic float64
}

// Providers returns the starting budget of every LLM provider.
func (b BudgetConfig) Providers() map[model.Provider]float64 {
	return map[model.Provider]float64{
		model.ProviderOpenAI:    b.OpenAI,
		model.ProviderAnthropic: b.Anthropic,
	}
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr    string
	CertDir string
	TLS     bool
}

// EnvPrefix prefixes the environment variable of every configuration key.
const EnvPrefix = "TEXTLENS"

// Configure registers defaults on v and binds TEXTLENS_* variables
// (logging.level is read from TEXTLENS_LOGGING_LEVEL).
func Configure(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("session.path", "~/.config/textlens/session.db")

	v.SetDefault("watson.auth_type", "iam")
	v.SetDefault("watson.credentials_file", "ibm-credentials.env")
	v.SetDefault("watson.timeout", 30*time.Second)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.requests_per_minute", 20)

	v.SetDefault("analysis.default_provider", "watson")
	v.SetDefault("analysis.default_language", "en")
	v.SetDefault("analysis.tone_languages", []string{"en", "fr"})
	v.SetDefault("analysis.cache_ttl", 15*time.Minute)
	v.SetDefault("analysis.concurrency", 4)

	v.SetDefault("budget.default", 10.00)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", "~/.config/textlens/certs")
}

// Load resolves the configuration from v. Values in v win; provider
// environment variables and the IBM credentials file fill what is left.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Session: SessionConfig{
			Backend: v.GetString("session.backend"),
			Path:    ExpandPath(v.GetString("session.path")),
			Secret:  v.GetString("session.secret"),
		},
		Watson: WatsonConfig{
			APIKey:          v.GetString("watson.api_key"),
			URL:             v.GetString("watson.url"),
			Region:          v.GetString("watson.region"),
			InstanceID:      v.GetString("watson.instance_id"),
			AuthType:        v.GetString("watson.auth_type"),
			ProxyURL:        v.GetString("watson.proxy_url"),
			CredentialsFile: ExpandPath(v.GetString("watson.credentials_file")),
			Timeout:         v.GetDuration("watson.timeout"),
		},
		Google: GoogleConfig{
			APIKey:   v.GetString("google.api_key"),
			Endpoint: v.GetString("google.endpoint"),
		},
		LLM: LLMConfig{
			Provider:          v.GetString("llm.provider"),
			Model:             v.GetString("llm.model"),
			OpenAIAPIKey:      v.GetString("llm.openai_api_key"),
			OpenAIBaseURL:     v.GetString("llm.openai_base_url"),
			AnthropicAPIKey:   v.GetString("llm.anthropic_api_key"),
			AnthropicBaseURL:  v.GetString("llm.anthropic_base_url"),
			Timeout:           v.GetDuration("llm.timeout"),
			Temperature:       v.GetFloat64("llm.temperature"),
			RequestsPerMinute: v.GetInt("llm.requests_per_minute"),
		},
		Analysis: AnalysisConfig{
			DefaultProvider: v.GetString("analysis.default_provider"),
			DefaultLanguage: v.GetString("analysis.default_language"),
			ToneLanguages:   v.GetStringSlice("analysis.tone_languages"),
			CacheTTL:        v.GetDuration("analysis.cache_ttl"),
			Concurrency:     v.GetInt("analysis.concurrency"),
		},
		Budget: BudgetConfig{
			Default:   v.GetFloat64("budget.default"),
			OpenAI:    budgetFor(v, "budget.openai"),
			Anthropic: budgetFor(v, "budget.anthropic"),
		},
		Server: ServerConfig{
			Addr:    v.GetString("server.addr"),
			TLS:     v.GetBool("server.tls"),
			CertDir: ExpandPath(v.GetString("server.cert_dir")),
		},
	}

	applyEnvFallbacks(cfg)

	if err := applyIBMCredentials(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvFallbacks fills unset values from the variables each provider's own tooling uses.
func applyEnvFallbacks(cfg *Config) {
	fallback(&cfg.Watson.APIKey, "WATSON_API_KEY")
	fallback(&cfg.Watson.URL, "WATSON_URL")
	fallback(&cfg.Watson.Region, "WATSON_REGION")
	fallback(&cfg.Watson.InstanceID, "WATSON_INSTANCE_ID")
	fallback(&cfg.Google.APIKey, "GOOGLE_API_KEY")
	fallback(&cfg.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	fallback(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	fallback(&cfg.Session.Secret, "TEXTLENS_SECRET")
}

func fallback(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// IBM credentials files name the Watson NLU values with this prefix.
const ibmPrefix = "NATURAL_LANGUAGE_UNDERSTANDING_"

// applyIBMCredentials reads the downloaded IBM service credentials file, if present.
func applyIBMCredentials(cfg *Config) error {
	path := cfg.Watson.CredentialsFile
	if path == "" {
		return nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read IBM credentials file %s: %w", path, err)
	}

	if cfg.Watson.APIKey == "" {
		cfg.Watson.APIKey = values[ibmPrefix+"APIKEY"]
	}
	if cfg.Watson.URL == "" {
		cfg.Watson.URL = values[ibmPrefix+"URL"]
	}
	if authType := values[ibmPrefix+"AUTH_TYPE"]; authType != "" && cfg.Watson.AuthType == "iam" {
		cfg.Watson.AuthType = authType
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped and existing variables are kept.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		p = ExpandPath(p)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}

	switch c.Analysis.DefaultProvider {
	case "watson", "google":
	default:
		return fmt.Errorf("%w: analysis provider %q", common.ErrUnsupportedProvider, c.Analysis.DefaultProvider)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("%w: llm provider %q", common.ErrUnsupportedProvider, c.LLM.Provider)
	}

	for key, amount := range map[string]float64{
		"budget.default":   c.Budget.Default,
		"budget.openai":    c.Budget.OpenAI,
		"budget.anthropic": c.Budget.Anthropic,
	} {
		if amount < 0 {
			return fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, key)
		}
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return fmt.Errorf("%w: llm.requests_per_minute must be positive", common.ErrInvalidConfig)
	}
	if c.Analysis.Concurrency <= 0 {
		return fmt.Errorf("%w: analysis.concurrency must be positive", common.ErrInvalidConfig)
	}
	return nil
}

func budgetFor(v *viper.Viper, key string) float64 {
	if v.IsSet(key) {
		return v.GetFloat64(key)
	}
	return v.GetFloat64("budget.default")
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
