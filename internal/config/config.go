// Package config loads docbt runtime configuration from a TOML file and
// environment variables, exposing typed provider profiles and accessors.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/docbt/docbt/internal/llm"
)

const defaultProfile = "default"

// Config is the runtime configuration loaded from defaults, config.toml, and
// env vars.
type Config struct {
	// HomeDir is runtime-resolved from DOCBT_HOME and not read from config.
	HomeDir string                     `mapstructure:"-"`
	LLM     map[string]ProviderProfile `mapstructure:"llm"`
	Server  ServerConfig               `mapstructure:"server"`
	Logging LoggingConfig              `mapstructure:"logging"`
}

// ProviderProfile configures one chat provider profile.
type ProviderProfile struct {
	Provider             string        `mapstructure:"provider"`
	Model                string        `mapstructure:"model"`
	ServerURL            string        `mapstructure:"server_url"`
	APIKey               string        `mapstructure:"api_key"`
	SystemPrompt         string        `mapstructure:"system_prompt"`
	MaxTokens            int           `mapstructure:"max_tokens"`
	Temperature          *float64      `mapstructure:"temperature"`
	TopP                 *float64      `mapstructure:"top_p"`
	Stop                 string        `mapstructure:"stop"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	ReturnMetrics        bool          `mapstructure:"return_metrics"`
	ReturnChainOfThought bool          `mapstructure:"return_chain_of_thought"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

var defaultConfig = Config{
	LLM: map[string]ProviderProfile{
		defaultProfile: {
			Provider:       string(llm.ProviderLMStudio),
			Model:          "",
			ServerURL:      "http://localhost:1234",
			RequestTimeout: llm.DefaultTimeout,
		},
	},
	Server: ServerConfig{
		Listen: "127.0.0.1:8555",
	},
	Logging: LoggingConfig{
		Level: "info",
	},
}

// defaultUserConfig is the minimal bootstrap config written for first-time
// users. It intentionally contains only user-editable essentials.
var defaultUserConfig = Config{
	LLM: map[string]ProviderProfile{
		defaultProfile: {
			Provider:       string(llm.ProviderLMStudio),
			Model:          "",
			ServerURL:      "http://localhost:1234",
			APIKey:         "$OPENAI_API_KEY",
			RequestTimeout: llm.DefaultTimeout,
		},
	},
}

// homeDir returns the docbt home directory.
// Uses DOCBT_HOME env var if set, otherwise defaults to ~/.docbt.
func homeDir() (string, error) {
	if dir := os.Getenv("DOCBT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return defaultHomePath(home), nil
}

// Load merges hardcoded defaults and config file values in that order.
// Config is always at $DOCBT_HOME/config.toml.
func Load() (*Config, error) {
	homeDir, err := homeDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(homeConfigPath(homeDir))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HomeDir = homeDir

	return &cfg, nil
}

// Write writes the merged configuration (defaults overlaid by user config) to
// w in TOML format.
func Write(w io.Writer) error {
	if w == nil {
		return errors.New("writer is required")
	}

	homeDir, err := homeDir()
	if err != nil {
		return err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(homeConfigPath(homeDir))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	// Keep duration fields human-readable in generated TOML.
	v.Set("llm.default.request_timeout", v.GetDuration("llm.default.request_timeout").String())

	if err := v.WriteConfigTo(w); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultUserConfigTOML renders the minimal bootstrap user config as TOML.
func DefaultUserConfigTOML() (string, error) {
	v := viper.New()
	v.SetConfigType("toml")

	for profile, p := range defaultUserConfig.LLM {
		v.Set("llm."+profile+".provider", p.Provider)
		v.Set("llm."+profile+".model", p.Model)
		v.Set("llm."+profile+".server_url", p.ServerURL)
		v.Set("llm."+profile+".api_key", p.APIKey)
		v.Set("llm."+profile+".request_timeout", p.RequestTimeout.String())
	}

	var out bytes.Buffer
	if err := v.WriteConfigTo(&out); err != nil {
		return "", fmt.Errorf("write default user config: %w", err)
	}
	return out.String(), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.default.provider", defaultConfig.LLM[defaultProfile].Provider)
	v.SetDefault("llm.default.model", defaultConfig.LLM[defaultProfile].Model)
	v.SetDefault("llm.default.server_url", defaultConfig.LLM[defaultProfile].ServerURL)
	v.SetDefault("llm.default.request_timeout", defaultConfig.LLM[defaultProfile].RequestTimeout)

	v.SetDefault("server.listen", defaultConfig.Server.Listen)
	v.SetDefault("logging.level", defaultConfig.Logging.Level)
}

// DefaultLLM returns the default provider profile with fallback defaults.
func (c *Config) DefaultLLM() ProviderProfile {
	if p, ok := c.LLM[defaultProfile]; ok {
		return p
	}
	return defaultConfig.LLM[defaultProfile]
}

// Profile returns the named provider profile, falling back to the default
// profile when name is empty or unknown.
func (c *Config) Profile(name string) ProviderProfile {
	if name != "" {
		if p, ok := c.LLM[name]; ok {
			return p
		}
	}
	return c.DefaultLLM()
}

// ChatRequest builds an llm.ChatRequest for one message from this profile.
func (p ProviderProfile) ChatRequest(message string, history []llm.HistoryTurn) llm.ChatRequest {
	req := llm.ChatRequest{
		Provider:             llm.Provider(p.Provider),
		Model:                p.Model,
		Message:              message,
		SystemPrompt:         p.SystemPrompt,
		History:              history,
		ServerURL:            p.ServerURL,
		APIKey:               p.APIKey,
		Temperature:          p.Temperature,
		TopP:                 p.TopP,
		Stop:                 llm.ParseStopSequences(p.Stop),
		ReturnMetrics:        p.ReturnMetrics,
		ReturnChainOfThought: p.ReturnChainOfThought,
		Timeout:              p.RequestTimeout,
	}
	if p.MaxTokens > 0 {
		maxTokens := p.MaxTokens
		req.MaxTokens = &maxTokens
	}
	return req
}

// Validate checks required provider profile fields and provider-specific
// rules.
func (p ProviderProfile) Validate() error {
	provider := llm.Provider(p.Provider)
	if !provider.Valid() {
		return fmt.Errorf("unsupported provider %q (allowed: %q, %q, %q)",
			p.Provider, llm.ProviderLMStudio, llm.ProviderOllama, llm.ProviderOpenAI)
	}
	if p.Model == "" {
		return errors.New("model is required")
	}
	if p.RequestTimeout <= 0 {
		return errors.New("request_timeout must be > 0")
	}

	switch provider {
	case llm.ProviderLMStudio, llm.ProviderOllama:
		if p.ServerURL == "" {
			return errors.New("server_url is required")
		}
	case llm.ProviderOpenAI:
		if p.APIKey == "" {
			return errors.New("api_key is required")
		}
	}
	return nil
}

// Validate checks the server listen address.
func (c ServerConfig) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	return nil
}

// Validate validates startup configuration and returns the first fatal error.
func (cfg *Config) Validate() error {
	var errs []error

	if len(cfg.LLM) == 0 {
		errs = append(errs, errors.New("at least one llm.* profile is required"))
	}

	if err := cfg.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	for name, profile := range cfg.LLM {
		if err := profile.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("llm.%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func expandEnvStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		value, ok := data.(string)
		if !ok {
			return data, nil
		}
		return os.ExpandEnv(value), nil
	}
}
