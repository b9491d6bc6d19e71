package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Dhanuzh/dchat/internal/chat"
	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/theme"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. DCHAT_SERVER_PORT.
	EnvPrefix = "DCHAT"
	// EnvConfig points at an explicit config file.
	EnvConfig = "DCHAT_CONFIG"
)

// Config holds all configuration for dchat.
type Config struct {
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string `mapstructure:"default_model" yaml:"default_model,omitempty"`

	// APIKey is the legacy single key. It configures openai when no
	// provider has been set up explicitly.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	Providers       map[string]ProviderSettings `mapstructure:"providers" yaml:"providers,omitempty"`
	VendorCatalog   string                      `mapstructure:"vendor_catalog" yaml:"vendor_catalog,omitempty"`
	CredentialsFile string                      `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`

	Chat    ChatConfig    `mapstructure:"chat" yaml:"chat"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Speech  SpeechConfig  `mapstructure:"speech" yaml:"speech,omitempty"`

	Theme     string `mapstructure:"theme" yaml:"theme,omitempty"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// file is the config file that was read, if any.
	file string
}

// ProviderSettings overrides connection details for one provider.
type ProviderSettings struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// ChatConfig holds the default generation settings.
type ChatConfig struct {
	Stream         bool          `mapstructure:"stream" yaml:"stream"`
	Temperature    *float64      `mapstructure:"temperature" yaml:"temperature,omitempty"`
	TopP           *float64      `mapstructure:"top_p" yaml:"top_p,omitempty"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	StreamCoalesce time.Duration `mapstructure:"stream_coalesce" yaml:"stream_coalesce"`
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	DSN        string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	BackendURL string `mapstructure:"backend_url" yaml:"backend_url,omitempty"`
}

// ServerConfig defines the REST backend settings.
type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins" yaml:"cors_origins,omitempty"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	BodyLimitMB    int64    `mapstructure:"body_limit_mb" yaml:"body_limit_mb"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SpeechConfig holds text-to-speech defaults.
type SpeechConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir,omitempty"`
	Model     string `mapstructure:"model" yaml:"model,omitempty"`
	Voice     string `mapstructure:"voice" yaml:"voice,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_provider", "openai")
	v.SetDefault("default_model", "")
	v.SetDefault("credentials_file", filepath.Join(GetConfigDir(), "credentials.json"))
	v.SetDefault("chat.stream", true)
	v.SetDefault("chat.stream_coalesce", "10ms")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", filepath.Join("data", "chat.db"))
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.body_limit_mb", 50)
	v.SetDefault("theme", theme.DefaultName)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration from defaults, the config file, a .env file in
// the working directory and DCHAT_* environment variables, in increasing
// precedence. An empty path searches ., ./.dchat and ~/.config/dchat for
// dchat.yaml.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dchat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(".dchat")
		v.AddConfigPath(GetConfigDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()
	return &cfg, nil
}

// File returns the config file that was loaded, or "".
func (c *Config) File() string { return c.file }

// GetConfigDir returns the dchat config directory.
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dchat"
	}
	return filepath.Join(home, ".config", "dchat")
}

// SaveConfig writes the config as YAML with owner-only permissions. An
// empty path writes dchat.yaml in the config directory.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		path = filepath.Join(GetConfigDir(), "dchat.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ProviderAPIKey resolves the key for a provider: config file first, then the
// vendor environment variables, then stored credentials.
func (c *Config) ProviderAPIKey(name string) string {
	if s, ok := c.Providers[name]; ok && s.APIKey != "" {
		return s.APIKey
	}
	if key := apiKeyFromEnv(name); key != "" {
		return key
	}
	if creds, err := LoadCredentials(c.CredentialsFile); err == nil {
		if key := creds.Keys[name]; key != "" {
			return key
		}
	}
	return ""
}

// ProviderConfigs returns a config for every provider in names that has
// an API key or an explicit entry under providers.
func (c *Config) ProviderConfigs(names []string) map[string]provider.Config {
	out := make(map[string]provider.Config)
	for _, name := range names {
		key := c.ProviderAPIKey(name)
		settings, explicit := c.Providers[name]
		if key == "" && !explicit {
			continue
		}
		out[name] = provider.Config{
			Name:      name,
			APIKey:    key,
			BaseURL:   settings.BaseURL,
			SpeechDir: c.Speech.OutputDir,
		}
	}
	if _, ok := out["openai"]; !ok && c.APIKey != "" && len(out) == 0 {
		out["openai"] = provider.Config{Name: "openai", APIKey: c.APIKey, SpeechDir: c.Speech.OutputDir}
	}
	return out
}

// ActiveProvider resolves the provider to use: the default provider when
// it is configured, else the legacy api_key as openai.
func (c *Config) ActiveProvider(names []string) (string, provider.Config, error) {
	configs := c.ProviderConfigs(names)
	if cfg, ok := configs[c.DefaultProvider]; ok {
		return c.DefaultProvider, cfg, nil
	}
	if c.APIKey != "" {
		return "openai", provider.Config{Name: "openai", APIKey: c.APIKey, SpeechDir: c.Speech.OutputDir}, nil
	}
	if len(configs) == 1 {
		for name, cfg := range configs {
			return name, cfg, nil
		}
	}

	configured := make([]string, 0, len(configs))
	for name := range configs {
		configured = append(configured, name)
	}
	sort.Strings(configured)
	msg := fmt.Sprintf("provider %q is not configured; set providers.%s.api_key", c.DefaultProvider, c.DefaultProvider)
	if vars := EnvVarsFor(c.DefaultProvider); len(vars) > 0 {
		msg += " or " + strings.Join(vars, " / ")
	}
	if len(configured) > 0 {
		msg += fmt.Sprintf(" (configured: %s)", strings.Join(configured, ", "))
	}
	return "", provider.Config{}, &provider.ConfigurationError{Message: msg}
}

// ResolveProvider instantiates the named provider from r, or the active
// provider when name is empty. Providers that need no key are created
// even without an entry under providers.
func (c *Config) ResolveProvider(r *provider.Registry, name string) (provider.Provider, error) {
	names := r.Names()
	if name == "" {
		active, cfg, err := c.ActiveProvider(names)
		if err != nil {
			return nil, err
		}
		return r.Create(active, cfg)
	}

	reg, ok := r.Registration(name)
	if !ok {
		return nil, &provider.UnknownProviderError{Name: name}
	}
	cfg, ok := c.ProviderConfigs(names)[name]
	if !ok {
		if !reg.KeyOptional {
			msg := fmt.Sprintf("provider %q is not configured", name)
			if vars := EnvVarsFor(name); len(vars) > 0 {
				msg += "; set " + strings.Join(vars, " / ")
			}
			return nil, &provider.ConfigurationError{Message: msg}
		}
		cfg = provider.Config{Name: name, SpeechDir: c.Speech.OutputDir}
	}
	return r.Create(name, cfg)
}

// ChatSettings returns the configured generation defaults.
func (c *Config) ChatSettings() chat.Settings {
	s := chat.Settings{
		Model:       c.DefaultModel,
		Stream:      c.Chat.Stream,
		Temperature: c.Chat.Temperature,
		TopP:        c.Chat.TopP,
	}
	if c.Chat.MaxTokens > 0 {
		n := c.Chat.MaxTokens
		s.MaxTokens = &n
	}
	return s
}
