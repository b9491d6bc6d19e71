package config

import (
	"fmt"
	"strings"

	"github.com/Dhanuzh/dchat/internal/theme"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

var (
	storageDrivers = []string{"sqlite", "postgres", "memory", "remote"}
	logLevels      = []string{"debug", "info", "warn", "warning", "error"}
	logFormats     = []string{"text", "json"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.DefaultProvider == "" {
		add("default_provider", "must be specified")
	}

	if t := c.Chat.Temperature; t != nil && (*t < 0 || *t > 2) {
		add("chat.temperature", "must be between 0 and 2")
	}
	if p := c.Chat.TopP; p != nil && (*p < 0 || *p > 1) {
		add("chat.top_p", "must be between 0 and 1")
	}
	if c.Chat.MaxTokens < 0 {
		add("chat.max_tokens", "must not be negative")
	}
	if c.Chat.StreamCoalesce < 0 {
		add("chat.stream_coalesce", "must not be negative")
	}

	switch {
	case !oneOf(c.Storage.Driver, storageDrivers):
		add("storage.driver", "unknown driver '%s', valid: %s", c.Storage.Driver, strings.Join(storageDrivers, ", "))
	case c.Storage.Driver == "postgres" && c.Storage.DSN == "":
		add("storage.dsn", "required for the postgres driver")
	case c.Storage.Driver == "remote" && c.Storage.BackendURL == "":
		add("storage.backend_url", "required for the remote driver")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535")
	}
	if c.Server.RateLimitRPS < 0 {
		add("server.rate_limit_rps", "must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		add("server.rate_limit_burst", "must be positive when rate limiting is enabled")
	}
	if c.Server.BodyLimitMB <= 0 {
		add("server.body_limit_mb", "must be positive")
	}

	if c.Theme != "" {
		if _, err := theme.Get(c.Theme); err != nil {
			add("theme", "unknown theme '%s', valid: %s", c.Theme, strings.Join(theme.Names(), ", "))
		}
	}

	if !oneOf(strings.ToLower(c.LogLevel), logLevels) {
		add("log_level", "unknown level '%s'", c.LogLevel)
	}
	if !oneOf(strings.ToLower(c.LogFormat), logFormats) {
		add("log_format", "must be text or json")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// GetConfigPrecedence returns a description of config source precedence
func GetConfigPrecedence() string {
	return `Configuration is loaded in the following order (later sources override earlier):

1. Built-in defaults
2. Config file (--config, $DCHAT_CONFIG, ./dchat.yaml, ./.dchat/dchat.yaml or ~/.config/dchat/dchat.yaml)
3. .env file in the working directory
4. DCHAT_* environment variables (DCHAT_SERVER_PORT, DCHAT_STORAGE_DRIVER, ...)
5. Command-line flags (--provider, --model, ...)

Provider API keys are resolved per provider from providers.<name>.api_key,
then the vendor variable (OPENAI_API_KEY, XAI_API_KEY, ...), then keys stored
with "dchat login".
`
}
