package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/term"
)

// envKeyVars lists the environment variables checked for each provider's
// API key, in priority order.
var envKeyVars = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"xai":       {"XAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"deepseek":  {"DEEPSEEK_API_KEY"},
	"together":  {"TOGETHER_API_KEY", "TOGETHERAI_API_KEY"},
	"ollama":    {"OLLAMA_API_KEY"},
}

// EnvVarsFor returns the environment variables consulted for a provider.
// Providers outside the built-in table use <NAME>_API_KEY.
func EnvVarsFor(name string) []string {
	if vars, ok := envKeyVars[name]; ok {
		return vars
	}
	if name == "" {
		return nil
	}
	return []string{strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name)) + "_API_KEY"}
}

func apiKeyFromEnv(name string) string {
	for _, v := range EnvVarsFor(name) {
		if key := os.Getenv(v); key != "" {
			return key
		}
	}
	return ""
}

// Credentials stores API keys entered through `dchat login`.
type Credentials struct {
	Keys map[string]string `json:"keys"`
}

// LoadCredentials reads the credentials file. A missing file yields empty
// credentials.
func LoadCredentials(path string) (*Credentials, error) {
	creds := &Credentials{Keys: map[string]string{}}
	if path == "" {
		return creds, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("invalid credentials file %s: %w", path, err)
	}
	if creds.Keys == nil {
		creds.Keys = map[string]string{}
	}
	return creds, nil
}

// SaveCredentials writes the credentials file with owner-only permissions.
func SaveCredentials(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// StoredProviders returns the providers with a stored key, sorted.
func (c *Credentials) StoredProviders() []string {
	names := make([]string, 0, len(c.Keys))
	for name, key := range c.Keys {
		if key != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SetProviderKey stores apiKey for a provider. An empty key removes it.
func (c *Config) SetProviderKey(name, apiKey string) error {
	creds, err := LoadCredentials(c.CredentialsFile)
	if err != nil {
		return err
	}
	if apiKey == "" {
		delete(creds.Keys, name)
	} else {
		creds.Keys[name] = apiKey
	}
	return SaveCredentials(c.CredentialsFile, creds)
}

// ReadSecret reads a line without echo when in is a terminal.
func ReadSecret(prompt string, in *os.File, out io.Writer) (string, error) {
	fmt.Fprint(out, prompt)
	if term.IsTerminal(int(in.Fd())) {
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	var line string
	if _, err := fmt.Fscanln(in, &line); err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
