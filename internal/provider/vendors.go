package provider

import (
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Vendor is the static description of an OpenAI-compatible service. Every
// vendor is served by the same UnifiedProvider; only this record differs.
type Vendor struct {
	Name           string            `yaml:"name"`
	DisplayName    string            `yaml:"display_name"`
	BaseURL        string            `yaml:"base_url"`
	FlatContent    bool              `yaml:"flat_content"`
	SupportsSpeech bool              `yaml:"supports_speech"`
	KeyOptional    bool              `yaml:"key_optional"`
	Table          CapabilityTable   `yaml:"rules"`
	Fallback       []ModelDescriptor `yaml:"fallback"`
	SpeechModels   []ModelDescriptor `yaml:"speech_models"`
}

// RequiresKey reports whether the vendor needs an API key to be queried.
func (v Vendor) RequiresKey() bool { return !v.KeyOptional }

// FallbackModels returns a copy of the static model list with the provider
// field set to the vendor name.
func (v Vendor) FallbackModels() []ModelDescriptor {
	out := make([]ModelDescriptor, len(v.Fallback))
	for i, m := range v.Fallback {
		m.Provider = v.Name
		out[i] = m
	}
	return out
}

var openAISpeechModels = []ModelDescriptor{
	{ID: string(openai.TTSModel1), DisplayName: "TTS-1", Preferred: true},
	{ID: string(openai.TTSModel1HD), DisplayName: "TTS-1 HD"},
}

var builtinVendors = map[string]Vendor{
	"openai": {
		Name:           "openai",
		DisplayName:    "OpenAI",
		BaseURL:        "https://api.openai.com",
		SupportsSpeech: true,
		Table:          openAITable,
		SpeechModels:   openAISpeechModels,
		Fallback: []ModelDescriptor{
			{ID: "gpt-5", DisplayName: "GPT-5", ContextWindow: 1000000, KnowledgeCutoff: "6/2024", ImageSupport: true, Preferred: true},
			{ID: "gpt-4o", DisplayName: "GPT-4o", ContextWindow: 128000, KnowledgeCutoff: "10/2023", ImageSupport: true},
			{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", ContextWindow: 4096, KnowledgeCutoff: "9/2021"},
		},
	},
	"xai": {
		Name:        "xai",
		DisplayName: "xAI (Grok)",
		BaseURL:     "https://api.x.ai",
		Table:       xAITable,
		Fallback: []ModelDescriptor{
			{ID: "grok-4-0709", DisplayName: "Grok-4 (July 2024)", ContextWindow: 131072, KnowledgeCutoff: "6/2024", ImageSupport: true, Preferred: true},
			{ID: "grok-3", DisplayName: "Grok-3", ContextWindow: 131072, KnowledgeCutoff: "6/2024", ImageSupport: true, Preferred: true},
		},
	},
	"anthropic": {
		Name:        "anthropic",
		DisplayName: "Anthropic (Claude)",
		BaseURL:     "https://api.anthropic.com",
		Table:       anthropicTable,
		Fallback: []ModelDescriptor{
			{ID: "claude-3-5-sonnet-20241022", DisplayName: "Claude 3.5 Sonnet", ContextWindow: 200000, KnowledgeCutoff: "4/2024", ImageSupport: true, Preferred: true},
		},
	},
	"ollama": {
		Name:        "ollama",
		DisplayName: "Ollama (Local)",
		BaseURL:     "http://localhost:11434",
		FlatContent: true,
		KeyOptional: true,
		Table:       ollamaTable,
		Fallback: []ModelDescriptor{
			{ID: "llama3:8b", DisplayName: "Llama 3 8B", ContextWindow: 8192, KnowledgeCutoff: "4/2024", Preferred: true},
			{ID: "llama2:7b", DisplayName: "Llama 2 7B", ContextWindow: 4096, KnowledgeCutoff: "9/2023"},
		},
	},
	"together": {
		Name:        "together",
		DisplayName: "Together AI",
		BaseURL:     "https://api.together.xyz",
		FlatContent: true,
		Table:       togetherTable,
		Fallback: []ModelDescriptor{
			{ID: "meta-llama/Llama-3-70b-chat-hf", DisplayName: "Llama 3 70B Chat", ContextWindow: 8192, KnowledgeCutoff: "4/2024", Preferred: true},
			{ID: "mistralai/Mixtral-8x7B-Instruct-v0.1", DisplayName: "Mixtral 8x7B Instruct", ContextWindow: 32768, KnowledgeCutoff: "12/2023"},
		},
	},
	"gemini": {
		Name:        "gemini",
		DisplayName: "Google Gemini",
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai",
		Table:       geminiTable,
		Fallback: []ModelDescriptor{
			{ID: "gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro", ContextWindow: 2000000, KnowledgeCutoff: "4/2024", ImageSupport: true, Preferred: true},
			{ID: "gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash", ContextWindow: 1048576, KnowledgeCutoff: "4/2024", ImageSupport: true, Preferred: true},
			{ID: "gemini-pro", DisplayName: "Gemini Pro", ContextWindow: 30720, KnowledgeCutoff: "4/2024", ImageSupport: true},
		},
	},
	"deepseek": {
		Name:        "deepseek",
		DisplayName: "DeepSeek",
		BaseURL:     "https://api.deepseek.com",
		FlatContent: true,
		Table:       deepSeekTable,
		Fallback: []ModelDescriptor{
			{ID: "deepseek-r1", DisplayName: "DeepSeek R1", ContextWindow: 128000, KnowledgeCutoff: "6/2024", Preferred: true},
		},
	},
}

// BuiltinVendor returns the built-in record for name.
func BuiltinVendor(name string) (Vendor, bool) {
	v, ok := builtinVendors[name]
	return v, ok
}

// BuiltinVendors returns the built-in vendor records sorted by name.
func BuiltinVendors() []Vendor {
	out := make([]Vendor, 0, len(builtinVendors))
	for _, v := range builtinVendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NormalizeBaseURL returns the API root for a configured base URL. URLs that
// already end in "/v1" or "openai" are used as-is; others get "/v1" appended.
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") || strings.HasSuffix(baseURL, "openai") {
		return baseURL
	}
	return baseURL + "/v1"
}
