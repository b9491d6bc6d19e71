package provider

import "testing"

func TestInferContextWindow(t *testing.T) {
	tests := []struct {
		vendor string
		model  string
		want   int
	}{
		{"openai", "gpt-5", 1000000},
		{"openai", "gpt-4.1-mini", 1000000},
		{"openai", "gpt-4o", 128000},
		{"openai", "gpt-4-turbo", 128000},
		{"openai", "gpt-4-32k", 32768},
		{"openai", "gpt-4", 8192},
		{"openai", "gpt-3.5-turbo-16k", 16385},
		{"openai", "gpt-3.5-turbo", 4096},
		{"openai", "o1-preview", 128000},
		{"openai", "text-embedding-3-small", 4096},
		{"xai", "grok-4-0709", 131072},
		{"xai", "anything", 131072},
		{"anthropic", "claude-3-5-sonnet-20241022", 200000},
		{"anthropic", "claude-3-opus", 200000},
		{"anthropic", "claude-2.1", 100000},
		{"deepseek", "deepseek-r1", 128000},
		{"deepseek", "deepseek-v3", 128000},
		{"deepseek", "deepseek-chat", 32000},
		{"gemini", "gemini-1.5-pro", 2000000},
		{"gemini", "gemini-1.5-flash", 1048576},
		{"gemini", "gemini-pro", 30720},
		{"gemini", "gemini-ultra", 8192},
		{"together", "mistralai/mixtral-8x22b", 65536},
		{"together", "mistralai/mixtral-8x7b", 32768},
		{"together", "meta-llama/llama-3-70b", 8192},
		{"together", "Qwen/qwen2-72b", 32768},
		{"together", "other", 4096},
		{"ollama", "llama3:70b", 8192},
		{"ollama", "llama2:13b", 4096},
		{"ollama", "mixtral:8x7b", 32768},
		{"ollama", "phi3", 4096},
		{"unknown", "some-model", 4096},
	}

	for _, tt := range tests {
		t.Run(tt.vendor+"/"+tt.model, func(t *testing.T) {
			got := Infer(tt.vendor, tt.model).ContextWindow
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestInferKnowledgeCutoff(t *testing.T) {
	tests := []struct {
		vendor string
		model  string
		want   string
	}{
		{"openai", "gpt-5", "6/2024"},
		{"openai", "o3-mini", "6/2024"},
		{"openai", "gpt-4.1", "6/2024"},
		{"openai", "gpt-4o", "10/2023"},
		{"openai", "gpt-4-turbo", "12/2023"},
		{"openai", "gpt-4-1106-preview", "4/2023"},
		{"openai", "gpt-4", "9/2021"},
		{"openai", "gpt-3.5-turbo", "9/2021"},
		{"openai", "whisper-1", "10/2023"},
		{"xai", "grok-4", "6/2024"},
		{"xai", "grok-2-1212", "12/2024"},
		{"xai", "grok-beta", "10/2023"},
		{"anthropic", "claude-3-5-haiku", "4/2024"},
		{"anthropic", "claude-3-haiku", "8/2023"},
		{"anthropic", "claude-instant", "9/2021"},
		{"gemini", "gemini-1.5-pro", "4/2024"},
		{"together", "model-2024", "4/2024"},
		{"together", "model-2023", "9/2023"},
		{"together", "llama-3-8b", "4/2024"},
		{"together", "mixtral-8x7b", "12/2023"},
		{"together", "other", "9/2023"},
		{"ollama", "llama3:8b", "4/2024"},
		{"ollama", "llama2:7b", "9/2023"},
		{"ollama", "phi3", "9/2023"},
		{"deepseek", "deepseek-r1", "10/2023"},
		{"unknown", "x", "10/2023"},
	}

	for _, tt := range tests {
		t.Run(tt.vendor+"/"+tt.model, func(t *testing.T) {
			got := Infer(tt.vendor, tt.model).KnowledgeCutoff
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestInferFlags(t *testing.T) {
	tests := []struct {
		vendor     string
		model      string
		image      bool
		preferred  bool
		deprecated bool
	}{
		{"openai", "gpt-4o", true, true, false},
		{"openai", "gpt-3.5-turbo", false, false, false},
		{"openai", "gpt-3.5-turbo-instruct", false, false, true},
		{"openai", "gpt-4-32k", false, false, true},
		{"openai", "o1-preview-2024-09-12", false, false, true},
		{"xai", "grok-3", true, true, false},
		{"xai", "grok-3-mini", true, false, false},
		{"xai", "grok-2-vision-1212", true, false, false},
		{"anthropic", "claude-3-5-sonnet-20241022", true, true, false},
		{"anthropic", "claude-2.1", false, false, false},
		{"deepseek", "deepseek-v3", false, true, false},
		{"gemini", "gemini-1.5-flash", true, true, false},
		{"gemini", "text-embedding-004", false, false, false},
		{"together", "LLaVA-Next-34b", true, false, false},
		{"together", "Qwen/qwen2-72b-instruct", false, true, false},
		{"ollama", "bakllava", true, false, false},
		{"ollama", "llama3:70b", false, true, false},
		{"unknown", "gpt-4o", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.vendor+"/"+tt.model, func(t *testing.T) {
			d := Infer(tt.vendor, tt.model)
			if d.ImageSupport != tt.image {
				t.Errorf("ImageSupport: expected %v, got %v", tt.image, d.ImageSupport)
			}
			if d.Preferred != tt.preferred {
				t.Errorf("Preferred: expected %v, got %v", tt.preferred, d.Preferred)
			}
			if d.Deprecated != tt.deprecated {
				t.Errorf("Deprecated: expected %v, got %v", tt.deprecated, d.Deprecated)
			}
		})
	}
}

func TestInferIsDeterministic(t *testing.T) {
	for _, v := range BuiltinVendors() {
		for _, m := range []string{"gpt-4o", "claude-3-opus", "llama3:8b", "gemini-pro"} {
			if Infer(v.Name, m) != Infer(v.Name, m) {
				t.Errorf("Infer(%s, %s) is not deterministic", v.Name, m)
			}
		}
	}
}

func TestInferSetsIdentity(t *testing.T) {
	d := Infer("gemini", "gemini-1.5-pro")
	if d.ID != "gemini-1.5-pro" || d.DisplayName != "gemini-1.5-pro" || d.Provider != "gemini" {
		t.Errorf("Unexpected identity fields: %+v", d)
	}
}

func TestFallbackModels(t *testing.T) {
	tests := []struct {
		vendor string
		ids    []string
	}{
		{"openai", []string{"gpt-5", "gpt-4o", "gpt-3.5-turbo"}},
		{"xai", []string{"grok-4-0709", "grok-3"}},
		{"anthropic", []string{"claude-3-5-sonnet-20241022"}},
		{"deepseek", []string{"deepseek-r1"}},
		{"gemini", []string{"gemini-1.5-pro", "gemini-1.5-flash", "gemini-pro"}},
		{"together", []string{"meta-llama/Llama-3-70b-chat-hf", "mistralai/Mixtral-8x7B-Instruct-v0.1"}},
		{"ollama", []string{"llama3:8b", "llama2:7b"}},
	}

	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			v, ok := BuiltinVendor(tt.vendor)
			if !ok {
				t.Fatalf("Vendor %s not found", tt.vendor)
			}
			models := v.FallbackModels()
			if len(models) != len(tt.ids) {
				t.Fatalf("Expected %d models, got %d", len(tt.ids), len(models))
			}
			for i, m := range models {
				if m.ID != tt.ids[i] {
					t.Errorf("Expected id %s, got %s", tt.ids[i], m.ID)
				}
				if m.Provider != tt.vendor {
					t.Errorf("Expected provider %s, got %s", tt.vendor, m.Provider)
				}
				if m.Deprecated {
					t.Errorf("Fallback model %s should not be deprecated", m.ID)
				}
			}
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.openai.com", "https://api.openai.com/v1"},
		{"https://api.openai.com/", "https://api.openai.com/v1"},
		{"https://api.openai.com/v1", "https://api.openai.com/v1"},
		{"https://generativelanguage.googleapis.com/v1beta/openai", "https://generativelanguage.googleapis.com/v1beta/openai"},
		{"http://localhost:11434", "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		if got := NormalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeBaseURL(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestMatchExactAndFold(t *testing.T) {
	exact := Match{Any: []string{"grok-3"}, Exact: true}
	if !exact.Matches("grok-3") || exact.Matches("grok-3-mini") {
		t.Error("Exact match should only accept equal ids")
	}
	fold := Match{Any: []string{"llava"}, Fold: true}
	if !fold.Matches("LLaVA-13b") {
		t.Error("Fold match should ignore case")
	}
}
