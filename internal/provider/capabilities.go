package provider

const (
	defaultContextWindow   = 4096
	defaultKnowledgeCutoff = "10/2023"
)

func when[T any](value T, subs ...string) Rule[T] {
	return Rule[T]{Match: Match{Any: subs}, Value: value}
}

func whenExact[T any](value T, ids ...string) Rule[T] {
	return Rule[T]{Match: Match{Any: ids, Exact: true}, Value: value}
}

func whenFold[T any](value T, subs ...string) Rule[T] {
	return Rule[T]{Match: Match{Any: subs, Fold: true}, Value: value}
}

// Rule order matters: "gpt-4-32k" must be tested before "gpt-4", and so on.

var openAITable = CapabilityTable{
	ContextWindow: []Rule[int]{
		when(1000000, "gpt-5"),
		when(1000000, "gpt-4.1"),
		when(128000, "o4-mini"),
		when(128000, "o3"),
		when(128000, "gpt-4o", "gpt-4-turbo"),
		when(32768, "gpt-4-32k"),
		when(8192, "gpt-4"),
		when(16385, "gpt-3.5-turbo-16k"),
		when(4096, "gpt-3.5-turbo"),
		when(128000, "o1"),
	},
	DefaultContextWindow: 4096,
	KnowledgeCutoff: []Rule[string]{
		when("6/2024", "gpt-5"),
		when("6/2024", "o4-mini", "o3"),
		when("6/2024", "gpt-4.1", "2025"),
		when("10/2023", "gpt-4o", "o1", "2024"),
		when("12/2023", "gpt-4-turbo", "0125"),
		when("4/2023", "gpt-4-1106", "1106"),
		when("9/2021", "gpt-4"),
		when("9/2021", "gpt-3.5"),
	},
	DefaultKnowledgeCutoff: "10/2023",
	ImageSupport: []Rule[bool]{
		when(true, "gpt-5", "gpt-4o", "gpt-4.1", "gpt-4-turbo", "gpt-4-vision",
			"chatgpt-4o", "gpt-4-1106-vision", "o3", "o4-mini"),
	},
	Preferred: []Rule[bool]{
		when(true, "gpt-5", "o3", "o4-mini", "gpt-4.1", "gpt-4o", "chatgpt-4o-latest"),
	},
	Deprecated: []Rule[bool]{
		when(true, "instruct", "davinci", "curie", "babbage", "ada",
			"gpt-4-32k", "gpt-3.5-turbo-16k", "preview-2024-09-12"),
	},
}

var xAITable = CapabilityTable{
	DefaultContextWindow: 131072,
	KnowledgeCutoff: []Rule[string]{
		when("6/2024", "grok-4"),
		when("6/2024", "grok-3"),
		when("12/2024", "grok-2-1212"),
	},
	DefaultKnowledgeCutoff: "10/2023",
	ImageSupport: []Rule[bool]{
		when(true, "grok-4", "grok-3", "grok-2-vision", "grok-2-image"),
	},
	Preferred: []Rule[bool]{
		whenExact(true, "grok-4-0709", "grok-3", "grok-3-fast"),
	},
}

var anthropicTable = CapabilityTable{
	ContextWindow: []Rule[int]{
		when(200000, "claude-3-5"),
		when(200000, "claude-3"),
	},
	DefaultContextWindow: 100000,
	KnowledgeCutoff: []Rule[string]{
		when("4/2024", "claude-3-5"),
		when("8/2023", "claude-3"),
	},
	DefaultKnowledgeCutoff: "9/2021",
	ImageSupport:           []Rule[bool]{when(true, "claude-3")},
	Preferred:              []Rule[bool]{when(true, "claude-3-5-sonnet")},
}

var deepSeekTable = CapabilityTable{
	ContextWindow: []Rule[int]{
		when(128000, "deepseek-r1"),
		when(128000, "deepseek-v3"),
	},
	DefaultContextWindow:   32000,
	DefaultKnowledgeCutoff: "10/2023",
	Preferred:              []Rule[bool]{when(true, "deepseek-r1", "deepseek-v3")},
}

var geminiTable = CapabilityTable{
	ContextWindow: []Rule[int]{
		when(2000000, "gemini-1.5-pro"),
		when(1048576, "gemini-1.5-flash"),
		when(30720, "gemini-pro"),
	},
	DefaultContextWindow:   8192,
	DefaultKnowledgeCutoff: "4/2024",
	ImageSupport:           []Rule[bool]{when(true, "pro", "flash")},
	Preferred:              []Rule[bool]{when(true, "1.5-pro", "1.5-flash")},
}

var togetherTable = CapabilityTable{
	ContextWindow: []Rule[int]{
		when(4096, "llama-2-70b"),
		when(4096, "llama-2-13b"),
		when(32768, "mixtral-8x7b"),
		when(65536, "mixtral-8x22b"),
		when(8192, "llama-3-70b"),
		when(8192, "llama-3-8b"),
		when(32768, "qwen"),
	},
	DefaultContextWindow: 4096,
	KnowledgeCutoff: []Rule[string]{
		when("4/2024", "2024"),
		when("9/2023", "2023"),
		when("4/2024", "llama-3"),
		when("12/2023", "mixtral"),
	},
	DefaultKnowledgeCutoff: "9/2023",
	ImageSupport:           []Rule[bool]{whenFold(true, "llava", "llava-next")},
	Preferred:              []Rule[bool]{when(true, "llama-3-70b", "mixtral-8x22b", "qwen2-72b")},
}

var ollamaTable = CapabilityTable{
	ContextWindow: []Rule[int]{
		when(8192, "llama3:70b"),
		when(8192, "llama3:8b"),
		when(4096, "llama2:70b"),
		when(4096, "llama2:13b"),
		when(4096, "llama2:7b"),
		when(32768, "mixtral:8x7b"),
		when(32768, "qwen"),
	},
	DefaultContextWindow: 4096,
	KnowledgeCutoff: []Rule[string]{
		when("4/2024", "llama3"),
		when("9/2023", "llama2"),
	},
	DefaultKnowledgeCutoff: "9/2023",
	ImageSupport:           []Rule[bool]{whenFold(true, "llava", "bakllava")},
	Preferred:              []Rule[bool]{when(true, "llama3:70b", "llama3:8b")},
}

// isReasoningModel reports models that reject sampling parameters.
func isReasoningModel(modelID string) bool {
	return when(true, "o1", "o3", "o4-mini").Matches(modelID)
}

// supportsTopP reports whether top_p may be sent for the model.
func supportsTopP(modelID string) bool {
	return !when(true, "gpt-5", "o1", "o3", "o4-mini").Matches(modelID)
}
