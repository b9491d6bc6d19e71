package provider

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// Provider defines the operations every chat vendor adapter offers.
type Provider interface {
	Name() string
	DisplayName() string
	// ListModels returns the vendor's models. Adapters with a fallback list
	// return it instead of an error.
	ListModels(ctx context.Context) ([]ModelDescriptor, error)
	CreateCompletion(ctx context.Context, req *ChatRequest) (*Completion, error)
	CreateCompletionStream(ctx context.Context, req *ChatRequest) (io.ReadCloser, error)
	TextToSpeech(ctx context.Context, text string, settings SpeechSettings) (string, error)
	ListSpeechModels(ctx context.Context) []ModelDescriptor
}

// Config carries what is needed to construct a provider instance.
type Config struct {
	Name    string `json:"name" mapstructure:"name"`
	APIKey  string `json:"apiKey" mapstructure:"api_key"`
	BaseURL string `json:"baseUrl,omitempty" mapstructure:"base_url"`

	// SpeechDir is where synthesized audio is written. Defaults to the OS temp dir.
	SpeechDir string `json:"-" mapstructure:"-"`
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client `json:"-" mapstructure:"-"`
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part types. Attachments that are not images carry their MIME type instead.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// Part is one element of a message's content.
type Part struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ChatMessage is a request message with multi-part content.
type ChatMessage struct {
	Role  string `json:"role"`
	Parts []Part `json:"content"`
}

// Text returns the message's text parts joined by newlines.
func (m ChatMessage) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if p.Type == PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ChatRequest is a completion request. Nil sampling fields are not sent.
type ChatRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	Seed             *int          `json:"seed,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionMessage is the assistant reply inside a choice.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is one candidate reply.
type Choice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// Completion is a full, non-streamed completion result.
type Completion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the text of the first choice.
func (c *Completion) Content() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

// SpeechSettings controls text-to-speech synthesis.
type SpeechSettings struct {
	Model string  `json:"model"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// Speech limits.
const (
	MaxSpeechInput = 4096
	MinSpeechSpeed = 0.25
	MaxSpeechSpeed = 4.0
)
