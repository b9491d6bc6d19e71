package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// UnifiedProvider talks to any OpenAI-compatible vendor. Vendor differences
// are carried entirely by its Vendor record.
type UnifiedProvider struct {
	vendor    Vendor
	name      string
	baseURL   string
	client    *openai.Client
	http      *baseHTTPClient
	speechDir string
	log       log.FieldLogger
}

// NewUnifiedProvider builds an adapter for vendor v. An empty cfg.BaseURL
// falls back to the vendor default. A missing API key is an error unless
// the vendor does not require one.
func NewUnifiedProvider(v Vendor, cfg Config) (*UnifiedProvider, error) {
	if cfg.APIKey == "" && v.RequiresKey() {
		return nil, &ConfigurationError{Message: fmt.Sprintf("API key is required for %s", v.DisplayName)}
	}
	base := cfg.BaseURL
	if base == "" {
		base = v.BaseURL
	}
	if base == "" {
		return nil, &ConfigurationError{Message: fmt.Sprintf("base URL is required for %s", v.DisplayName)}
	}
	base = NormalizeBaseURL(base)

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = base
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	name := cfg.Name
	if name == "" {
		name = v.Name
	}
	return &UnifiedProvider{
		vendor:    v,
		name:      name,
		baseURL:   base,
		client:    openai.NewClientWithConfig(config),
		http:      newBaseHTTPClient(cfg.APIKey, base, cfg.HTTPClient),
		speechDir: cfg.SpeechDir,
		log:       log.WithField("provider", name),
	}, nil
}

func (p *UnifiedProvider) Name() string        { return p.name }
func (p *UnifiedProvider) DisplayName() string { return p.vendor.DisplayName }
func (p *UnifiedProvider) BaseURL() string     { return p.baseURL }
func (p *UnifiedProvider) Vendor() Vendor      { return p.vendor }

// SetLogger replaces the logger used for recovered failures.
func (p *UnifiedProvider) SetLogger(l log.FieldLogger) {
	p.log = l.WithField("provider", p.name)
}

// ListModels fetches the vendor's model listing and enriches each entry with
// inferred capabilities. Any failure yields the vendor's fallback list, so
// the error is always nil.
func (p *UnifiedProvider) ListModels(ctx context.Context) ([]ModelDescriptor, error) {
	body, _, err := p.http.doRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		p.log.Warnf("Failed to fetch models, using fallback list: %v", err)
		return p.vendor.FallbackModels(), nil
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		p.log.Warn("Model listing has no data array, using fallback list")
		return p.vendor.FallbackModels(), nil
	}

	models := make([]ModelDescriptor, 0, len(data.Array()))
	data.ForEach(func(_, m gjson.Result) bool {
		id := m.Get("id").String()
		if id == "" {
			return true
		}
		models = append(models, p.describe(id, m))
		return true
	})
	return models, nil
}

// CheckCredential performs the model listing call without falling back, so
// a rejected key surfaces as an error.
func (p *UnifiedProvider) CheckCredential(ctx context.Context) error {
	_, status, err := p.http.doRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		if ctx.Err() != nil {
			return &RequestCancelledError{}
		}
		return NewProviderRequestError(p.name, err.Error(), status, err)
	}
	return nil
}

// describe merges the fields a vendor reports with inferred ones.
func (p *UnifiedProvider) describe(id string, m gjson.Result) ModelDescriptor {
	d := p.vendor.Table.Describe(p.name, id)
	if n := m.Get("context_length").Int(); n > 0 {
		d.ContextWindow = int(n)
	} else if n := m.Get("max_tokens").Int(); n > 0 {
		d.ContextWindow = int(n)
	}
	if m.Get("capabilities.vision").Bool() || m.Get("capabilities.multimodal").Bool() {
		d.ImageSupport = true
	}
	if m.Get("deprecated").Bool() {
		d.Deprecated = true
	}
	if cutoff := m.Get("knowledge_cutoff").String(); cutoff != "" {
		d.KnowledgeCutoff = cutoff
	}
	return d
}

// CreateCompletion performs a non-streamed chat completion.
func (p *UnifiedProvider) CreateCompletion(ctx context.Context, req *ChatRequest) (*Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, toOpenAIRequest(p.vendor, req, false))
	if err != nil {
		return nil, p.wrapError(err)
	}

	out := &Completion{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, Choice{
			Index:        c.Index,
			Message:      CompletionMessage{Role: c.Message.Role, Content: c.Message.Content},
			FinishReason: string(c.FinishReason),
		})
	}
	return out, nil
}

// CreateCompletionStream starts a streamed completion. The returned body is
// framed as server-sent events: one "data: <chunk json>" line per chunk and
// a final "data: [DONE]". Cancelling ctx aborts the read.
func (p *UnifiedProvider) CreateCompletionStream(ctx context.Context, req *ChatRequest) (io.ReadCloser, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, toOpenAIRequest(p.vendor, req, true))
	if err != nil {
		return nil, p.wrapError(err)
	}

	pr, pw := io.Pipe()
	go func() {
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				_, err = io.WriteString(pw, "data: [DONE]\n\n")
				pw.CloseWithError(err)
				return
			}
			if err != nil {
				pw.CloseWithError(p.wrapError(err))
				return
			}
			payload, err := json.Marshal(chunk)
			if err != nil {
				pw.CloseWithError(fmt.Errorf("failed to encode stream chunk: %w", err))
				return
			}
			if _, err := fmt.Fprintf(pw, "data: %s\n\n", payload); err != nil {
				return
			}
		}
	}()
	return &streamBody{PipeReader: pr, stream: stream}, nil
}

type streamBody struct {
	*io.PipeReader
	stream *openai.ChatCompletionStream
}

func (s *streamBody) Close() error {
	s.stream.Close()
	return s.PipeReader.Close()
}

// TextToSpeech synthesizes text to an mp3 file and returns its file URL.
// A zero speed means the default of 1.0.
func (p *UnifiedProvider) TextToSpeech(ctx context.Context, text string, settings SpeechSettings) (string, error) {
	if !p.vendor.SupportsSpeech {
		return "", &UnsupportedCapabilityError{Provider: p.vendor.DisplayName, Capability: "text-to-speech"}
	}
	if utf8.RuneCountInString(text) > MaxSpeechInput {
		return "", &ValidationError{Field: "text", Message: fmt.Sprintf("text exceeds %d characters", MaxSpeechInput)}
	}
	speed := settings.Speed
	if speed == 0 {
		speed = 1.0
	}
	if speed < MinSpeechSpeed || speed > MaxSpeechSpeed {
		return "", &ValidationError{Field: "speed", Message: fmt.Sprintf("speed must be between %.2f and %.1f", MinSpeechSpeed, MaxSpeechSpeed)}
	}
	model := settings.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := settings.Voice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	audio, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return "", p.wrapError(err)
	}
	defer audio.Close()

	f, err := os.CreateTemp(p.speechDir, "speech-*.mp3")
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, audio); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: f.Name()}).String(), nil
}

// ListSpeechModels returns the vendor's speech models, if any.
func (p *UnifiedProvider) ListSpeechModels(ctx context.Context) []ModelDescriptor {
	out := make([]ModelDescriptor, len(p.vendor.SpeechModels))
	for i, m := range p.vendor.SpeechModels {
		m.Provider = p.name
		out[i] = m
	}
	return out
}

// wrapError maps client library errors onto ProviderRequestError.
func (p *UnifiedProvider) wrapError(err error) error {
	if errors.Is(err, context.Canceled) {
		return &RequestCancelledError{}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderRequestError(p.name, apiErr.Message, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderRequestError(p.name, reqErr.Error(), reqErr.HTTPStatusCode, err)
	}
	return NewProviderRequestError(p.name, err.Error(), 0, err)
}
