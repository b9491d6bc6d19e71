// Package chat orchestrates conversations with the active provider:
// request building, streaming, cancellation and the model cache.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/storage"
)

// DefaultCoalesceDelay is the pause between stream reads. It lets several
// network chunks collect before they are decoded.
const DefaultCoalesceDelay = 10 * time.Millisecond

const readBufferSize = 4096

// Settings are the per-request generation options.
type Settings struct {
	Model            string   `json:"model"`
	Stream           bool     `json:"stream"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	// Instructions become a leading system message when the history has none.
	Instructions string `json:"instructions,omitempty"`
}

// SettingsFrom converts a saved chat settings preset.
func SettingsFrom(cs *storage.ChatSettings) Settings {
	return Settings{
		Model:            cs.Model,
		Stream:           cs.Stream,
		Temperature:      cs.Temperature,
		TopP:             cs.TopP,
		FrequencyPenalty: cs.FrequencyPenalty,
		PresencePenalty:  cs.PresencePenalty,
		Seed:             cs.Seed,
		Instructions:     cs.Instructions,
	}
}

// With returns s with every field set in o applied on top. Stream is left
// to the caller since false is a meaningful value.
func (s Settings) With(o Settings) Settings {
	if o.Model != "" {
		s.Model = o.Model
	}
	if o.Instructions != "" {
		s.Instructions = o.Instructions
	}
	if o.Temperature != nil {
		s.Temperature = o.Temperature
	}
	if o.TopP != nil {
		s.TopP = o.TopP
	}
	if o.FrequencyPenalty != nil {
		s.FrequencyPenalty = o.FrequencyPenalty
	}
	if o.PresencePenalty != nil {
		s.PresencePenalty = o.PresencePenalty
	}
	if o.MaxTokens != nil {
		s.MaxTokens = o.MaxTokens
	}
	if o.Seed != nil {
		s.Seed = o.Seed
	}
	if len(o.Stop) > 0 {
		s.Stop = o.Stop
	}
	return s
}

type credentialChecker interface {
	CheckCredential(ctx context.Context) error
}

type inflight struct {
	id     string
	cancel context.CancelFunc
}

// Service sends chat requests to the active provider. At most one request
// is in flight at a time.
type Service struct {
	mu        sync.Mutex
	provider  provider.Provider
	models    []provider.ModelDescriptor
	modelsSet bool
	current   *inflight

	files         storage.FileStore
	coalesceDelay time.Duration
	log           log.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithCoalesceDelay sets the pause between stream reads. Zero disables it.
func WithCoalesceDelay(d time.Duration) Option {
	return func(s *Service) { s.coalesceDelay = d }
}

// WithLogger sets the logger for recovered failures.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithFileStore lets SendMessage resolve attachments by id.
func WithFileStore(fs storage.FileStore) Option {
	return func(s *Service) { s.files = fs }
}

// NewService creates a Service with no active provider.
func NewService(opts ...Option) *Service {
	s := &Service{
		coalesceDelay: DefaultCoalesceDelay,
		log:           log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetProvider makes p the active provider and drops the model cache.
func (s *Service) SetProvider(p provider.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.provider = p
	s.models = nil
	s.modelsSet = false
}

// Provider returns the active provider, or nil.
func (s *Service) Provider() provider.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// Models returns the active provider's models, listing them on first use.
func (s *Service) Models(ctx context.Context) ([]provider.ModelDescriptor, error) {
	s.mu.Lock()
	p := s.provider
	if p == nil {
		s.mu.Unlock()
		return nil, &provider.ConfigurationError{Message: "No AI provider configured"}
	}
	if s.modelsSet {
		models := s.models
		s.mu.Unlock()
		return models, nil
	}
	s.mu.Unlock()

	models, err := p.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.provider == p {
		s.models = models
		s.modelsSet = true
	}
	s.mu.Unlock()
	return models, nil
}

// ModelByID looks a model up in the active provider's listing.
func (s *Service) ModelByID(ctx context.Context, id string) (*provider.ModelDescriptor, error) {
	models, err := s.Models(ctx)
	if err != nil {
		return nil, err
	}
	for i := range models {
		if models[i].ID == id {
			m := models[i]
			return &m, nil
		}
	}
	return nil, &provider.ModelNotFoundError{ModelID: id}
}

// ValidateCredential reports whether the active provider accepts its
// credentials. It never returns an error.
func (s *Service) ValidateCredential(ctx context.Context) (ok bool) {
	p := s.Provider()
	if p == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Warnf("Credential check panicked: %v", r)
			ok = false
		}
	}()
	if c, isChecker := p.(credentialChecker); isChecker {
		if err := c.CheckCredential(ctx); err != nil {
			s.log.WithField("provider", p.Name()).Debugf("Credential check failed: %v", err)
			return false
		}
		return true
	}
	if _, err := p.ListModels(ctx); err != nil {
		s.log.WithField("provider", p.Name()).Debugf("Credential check failed: %v", err)
		return false
	}
	return ctx.Err() == nil
}

// AbortRequest cancels the in-flight request, if any. The pending
// SendMessage returns a RequestCancelledError and no further fragments are
// delivered.
func (s *Service) AbortRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.cancel()
		s.current = nil
	}
}

// SendMessage sends the conversation to the active provider. With
// settings.Stream set, each content increment is passed to onFragment and
// the returned completion carries the accumulated text.
func (s *Service) SendMessage(ctx context.Context, msgs []storage.Message, settings Settings, onFragment func(string)) (*provider.Completion, error) {
	s.mu.Lock()
	p := s.provider
	if p == nil {
		s.mu.Unlock()
		return nil, &provider.ConfigurationError{Message: "No AI provider configured"}
	}
	if settings.Model == "" {
		s.mu.Unlock()
		return nil, &provider.ConfigurationError{Message: "No model specified in chat settings"}
	}
	if err := validateRoles(msgs); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.current != nil {
		s.mu.Unlock()
		return nil, &provider.RequestInProgressError{}
	}
	reqCtx, cancel := context.WithCancel(ctx)
	req := &inflight{id: uuid.NewString(), cancel: cancel}
	s.current = req
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.current == req {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	logger := s.log.WithFields(log.Fields{
		"provider": p.Name(),
		"model":    settings.Model,
		"request":  req.id,
	})

	model, err := s.ModelByID(reqCtx, settings.Model)
	if err != nil {
		return nil, cancelledOr(reqCtx, err)
	}
	if s.files != nil {
		if msgs, err = ResolveAttachments(reqCtx, s.files, msgs); err != nil {
			return nil, cancelledOr(reqCtx, err)
		}
	}

	chatReq := BuildRequest(msgs, settings, model.ImageSupport)
	logger.Debugf("Sending %d messages, stream=%v", len(chatReq.Messages), settings.Stream)

	if !settings.Stream {
		completion, err := p.CreateCompletion(reqCtx, chatReq)
		if err != nil {
			return nil, cancelledOr(reqCtx, err)
		}
		if reqCtx.Err() != nil {
			return nil, &provider.RequestCancelledError{}
		}
		return completion, nil
	}
	return s.stream(reqCtx, p, chatReq, onFragment, logger)
}

func (s *Service) stream(ctx context.Context, p provider.Provider, req *provider.ChatRequest, onFragment func(string), logger log.FieldLogger) (*provider.Completion, error) {
	body, err := p.CreateCompletionStream(ctx, req)
	if err != nil {
		return nil, cancelledOr(ctx, err)
	}
	defer body.Close()
	// Unblocks a pending read when the body does not watch ctx itself.
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	dec := NewStreamDecoder(func(fragment string) {
		if onFragment != nil && ctx.Err() == nil {
			onFragment(fragment)
		}
	}, logger)

	buf := make([]byte, readBufferSize)
	for {
		n, readErr := body.Read(buf)
		if ctx.Err() != nil {
			return nil, &provider.RequestCancelledError{}
		}
		if n > 0 {
			dec.Write(buf[:n])
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, cancelledOr(ctx, readErr)
		}
		if s.coalesceDelay > 0 {
			t := time.NewTimer(s.coalesceDelay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, &provider.RequestCancelledError{}
			}
		}
	}
	dec.Flush()
	logger.Debugf("Stream finished after %d chunks", dec.Chunks())

	return &provider.Completion{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []provider.Choice{{
			Index:        0,
			Message:      provider.CompletionMessage{Role: provider.RoleAssistant, Content: dec.Message()},
			FinishReason: "stop",
		}},
	}, nil
}

// BuildRequest maps transcript messages onto a provider request. Each
// message gets a text part; when the model accepts images, every resolved
// attachment adds a part of its own.
func BuildRequest(msgs []storage.Message, settings Settings, imageSupport bool) *provider.ChatRequest {
	out := make([]provider.ChatMessage, 0, len(msgs)+1)
	if settings.Instructions != "" && !hasSystemMessage(msgs) {
		out = append(out, provider.ChatMessage{
			Role:  provider.RoleSystem,
			Parts: []provider.Part{{Type: provider.PartText, Text: settings.Instructions}},
		})
	}
	for _, m := range msgs {
		parts := []provider.Part{{Type: provider.PartText, Text: m.Content}}
		if imageSupport {
			for _, ref := range m.FileDataRef {
				if ref.FileData == nil || ref.FileData.Data == "" {
					continue
				}
				if strings.HasPrefix(ref.FileData.Type, "image") {
					parts = append(parts, provider.Part{Type: provider.PartImageURL, ImageURL: ref.FileData.Data})
				} else {
					parts = append(parts, provider.Part{Type: ref.FileData.Type})
				}
			}
		}
		out = append(out, provider.ChatMessage{Role: m.Role, Parts: parts})
	}

	return &provider.ChatRequest{
		Model:            settings.Model,
		Messages:         out,
		Temperature:      settings.Temperature,
		TopP:             settings.TopP,
		FrequencyPenalty: settings.FrequencyPenalty,
		PresencePenalty:  settings.PresencePenalty,
		MaxTokens:        settings.MaxTokens,
		Seed:             settings.Seed,
		Stop:             settings.Stop,
	}
}

// validateRoles rejects messages whose role is not system, user or assistant.
func validateRoles(msgs []storage.Message) error {
	for i, m := range msgs {
		switch m.Role {
		case provider.RoleSystem, provider.RoleUser, provider.RoleAssistant:
		default:
			return &provider.ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unsupported role %q", m.Role),
			}
		}
	}
	return nil
}

func hasSystemMessage(msgs []storage.Message) bool {
	for _, m := range msgs {
		if m.Role == provider.RoleSystem {
			return true
		}
	}
	return false
}

// cancelledOr reports a cancelled request context as RequestCancelledError
// and passes other errors through.
func cancelledOr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return &provider.RequestCancelledError{}
	}
	return err
}
