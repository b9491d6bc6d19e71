package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Dhanuzh/dchat/internal/chat"
	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/storage"
)

// ChatRequest is the body of POST /api/chat. Settings override the saved
// preset named by ChatSettingsID, which overrides the configured defaults.
type ChatRequest struct {
	Provider       string            `json:"provider,omitempty"`
	ChatSettingsID int64             `json:"chatSettingsId,omitempty"`
	Messages       []storage.Message `json:"messages"`
	Settings       chat.Settings     `json:"settings"`
	Stream         *bool             `json:"stream,omitempty"`
}

// SpeechRequest is the body of POST /api/speech.
type SpeechRequest struct {
	Provider string  `json:"provider,omitempty"`
	Text     string  `json:"text"`
	Model    string  `json:"model,omitempty"`
	Voice    string  `json:"voice,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
}

type providerInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Configured  bool   `json:"configured"`
	KeyOptional bool   `json:"keyOptional"`
}

func (s *Server) resolveProvider(name string) (provider.Provider, error) {
	return s.config.ResolveProvider(s.registry, name)
}

func (s *Server) handleListProviders(c *gin.Context) {
	configs := s.config.ProviderConfigs(s.registry.Names())
	regs := s.registry.Registrations()
	out := make([]providerInfo, 0, len(regs))
	for _, reg := range regs {
		_, configured := configs[reg.Name]
		out = append(out, providerInfo{
			Name:        reg.Name,
			DisplayName: reg.DisplayName,
			Configured:  configured,
			KeyOptional: reg.KeyOptional,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListModels(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Query("provider")
	if name == "" || name == "all" {
		models := s.discovery.All(ctx, s.config.ProviderConfigs(s.registry.Names()))
		if models == nil {
			models = []provider.ModelDescriptor{}
		}
		c.JSON(http.StatusOK, models)
		return
	}

	p, err := s.resolveProvider(name)
	if err != nil {
		s.respondError(c, err, "", "Failed to fetch models")
		return
	}
	models, err := p.ListModels(ctx)
	if err != nil {
		s.respondError(c, err, "", "Failed to fetch models")
		return
	}
	if models == nil {
		models = []provider.ModelDescriptor{}
	}
	c.JSON(http.StatusOK, models)
}

// effectiveSettings layers the request settings over the preset and the
// configured defaults.
func (s *Server) effectiveSettings(c *gin.Context, req *ChatRequest) (chat.Settings, bool) {
	settings := s.config.ChatSettings()
	if req.ChatSettingsID != 0 {
		preset, err := s.store.GetChatSettings(c.Request.Context(), req.ChatSettingsID)
		if err != nil {
			s.respondError(c, err, "Chat setting not found", "Failed to fetch chat setting")
			return chat.Settings{}, false
		}
		settings = settings.With(chat.SettingsFrom(preset))
		settings.Stream = preset.Stream
	}
	settings = settings.With(req.Settings)
	if req.Stream != nil {
		settings.Stream = *req.Stream
	}
	return settings, true
}

// handleChat runs one completion. Streamed replies are sent as server-sent
// events: "fragment" per content delta, then "done" with the completion or
// "error". Errors raised before the first fragment are returned as JSON.
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one message is required"})
		return
	}
	settings, ok := s.effectiveSettings(c, &req)
	if !ok {
		return
	}

	p, err := s.resolveProvider(req.Provider)
	if err != nil {
		s.respondError(c, err, "", "Failed to create provider")
		return
	}

	logger := s.log.WithFields(log.Fields{"provider": p.Name(), "model": settings.Model})
	svc := chat.NewService(
		chat.WithCoalesceDelay(s.config.Chat.StreamCoalesce),
		chat.WithLogger(logger),
		chat.WithFileStore(s.store),
	)
	svc.SetProvider(p)

	streaming := false
	onFragment := func(fragment string) {
		if !streaming {
			streaming = true
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
		}
		c.SSEvent("fragment", gin.H{"content": fragment})
		c.Writer.Flush()
	}

	completion, err := svc.SendMessage(c.Request.Context(), req.Messages, settings, onFragment)
	switch {
	case err != nil && streaming:
		logger.WithError(err).Warn("stream ended with error")
		c.SSEvent("error", gin.H{"error": err.Error(), "status": statusFor(err)})
		c.Writer.Flush()
	case err != nil:
		s.respondError(c, err, "", "Failed to complete chat")
	case streaming:
		c.SSEvent("done", completion)
		c.Writer.Flush()
	default:
		c.JSON(http.StatusOK, completion)
	}
}

func (s *Server) handleSpeech(c *gin.Context) {
	var req SpeechRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text is required"})
		return
	}
	p, err := s.resolveProvider(req.Provider)
	if err != nil {
		s.respondError(c, err, "", "Failed to create provider")
		return
	}

	settings := provider.SpeechSettings{Model: req.Model, Voice: req.Voice, Speed: req.Speed}
	if settings.Model == "" {
		settings.Model = s.config.Speech.Model
	}
	if settings.Voice == "" {
		settings.Voice = s.config.Speech.Voice
	}
	url, err := p.TextToSpeech(c.Request.Context(), req.Text, settings)
	if err != nil {
		s.respondError(c, err, "", "Failed to synthesize speech")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) handleSpeechModels(c *gin.Context) {
	p, err := s.resolveProvider(c.Query("provider"))
	if err != nil {
		s.respondError(c, err, "", "Failed to fetch speech models")
		return
	}
	models := p.ListSpeechModels(c.Request.Context())
	if models == nil {
		models = []provider.ModelDescriptor{}
	}
	c.JSON(http.StatusOK, models)
}
