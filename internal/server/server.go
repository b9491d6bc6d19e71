// Package server exposes the persistence backend and the chat core over
// HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Dhanuzh/dchat/internal/config"
	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	config    *config.Config
	store     storage.Store
	registry  *provider.Registry
	discovery *provider.Discovery
	engine    *gin.Engine
	server    *http.Server
	log       log.FieldLogger
}

// Options configures a Server. Registry defaults to the built-in vendors
// and Logger to the standard logrus logger.
type Options struct {
	Config   *config.Config
	Store    storage.Store
	Registry *provider.Registry
	Logger   *log.Logger
}

// New creates a new API server
func New(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = provider.NewDefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	discovery := provider.NewDiscovery(opts.Registry)
	discovery.Logger = opts.Logger

	s := &Server{
		config:    opts.Config,
		store:     opts.Store,
		registry:  opts.Registry,
		discovery: discovery,
		log:       opts.Logger.WithField("component", "server"),
	}
	s.engine = s.setupRouter()
	return s
}

// Handler returns the HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(corsMiddleware(s.config.Server.CORSOrigins))
	if s.config.Server.RateLimitRPS > 0 {
		r.Use(NewRateLimiter(s.config.Server.RateLimitRPS, s.config.Server.RateLimitBurst).RateLimitByIP())
	}
	r.Use(bodyLimit(s.config.Server.BodyLimitMB << 20))

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		settings := api.Group("/chat-settings")
		settings.GET("", s.handleListChatSettings)
		settings.GET("/:id", s.handleGetChatSettings)
		settings.POST("", s.handleCreateChatSettings)
		settings.PUT("/:id", s.handleUpdateChatSettings)
		settings.PATCH("/:id/sidebar", s.handleSetSidebar)
		settings.DELETE("/:id", s.handleDeleteChatSettings)

		conv := api.Group("/conversations")
		conv.GET("/search/title", s.handleSearchTitles)
		conv.GET("/search/messages", s.handleSearchMessages)
		conv.GET("/recent", s.handleRecentConversations)
		conv.GET("/recent/:limit", s.handleRecentConversations)
		conv.GET("/count/:gid", s.handleCountConversations)
		conv.GET("/:id", s.handleGetConversation)
		conv.POST("", s.handleCreateConversation)
		conv.PUT("/:id", s.handleUpdateConversation)
		conv.PATCH("/:id", s.handlePatchConversation)
		conv.DELETE("/gid/:gid", s.handleDeleteConversationsByGID)
		conv.DELETE("/:id", s.handleDeleteConversation)
		conv.DELETE("", s.handleDeleteAllConversations)

		files := api.Group("/file-data")
		files.GET("/stats/summary", s.handleFileStats)
		files.GET("/:id", s.handleGetFileData)
		files.POST("", s.handleCreateFileData)
		files.PUT("/:id", s.handleUpdateFileData)
		files.PATCH("/:id", s.handlePatchFileData)
		files.DELETE("/:id", s.handleDeleteFileData)
		files.DELETE("", s.handleDeleteAllFileData)

		api.GET("/providers", s.handleListProviders)
		api.GET("/models", s.handleListModels)
		api.POST("/chat", s.handleChat)
		api.GET("/speech/models", s.handleSpeechModels)
		api.POST("/speech", s.handleSpeech)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("dchat backend listening on http://%s", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
