package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Dhanuzh/dchat/internal/storage"
)

func (s *Server) handleGetConversation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	conv, err := s.store.GetConversation(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Conversation not found", "Failed to fetch conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleSearchTitles(c *gin.Context) {
	s.search(c, s.store.SearchConversationTitles)
}

func (s *Server) handleSearchMessages(c *gin.Context) {
	s.search(c, s.store.SearchConversationMessages)
}

func (s *Server) search(c *gin.Context, find func(ctx context.Context, q string) ([]storage.Conversation, error)) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}
	convs, err := find(c.Request.Context(), q)
	if err != nil {
		s.respondError(c, err, "", "Failed to search conversations")
		return
	}
	if convs == nil {
		convs = []storage.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (s *Server) handleRecentConversations(c *gin.Context) {
	limit := storage.DefaultRecentLimit
	if raw := c.Param("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "Invalid limit", err)
			return
		}
		limit = n
	}
	convs, err := s.store.RecentConversations(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err, "", "Failed to fetch recent conversations")
		return
	}
	if convs == nil {
		convs = []storage.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (s *Server) handleCountConversations(c *gin.Context) {
	gid, ok := parseID(c, "gid")
	if !ok {
		return
	}
	n, err := s.store.CountConversations(c.Request.Context(), gid)
	if err != nil {
		s.respondError(c, err, "", "Failed to count conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	var conv storage.Conversation
	if !bindJSON(c, &conv) {
		return
	}
	id, err := s.store.AddConversation(c.Request.Context(), &conv)
	if err != nil {
		s.respondError(c, err, "", "Failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Conversation created successfully"})
}

func (s *Server) handleUpdateConversation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var conv storage.Conversation
	if !bindJSON(c, &conv) {
		return
	}
	if err := s.store.UpdateConversation(c.Request.Context(), id, &conv); err != nil {
		s.respondError(c, err, "Conversation not found", "Failed to update conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation updated successfully"})
}

func (s *Server) handlePatchConversation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var patch storage.ConversationPatch
	if !bindJSON(c, &patch) {
		return
	}
	if err := s.store.PatchConversation(c.Request.Context(), id, patch); err != nil {
		s.respondError(c, err, "Conversation not found", "Failed to update conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation updated successfully"})
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteConversation(c.Request.Context(), id); err != nil {
		s.respondError(c, err, "Conversation not found", "Failed to delete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
}

func (s *Server) handleDeleteConversationsByGID(c *gin.Context) {
	gid, ok := parseID(c, "gid")
	if !ok {
		return
	}
	n, err := s.store.DeleteConversationsByGID(c.Request.Context(), gid)
	if err != nil {
		s.respondError(c, err, "", "Failed to delete conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversations deleted successfully", "deletedCount": n})
}

func (s *Server) handleDeleteAllConversations(c *gin.Context) {
	if err := s.store.DeleteAllConversations(c.Request.Context()); err != nil {
		s.respondError(c, err, "", "Failed to delete all conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All conversations deleted successfully"})
}
