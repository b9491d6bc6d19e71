package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Dhanuzh/dchat/internal/storage"
)

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		badRequest(c, "Invalid "+param, err)
		return 0, false
	}
	return id, true
}

func (s *Server) handleListChatSettings(c *gin.Context) {
	list, err := s.store.ListChatSettings(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "", "Failed to fetch chat settings")
		return
	}
	if list == nil {
		list = []storage.ChatSettings{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetChatSettings(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cs, err := s.store.GetChatSettings(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Chat setting not found", "Failed to fetch chat setting")
		return
	}
	c.JSON(http.StatusOK, cs)
}

func (s *Server) handleCreateChatSettings(c *gin.Context) {
	var cs storage.ChatSettings
	if !bindJSON(c, &cs) {
		return
	}
	id, err := s.store.AddChatSettings(c.Request.Context(), &cs)
	if err != nil {
		s.respondError(c, err, "", "Failed to create chat setting")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Chat setting created successfully"})
}

func (s *Server) handleUpdateChatSettings(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var cs storage.ChatSettings
	if !bindJSON(c, &cs) {
		return
	}
	if err := s.store.UpdateChatSettings(c.Request.Context(), id, &cs); err != nil {
		s.respondError(c, err, "Chat setting not found", "Failed to update chat setting")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat setting updated successfully"})
}

func (s *Server) handleSetSidebar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		ShowInSidebar *bool `json:"showInSidebar"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ShowInSidebar == nil {
		badRequest(c, "showInSidebar is required", err)
		return
	}
	if err := s.store.SetShowInSidebar(c.Request.Context(), id, *body.ShowInSidebar); err != nil {
		s.respondError(c, err, "Chat setting not found", "Failed to update sidebar visibility")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sidebar visibility updated successfully"})
}

func (s *Server) handleDeleteChatSettings(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteChatSettings(c.Request.Context(), id); err != nil {
		s.respondError(c, err, "Chat setting not found", "Failed to delete chat setting")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat setting deleted successfully"})
}
