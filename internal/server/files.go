package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dhanuzh/dchat/internal/storage"
)

func (s *Server) handleGetFileData(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	f, err := s.store.GetFileData(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "File data not found", "Failed to fetch file data")
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) handleCreateFileData(c *gin.Context) {
	var f storage.FileData
	if !bindJSON(c, &f) {
		return
	}
	if f.Data == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File data is required"})
		return
	}
	id, err := s.store.AddFileData(c.Request.Context(), &f)
	if err != nil {
		s.respondError(c, err, "", "Failed to create file data")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "File data created successfully"})
}

func (s *Server) handleUpdateFileData(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var f storage.FileData
	if !bindJSON(c, &f) {
		return
	}
	if err := s.store.UpdateFileData(c.Request.Context(), id, &f); err != nil {
		s.respondError(c, err, "File data not found", "Failed to update file data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File data updated successfully"})
}

func (s *Server) handlePatchFileData(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var patch storage.FileDataPatch
	if !bindJSON(c, &patch) {
		return
	}
	if err := s.store.PatchFileData(c.Request.Context(), id, patch); err != nil {
		s.respondError(c, err, "File data not found", "Failed to update file data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File data updated successfully"})
}

func (s *Server) handleDeleteFileData(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteFileData(c.Request.Context(), id); err != nil {
		s.respondError(c, err, "File data not found", "Failed to delete file data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File data deleted successfully"})
}

func (s *Server) handleDeleteAllFileData(c *gin.Context) {
	n, err := s.store.DeleteAllFileData(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "", "Failed to delete all file data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All file data deleted successfully", "deletedCount": n})
}

func (s *Server) handleFileStats(c *gin.Context) {
	stats, err := s.store.FileDataStats(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "", "Failed to fetch file statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}
