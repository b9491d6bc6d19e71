package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/storage"
)

// StatusClientClosedRequest reports a request cancelled before completion.
const StatusClientClosedRequest = 499

// statusFor maps core and storage errors onto HTTP status codes.
func statusFor(err error) int {
	var emptyPatch *storage.EmptyPatchError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &emptyPatch),
		errors.Is(err, provider.ErrValidation),
		errors.Is(err, provider.ErrConfiguration),
		errors.Is(err, provider.ErrUnsupportedCapability):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, provider.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrRequestInProgress):
		return http.StatusConflict
	case errors.Is(err, provider.ErrRequestCancelled):
		return StatusClientClosedRequest
	case errors.Is(err, provider.ErrProviderRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": msg}. Not-found and server errors use the
// caller's messages; other errors report their own text.
func (s *Server) respondError(c *gin.Context, err error, notFoundMsg, failureMsg string) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusNotFound && errors.Is(err, storage.ErrNotFound) && notFoundMsg != "":
		msg = notFoundMsg
	case status == http.StatusInternalServerError:
		s.log.WithError(err).WithField("path", c.Request.URL.Path).Error(failureMsg)
		msg = failureMsg
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// bindJSON decodes the request body into v, answering 413 for oversized
// bodies and 400 for malformed ones.
func bindJSON(c *gin.Context, v any) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return false
	}
	badRequest(c, "Invalid request body", err)
	return false
}
