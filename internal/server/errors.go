package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scrumkit/scrumkit/internal/retro"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, retro.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, retro.ErrInvalidArgument), errors.Is(err, retro.ErrBudgetExceeded):
		return http.StatusBadRequest
	case errors.Is(err, retro.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body. Only messages of classified service
// errors reach the client; anything else is logged and answered with a
// generic 500.
func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	var re *retro.Error
	if !errors.As(err, &re) {
		h.log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": re.Msg})
}
