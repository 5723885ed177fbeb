package api

import (
	"errors"
	"net/http"

	"stock-alert-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an engine error kind onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateSKU):
		return http.StatusConflict
	case errors.Is(err, service.ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. notFound replaces the message of a
// not-found error; store faults never leak their cause.
func (h *Handler) fail(c *gin.Context, err error, notFound string) {
	status := statusFor(err)
	msg := err.Error()

	switch status {
	case http.StatusNotFound:
		if notFound != "" {
			msg = notFound
		}
	case http.StatusConflict:
		msg = "SKU already exists"
	case http.StatusServiceUnavailable:
		c.Header("Retry-After", "1")
		msg = "Concurrent update in progress, retry"
	case http.StatusInternalServerError:
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		msg = "Internal server error"
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

// badRequest reports an unparseable request body
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}
