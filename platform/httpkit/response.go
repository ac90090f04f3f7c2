// Package httpkit collects the HTTP plumbing shared by every handler:
// response helpers, error mapping, and the middleware in middleware.go.
package httpkit

import (
	"errors"
	"net/http"

	"leadscore_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error writes an ErrorResponse with the given status.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK writes payload with a 200.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError writes the HTTP response for a service error and reports
// whether anything was written. *apperr.Error values map through their
// Kind; untyped errors come back as 400.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{Error: domainErr.Message})
		return true
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
