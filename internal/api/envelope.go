package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"jordanella.com/gamebot-go/internal/actions"
)

// APIVersion is echoed in every response envelope
const APIVersion = "0.0.0"

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	APIVersion string    `json:"apiVersion"`
	Data       any       `json:"data,omitempty"`
	Error      *apiError `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, envelope{APIVersion: APIVersion, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{
		APIVersion: APIVersion,
		Error:      &apiError{Code: status, Message: message},
	})
}

// statusFor maps engine errors onto HTTP status codes. Zero means the
// error is not a caller mistake.
func statusFor(err error) int {
	switch {
	case errors.Is(err, actions.ErrValidation),
		errors.Is(err, actions.ErrUnknownAction),
		errors.Is(err, actions.ErrUnknownJob):
		return http.StatusBadRequest
	case errors.Is(err, actions.ErrInvalidTransition),
		errors.Is(err, actions.ErrConcurrencyViolation),
		errors.Is(err, actions.ErrUnsupportedOperation),
		errors.Is(err, actions.ErrDuplicateName),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusConflict
	}
	return 0
}

// fail writes err as an error envelope. Unexpected errors are logged and
// reported without detail.
func (s *Server) fail(c *gin.Context, err error) {
	if status := statusFor(err); status != 0 {
		respondError(c, status, err.Error())
		return
	}
	s.logger.ErrorWithContext("Request failed", err, map[string]interface{}{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	})
	respondError(c, http.StatusInternalServerError, "Internal server error occurred.")
}

// decodeRequest reads a JSON body, which may be wrapped in the
// {"apiVersion","data"} envelope or sent bare, and returns the payload in
// the JSON data model.
func decodeRequest(c *gin.Context) (any, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read request body: %v", actions.ErrValidation, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: request body is not valid JSON", actions.ErrValidation)
	}
	if m, ok := doc.(map[string]any); ok {
		if _, versioned := m["apiVersion"]; versioned {
			data, ok := m["data"]
			if !ok {
				return nil, fmt.Errorf("%w: enveloped request has no data", actions.ErrValidation)
			}
			return data, nil
		}
	}
	return doc, nil
}
