package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forPelevin/narrate/internal/audio"
	"github.com/forPelevin/narrate/internal/domain/segments"
	"github.com/forPelevin/narrate/internal/ports"
	"github.com/forPelevin/narrate/internal/usecase"
)

const (
	ErrorBadRequest       = "BAD_REQUEST"
	ErrorInternalError    = "INTERNAL_ERROR"
	ErrorInvalidSegments  = "INVALID_SEGMENTS"
	ErrorSegmentNotFound  = "SEGMENT_NOT_FOUND"
	ErrorEmptyInput       = "EMPTY_INPUT"
	ErrorMissingReference = "MISSING_REFERENCE_VOICE"
	ErrorNoSynthesizer    = "SYNTHESIZER_UNAVAILABLE"
)

type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, &APIResponse{
		Error:     &APIError{Code: code, Message: message},
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	})
}

// failErr maps domain errors onto HTTP statuses.
func failErr(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	fail(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, segments.ErrMalformedSegmentJSON), errors.Is(err, segments.ErrInvalidSequence):
		return http.StatusBadRequest, ErrorInvalidSegments
	case errors.Is(err, segments.ErrSegmentNotFound):
		return http.StatusNotFound, ErrorSegmentNotFound
	case errors.Is(err, audio.ErrEmptyInput):
		return http.StatusUnprocessableEntity, ErrorEmptyInput
	case errors.Is(err, ports.ErrMissingReferenceVoice):
		return http.StatusUnprocessableEntity, ErrorMissingReference
	case errors.Is(err, usecase.ErrNoSynthesizer):
		return http.StatusServiceUnavailable, ErrorNoSynthesizer
	default:
		return http.StatusInternalServerError, ErrorInternalError
	}
}
