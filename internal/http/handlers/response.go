// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the shared response helpers: the ErrorResponse envelope,
// fail() which writes it (logging 5xx with the request-scoped logger), and
// failErr() which maps service errors onto status + code.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
	"github.com/tbourn/go-recipe-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"recipe not found"`
}

// fail aborts the request with an ErrorResponse. Server errors are logged.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail().
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// errorMapping pairs a service error with its HTTP status and code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// Validation errors come first so a wrapped combination reports the
// caller's mistake rather than a downstream failure.
var serviceErrors = []errorMapping{
	{services.ErrInvalidRecipeID, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidRating, http.StatusBadRequest, ErrCodeInvalidRating},
	{services.ErrCommentTooLong, http.StatusBadRequest, ErrCodeCommentTooLong},
	{services.ErrEmptyUsername, http.StatusBadRequest, ErrCodeInvalidProfile},
	{services.ErrUsernameTooLong, http.StatusBadRequest, ErrCodeInvalidProfile},
	{services.ErrBioTooLong, http.StatusBadRequest, ErrCodeInvalidProfile},
	{services.ErrInvalidAvatar, http.StatusBadRequest, ErrCodeInvalidProfile},
	{services.ErrInvalidPattern, http.StatusBadRequest, ErrCodeInvalidPattern},
	{services.ErrRecipeNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrReviewNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrRemoteUnavailable, http.StatusBadGateway, ErrCodeRemoteUnavailable},
	{services.ErrStorage, http.StatusInternalServerError, ErrCodeStorage},
}

// failErr maps err onto the matching status and code; unknown errors are 500.
func failErr(c *gin.Context, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			fail(c, m.status, m.code, m.err.Error())
			return
		}
	}
	fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
