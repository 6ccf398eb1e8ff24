// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"leadboard_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Kind      string      `json:"kind,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created sends a 201 Created response with the given payload.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// HandleError maps domain errors to HTTP responses.
// A typed *apperr.Error anywhere in the chain decides the status code;
// anything else is reported as an internal error without leaking its text.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:     domainErr.Message,
			Kind:      KindName(domainErr.Kind),
			Retryable: domainErr.Kind == apperr.KindTransient,
			Details:   domainErr.Details,
		})
		return true
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	return true
}

// KindName is the wire name of an error kind. Clients use it to rebuild the
// typed error on their side.
func KindName(kind apperr.Kind) string {
	switch kind {
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindValidation:
		return "validation"
	case apperr.KindPrecondition:
		return "precondition"
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindTransient:
		return "transient"
	case apperr.KindForbidden:
		return "forbidden"
	case apperr.KindUnauthorized:
		return "unauthorized"
	case apperr.KindBadRequest:
		return "bad_request"
	case apperr.KindInternal:
		return "internal"
	default:
		return ""
	}
}

// ParseKindName is the inverse of KindName.
func ParseKindName(name string) (apperr.Kind, bool) {
	for _, kind := range []apperr.Kind{
		apperr.KindNotFound,
		apperr.KindValidation,
		apperr.KindPrecondition,
		apperr.KindConflict,
		apperr.KindTransient,
		apperr.KindForbidden,
		apperr.KindUnauthorized,
		apperr.KindBadRequest,
		apperr.KindInternal,
	} {
		if KindName(kind) == name {
			return kind, true
		}
	}
	return apperr.KindUnknown, false
}
