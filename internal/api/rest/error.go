package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest          ErrorCode = "bad_request"
	errCodeNotFound            ErrorCode = "not_found"
	errCodeValidationFailed    ErrorCode = "validation_failed"
	errCodeUnauthorized        ErrorCode = "unauthorized"
	errCodeInvalidState        ErrorCode = "invalid_state"
	errCodeAlreadyExists       ErrorCode = "already_exists"
	errCodeInsufficientBalance ErrorCode = "insufficient_balance"
	errCodeOverflow            ErrorCode = "overflow"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusNotFound, errCodeNotFound, message, details...)
}

// respondValidationError sends a 422 Unprocessable Entity with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusUnprocessableEntity, errCodeValidationFailed, "Validation failed", details)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// respondDomainError maps a ledger error to the standardized error response.
// Unrecognized errors are treated as internal.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		respondWithError(c, http.StatusForbidden, errCodeUnauthorized, "Caller is not authorized for this operation", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Resource not found", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrAlreadyWired):
		respondWithError(c, http.StatusConflict, errCodeAlreadyExists, "Resource already exists", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		respondWithError(c, http.StatusConflict, errCodeInvalidState, "Operation not valid in the current state", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		respondWithError(c, http.StatusUnprocessableEntity, errCodeInsufficientBalance, "Insufficient balance", err.Error())
	case errors.Is(err, domain.ErrOverflow):
		respondWithError(c, http.StatusUnprocessableEntity, errCodeOverflow, "Amount arithmetic overflow", err.Error())
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidIdentity),
		errors.Is(err, domain.ErrEmptyPurchase):
		respondBadRequest(c, "Invalid request", err.Error())
	default:
		respondInternalError(c, err, "Internal server error")
	}
}
