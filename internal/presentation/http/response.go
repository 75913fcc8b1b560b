package http

import (
	"log"
	"net/http"
	"strconv"

	"wabridge/internal/domain/errors"

	"github.com/gin-gonic/gin"
)

// respondWithSuccess sends a successful JSON response
func respondWithSuccess(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, newSuccessResponse(data))
}

// respondWithError sends an error JSON response
func respondWithError(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	c.JSON(statusCode, newErrorResponse[any](code, message, details))
}

// handleDomainError converts domain errors to HTTP responses
func handleDomainError(c *gin.Context, err error) {
	domainErr := errors.GetDomainError(err)
	if domainErr == nil {
		requestID, _ := c.Get(RequestIDKey)
		log.Printf("[ERROR] [%v] Unexpected error: %+v", requestID, err)
		respondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
		return
	}

	statusCode := mapErrorToHTTPStatus(domainErr.Code)

	if statusCode == http.StatusInternalServerError {
		requestID, _ := c.Get(RequestIDKey)
		log.Printf("[ERROR] [%v] Domain error: code=%s, message=%s, cause=%+v",
			requestID, domainErr.Code, domainErr.Message, domainErr.Cause)
	}

	var details map[string]string
	if rlErr, ok := err.(*errors.RateLimitedError); ok {
		details = map[string]string{
			"scope":   string(rlErr.Scope),
			"wait_ms": strconv.FormatInt(rlErr.WaitMs, 10),
		}
	}

	respondWithError(c, statusCode, domainErr.Code, domainErr.Message, details)
}

// mapErrorToHTTPStatus maps the spec's domain error codes (§7) to HTTP status codes.
func mapErrorToHTTPStatus(code string) int {
	switch code {
	case "INVALID_JID":
		return http.StatusBadRequest

	case "NOT_CONNECTED", "HIBERNATING":
		return http.StatusServiceUnavailable

	case "WARMUP_LIMIT", "RATE_LIMITED":
		return http.StatusTooManyRequests

	case "CANCELED":
		return http.StatusRequestTimeout

	case "PROTOCOL_ERROR", "CIRCUIT_OPEN":
		return http.StatusServiceUnavailable

	case "HIBERNATION_MINIMUM_NOT_ELAPSED":
		return http.StatusConflict

	case "VALIDATION_FAILED", "INVALID_JSON", "INVALID_INPUT":
		return http.StatusBadRequest

	case "SESSION_NOT_FOUND":
		return http.StatusNotFound

	case "CONFIG_INVALID", "PERSISTENCE_STALE", "INTERNAL_ERROR":
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
