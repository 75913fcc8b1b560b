package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"wabridge/internal/domain/errors"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := map[string]int{
		"INVALID_JID":                     http.StatusBadRequest,
		"NOT_CONNECTED":                   http.StatusServiceUnavailable,
		"HIBERNATING":                     http.StatusServiceUnavailable,
		"WARMUP_LIMIT":                    http.StatusTooManyRequests,
		"RATE_LIMITED":                    http.StatusTooManyRequests,
		"CANCELED":                        http.StatusRequestTimeout,
		"PROTOCOL_ERROR":                  http.StatusServiceUnavailable,
		"CIRCUIT_OPEN":                    http.StatusServiceUnavailable,
		"HIBERNATION_MINIMUM_NOT_ELAPSED": http.StatusConflict,
		"SOMETHING_UNKNOWN":               http.StatusInternalServerError,
	}

	for code, want := range cases {
		assert.Equalf(t, want, mapErrorToHTTPStatus(code), "code %s", code)
	}
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestHandleDomainErrorMapsKnownCode(t *testing.T) {
	c, rec := newTestContext()
	handleDomainError(c, errors.ErrInvalidJID)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JID")
}

func TestHandleDomainErrorIncludesRateLimitDetails(t *testing.T) {
	c, rec := newTestContext()
	err := errors.NewRateLimitedError(errors.ScopeInterval, 1500*time.Millisecond)
	handleDomainError(c, err)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "wait_ms")
	assert.Contains(t, body, "1500")
}

func TestHandleDomainErrorFallsBackToInternalForUnknownError(t *testing.T) {
	c, rec := newTestContext()
	handleDomainError(c, assertError("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

type assertError string

func (e assertError) Error() string { return string(e) }
