package http

import (
	"errors"
	"net/http"

	"assetguard/internal/domain"
	"assetguard/internal/observability/logger"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrKeyNotFound, http.StatusNotFound, "KEY_NOT_FOUND"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrMalformedInput, http.StatusBadRequest, "MALFORMED_INPUT"},
	{domain.ErrKeyRevoked, http.StatusConflict, "KEY_REVOKED"},
	{domain.ErrInvalidToken, http.StatusBadRequest, "TOKEN_INVALID"},
	{domain.ErrAlreadyUsed, http.StatusConflict, "TOKEN_ALREADY_USED"},
	{domain.ErrExpired, http.StatusGone, "TOKEN_EXPIRED"},
	{domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
	{domain.ErrUpstreamFetchFailed, http.StatusBadGateway, "UPSTREAM_FETCH_FAILED"},
	{domain.ErrConcurrencyConflict, http.StatusConflict, "CONCURRENCY_CONFLICT"},
	{domain.ErrAlreadyFinalized, http.StatusConflict, "ALREADY_FINALIZED"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrOriginNotAllowed, http.StatusForbidden, "ORIGIN_NOT_ALLOWED"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
}

func classify(err error) (int, string) {
	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			return entry.status, entry.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func writeError(c *gin.Context, err error) {
	writeErrorDetails(c, err, nil)
}

func writeErrorDetails(c *gin.Context, err error, details map[string]any) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.From(c.Request.Context()).Error("request failed", logger.Err(err))
		message = "internal error"
	}
	c.JSON(status, errorResponse{Code: code, Message: message, Details: details})
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return false
	}
	return true
}
