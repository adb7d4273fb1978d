package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{ErrCodeAccountLocked, http.StatusTooManyRequests},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeTokenRevoked, http.StatusUnauthorized},
		{ErrCodeUserNotFound, http.StatusNotFound},
		{ErrCodeInvalidBalance, http.StatusBadRequest},
		{ErrCodeInvalidDateRange, http.StatusBadRequest},
		{ErrCodeSourceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"INVALID_BALANCE", ErrCodeInvalidBalance},
		{"INVALID_DATE_RANGE", ErrCodeInvalidDateRange},
		{"RECORD_SOURCE_UNAVAILABLE", ErrCodeSourceUnavailable},
		{"INVALID_CREDENTIALS", ErrCodeInvalidCredentials},
		{"ACCOUNT_LOCKED", ErrCodeAccountLocked},
		{"TOKEN_MAX_REFRESH", ErrCodeTokenMaxRefresh},
		{"INTERNAL_ERROR", ErrCodeInternal},
		// API codes pass through
		{ErrCodeNotFound, ErrCodeNotFound},
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestEveryDomainCodeHasStatus(t *testing.T) {
	for domainCode, apiCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "no HTTP status for %s (from %s)", apiCode, domainCode)
	}
}

func TestResponseJSON(t *testing.T) {
	t.Run("success omits error", func(t *testing.T) {
		raw, err := json.Marshal(NewSuccessResponse(map[string]int{"n": 1}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, string(raw))
	})

	t.Run("error carries request id", func(t *testing.T) {
		raw, err := json.Marshal(NewErrorResponseWithRequestID(ErrCodeInvalidBalance, "bad balance", "req-1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_INVALID_BALANCE","message":"bad balance","request_id":"req-1"}}`, string(raw))
	})

	t.Run("validation details", func(t *testing.T) {
		resp := NewValidationErrorResponse("req-2", []ValidationDetail{{Field: "start_date", Message: "must be a date", Tag: "isodate"}})
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "start_date", resp.Error.Details[0].Field)
	})
}
