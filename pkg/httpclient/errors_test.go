package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/hautex/visual-fashion-finder/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeResponse creates an *http.Response with the given status code and body string.
func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// structuredError builds a standard JSON error body.
func structuredError(code, message string) string {
	return `{"error":{"code":"` + code + `","message":"` + message + `"}}`
}

func requireAppError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	return appErr
}

func TestParseResponseError_ClientStatuses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus int
		code       string
		sentinel   error
	}{
		{"not found", http.StatusNotFound, http.StatusNotFound, "NOT_FOUND", apperrors.ErrNotFound},
		{"bad request", http.StatusBadRequest, http.StatusBadRequest, "INVALID_INPUT", apperrors.ErrInvalidInput},
		// FastAPI rejects malformed uploads with 422; callers see a plain 400.
		{"unprocessable", http.StatusUnprocessableEntity, http.StatusBadRequest, "INVALID_INPUT", apperrors.ErrInvalidInput},
		{"conflict", http.StatusConflict, http.StatusConflict, "CONFLICT", apperrors.ErrConflict},
		{"unauthorized", http.StatusUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, http.StatusForbidden, "FORBIDDEN", apperrors.ErrForbidden},
		{"gone", http.StatusGone, http.StatusGone, "GONE", apperrors.ErrGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := makeResponse(tt.status, structuredError("X", "details here"))
			appErr := requireAppError(t, ParseResponseError(resp, "ml-service"))

			assert.Equal(t, tt.wantStatus, appErr.Status)
			assert.Equal(t, tt.code, appErr.Code)
			assert.True(t, errors.Is(appErr, tt.sentinel))
			assert.True(t, errors.Is(appErr, apperrors.ErrUpstream))
			assert.Contains(t, appErr.Message, "ml-service")
		})
	}
}

func TestParseResponseError_GoogleErrorBody(t *testing.T) {
	body := `{"error":{"code":403,"message":"Requests from this API key are blocked.","status":"PERMISSION_DENIED"}}`
	appErr := requireAppError(t, ParseResponseError(makeResponse(http.StatusForbidden, body), "google-cse"))

	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Contains(t, appErr.Message, "blocked")
	assert.True(t, errors.Is(appErr, apperrors.ErrUpstream))
}

func TestParseResponseError_GoogleNumericCodeOnly(t *testing.T) {
	body := `{"error":{"code":418,"message":"odd"}}`
	appErr := requireAppError(t, ParseResponseError(makeResponse(http.StatusTeapot, body), "google-cse"))

	assert.Equal(t, http.StatusTeapot, appErr.Status)
	assert.Equal(t, "418", appErr.Code)
}

func TestParseResponseError_FastAPIDetail(t *testing.T) {
	body := `{"detail":"Invalid image file"}`
	appErr := requireAppError(t, ParseResponseError(makeResponse(http.StatusBadRequest, body), "ml-service"))

	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.True(t, errors.Is(appErr, apperrors.ErrInvalidInput))
	assert.Contains(t, appErr.Message, "Invalid image file")
}

func TestParseResponseError_FastAPIValidationDetail(t *testing.T) {
	body := `{"detail":[{"loc":["body","file"],"msg":"field required","type":"value_error.missing"}]}`
	appErr := requireAppError(t, ParseResponseError(makeResponse(http.StatusUnprocessableEntity, body), "ml-service"))

	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "field required")
}

func TestParseResponseError_ServiceUnavailable(t *testing.T) {
	resp := makeResponse(http.StatusServiceUnavailable, structuredError("SERVICE_UNAVAILABLE", "overloaded"))
	appErr := requireAppError(t, ParseResponseError(resp, "ml-service"))

	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", appErr.Code)
	assert.True(t, errors.Is(appErr, apperrors.ErrServiceUnavail))
	assert.True(t, errors.Is(appErr, apperrors.ErrUpstream))
}

func TestParseResponseError_RateLimited(t *testing.T) {
	resp := makeResponse(http.StatusTooManyRequests, "")
	appErr := requireAppError(t, ParseResponseError(resp, "google-cse"))

	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", appErr.Code)
}

func TestParseResponseError_ServerError(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, structuredError("INTERNAL_ERROR", "something went wrong"))
	err := ParseResponseError(resp, "ml-service")

	appErr := requireAppError(t, err)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
	assert.Contains(t, err.Error(), "ml-service")
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "something went wrong")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "Bad Gateway: upstream connection refused")
	err := ParseResponseError(resp, "google-cse")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
	assert.Contains(t, err.Error(), "google-cse")
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "Bad Gateway: upstream connection refused")
}

func TestParseResponseError_EmptyBody(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusInternalServerError, ""), "some-service")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "some-service")
	assert.Contains(t, err.Error(), "500")
}

func TestParseResponseError_HTMLBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "<html><body><h1>502 Bad Gateway</h1></body></html>")
	err := ParseResponseError(resp, "nginx")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nginx")
	assert.Contains(t, err.Error(), "502")
}

func TestParseResponseError_StructuredButNullError(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"error":null}`)
	appErr := requireAppError(t, ParseResponseError(resp, "svc"))

	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Error(), "400")
}

func TestParseResponseError_UnhandledStatusKeepsCode(t *testing.T) {
	resp := makeResponse(http.StatusTeapot, structuredError("TEAPOT", "short and stout"))
	appErr := requireAppError(t, ParseResponseError(resp, "svc"))

	assert.Equal(t, http.StatusTeapot, appErr.Status)
	assert.Equal(t, "TEAPOT", appErr.Code)
	assert.Contains(t, appErr.Message, "svc")
}
