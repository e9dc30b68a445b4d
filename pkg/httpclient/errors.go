package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/hautex/visual-fashion-finder/pkg/errors"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// DownstreamErrorResponse covers the error bodies of the services this
// module calls: the {"error":{"code","message"}} envelope (where Google APIs
// use a numeric code) and the {"detail": ...} body of FastAPI services.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
		Status  string          `json:"status"`
	} `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

// code returns the error code as a string, preferring the textual status
// Google APIs attach next to their numeric code.
func (d DownstreamErrorResponse) code() string {
	if d.Error == nil {
		return ""
	}
	if d.Error.Status != "" {
		return d.Error.Status
	}
	var s string
	if json.Unmarshal(d.Error.Code, &s) == nil {
		return s
	}
	var n int
	if json.Unmarshal(d.Error.Code, &n) == nil {
		return strconv.Itoa(n)
	}
	return ""
}

func (d DownstreamErrorResponse) detail() string {
	if len(d.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(d.Detail, &s) == nil {
		return s
	}
	return string(d.Detail)
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. If the response body matches one of the
// known error formats, the code and message are preserved. Otherwise a generic
// error is returned with the status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Upstream(serviceName,
			fmt.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err))
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil {
		switch {
		case downstream.Error != nil:
			return mapDownstreamError(resp.StatusCode, downstream.code(), downstream.Error.Message, serviceName)
		case downstream.detail() != "":
			return mapDownstreamError(resp.StatusCode, "", downstream.detail(), serviceName)
		}
	}

	// Fallback: unstructured error body.
	return mapDownstreamError(resp.StatusCode, "", strings.TrimSpace(string(bodyBytes)), serviceName)
}

// mapDownstreamError translates a downstream service's HTTP status code and
// error code into an AppError. Every result also matches ErrUpstream so
// callers can tell a failed dependency from their own input errors.
func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)
	cause := fmt.Errorf("%s returned status %d: %s", serviceName, status, message)

	var appErr *apperrors.AppError
	switch {
	case status == http.StatusNotFound:
		appErr = apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		appErr = apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		appErr = apperrors.Conflict(qualifiedMsg)
	case status == http.StatusUnauthorized:
		appErr = apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusForbidden:
		appErr = apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusGone:
		appErr = apperrors.Gone(qualifiedMsg)
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		appErr = &apperrors.AppError{
			Code:    codeOr(code, "SERVICE_UNAVAILABLE"),
			Message: qualifiedMsg,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	case status >= 500:
		return apperrors.Upstream(serviceName, fmt.Errorf("server error (%d/%s): %s", status, code, message))
	default:
		appErr = &apperrors.AppError{
			Code:    codeOr(code, "UPSTREAM_ERROR"),
			Message: qualifiedMsg,
			Status:  status,
		}
	}

	appErr.Err = joinUpstream(appErr.Err, cause)
	return appErr
}

func joinUpstream(sentinel, cause error) error {
	if sentinel == nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUpstream, cause)
	}
	return fmt.Errorf("%w: %w: %w", sentinel, apperrors.ErrUpstream, cause)
}

func codeOr(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return code
}
