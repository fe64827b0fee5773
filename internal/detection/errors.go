package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrNetworkFailure      = errors.New("detection backend could not be reached")
	ErrServerError         = errors.New("detection backend returned an error status")
	ErrMalformedResponse   = errors.New("malformed response from detection backend")
	ErrTimeout             = errors.New("request timed out")
	ErrForeignMediaURL     = errors.New("media url does not belong to the detection backend")
)

// StatusError is a ServerError that remembers the HTTP status and the
// backend's own error message, if it sent one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", ErrServerError, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", ErrServerError, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrServerError
}

type ErrorResponse struct {
	StatusCode int
	Message    string
}

// GetErrorResponse returns the HTTP status and user-facing message for an error
func GetErrorResponse(err error) ErrorResponse {
	switch {
	case errors.Is(err, ErrUnsupportedFileType):
		return ErrorResponse{http.StatusUnsupportedMediaType, "Unsupported file type. Please upload an image or video."}
	case errors.Is(err, ErrTimeout):
		return ErrorResponse{http.StatusGatewayTimeout, "The detection backend did not answer in time."}
	case errors.Is(err, ErrNetworkFailure):
		return ErrorResponse{http.StatusBadGateway, "The detection backend could not be reached."}
	case errors.Is(err, ErrServerError):
		return ErrorResponse{http.StatusBadGateway, "The detection backend reported an error."}
	case errors.Is(err, ErrMalformedResponse):
		return ErrorResponse{http.StatusBadGateway, "The detection backend sent an unreadable response."}
	case errors.Is(err, ErrForeignMediaURL):
		return ErrorResponse{http.StatusBadRequest, err.Error()}
	default:
		return ErrorResponse{http.StatusInternalServerError, "An unexpected error occurred. Please try again."}
	}
}

// handleNetworkError classifies a transport failure. The underlying error stays
// in the chain so callers can still match context.Canceled.
func handleNetworkError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w: %w", ErrNetworkFailure, ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
}

// handleServerError builds a StatusError from a non-success response. The
// backend answers failures with {"error": "..."}; anything else is kept short.
func handleServerError(statusCode int, body []byte) error {
	var backendError struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &backendError); err == nil && backendError.Error != "" {
		return &StatusError{StatusCode: statusCode, Message: backendError.Error}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &StatusError{StatusCode: statusCode, Message: msg}
}
