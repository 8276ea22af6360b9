package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBackendUnreachable wraps transport failures where no response arrived.
var ErrBackendUnreachable = errors.New("backend unreachable")

// APIError is a response the backend produced itself. Message is surfaced to
// the end user verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend rejected request: status=%d message=%s", e.StatusCode, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// UserMessage extracts what should be shown to the donor for a failed call.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrBackendUnreachable) {
		return "unable to reach the donation service, please check your network and try again"
	}
	return defaultErrorMessage
}

const defaultErrorMessage = "something went wrong, please try again"
