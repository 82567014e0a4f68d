package assistant

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured        = errors.New("AI service not configured")
	ErrInvalidResponseShape = errors.New("invalid response format from completion endpoint")
	ErrNoJSONFound          = errors.New("no valid JSON found in response")
	ErrMalformedJSON        = errors.New("malformed JSON in response")
)

// RequestFailedError is returned when the endpoint answers with a non-2xx
// status or the proxy reports failure.
type RequestFailedError struct {
	Status  int
	Message string
}

func (err *RequestFailedError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("API request failed: %d", err.Status)
	}
	return fmt.Sprintf("API request failed: %d: %s", err.Status, err.Message)
}
