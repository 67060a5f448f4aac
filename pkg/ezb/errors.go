package ezb

import (
	"errors"
	"fmt"
)

// ErrUnsuccessful is wrapped when the API answers with success=false.
var ErrUnsuccessful = errors.New("api reported failure")

// APIError describes a failed call. StatusCode is 0 for transport level
// failures, timeouts and undecodable responses.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d on %s: %s", e.StatusCode, e.Endpoint, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a gateway error without an HTTP status.
func IsTransport(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 0
}
