package analysis

import (
	"errors"
	"fmt"
)

// ErrNotLoggedIn is returned when the backend redirects to its login page.
var ErrNotLoggedIn = errors.New("backend session is not logged in")

// ServerError is a non-2xx reply.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Server error: %d - %s", e.Status, e.Body)
}

// AnalysisError is a 2xx reply whose body reports a failure.
type AnalysisError struct {
	Message string
	Details string
}

func (e *AnalysisError) Error() string {
	return e.Message
}

// NetworkError is a transport failure before any reply was read.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
