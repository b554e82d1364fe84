package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when the API answers 401. By the time the
	// caller sees it the session has already been torn down.
	ErrSessionExpired = errors.New("session expired")

	// ErrRemote matches every *RemoteError.
	ErrRemote = errors.New("remote request failed")
)

// RemoteError is any gateway failure other than an expired session.
// StatusCode is 0 for transport failures.
type RemoteError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRemote) hold for every RemoteError.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
