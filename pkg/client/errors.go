package client

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout resolves a call whose deadline elapsed before a reply.
	ErrTimeout = errors.New("aria2ws: call timed out")

	// ErrConnClosed resolves every call still pending when the connection
	// ends, and is returned by calls issued after that point.
	ErrConnClosed = errors.New("aria2ws: connection closed")
)

// RemoteError carries the error payload aria2 returned for a call, code and
// message verbatim.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("aria2ws: remote error %d: %s", e.Code, e.Message)
}
