package jointspace

import "errors"

var (
	// ErrTimeout indicates the television did not answer in time
	ErrTimeout = errors.New("request timed out")

	// ErrRefused indicates the television could not be reached
	ErrRefused = errors.New("connection refused")

	// ErrUnexpectedStatus indicates a non-200 response
	ErrUnexpectedStatus = errors.New("unexpected status")
)
