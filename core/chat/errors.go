package chat

import "errors"

var (
	// ErrNetwork marks a transport-level failure reaching the endpoint.
	ErrNetwork = errors.New("chat request failed")
	// ErrStatus marks a non-2xx response from the endpoint.
	ErrStatus = errors.New("chat endpoint returned unexpected status")
	// ErrMalformedResponse marks a 2xx response whose body could not be
	// decoded.
	ErrMalformedResponse = errors.New("chat endpoint returned malformed response")
)
