package remo

import "fmt"

// AuthError means the access token was rejected. It is terminal: callers must
// stop polling and ask the user for a fresh token.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nature api: invalid access token: %v", e.Err)
	}
	return "nature api: invalid access token"
}

func (e *AuthError) Unwrap() error { return e.Err }

// TimeoutError means the request exceeded its deadline.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("nature api: request timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnectionError covers transport failures (DNS, refused, TLS).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("nature api: connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResponseError covers unexpected status codes and undecodable payloads.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("nature api error %d", e.StatusCode)
	}
	return fmt.Sprintf("nature api error %d: %s", e.StatusCode, e.Body)
}

// ValidationError means the caller supplied an invalid command argument.
// It is raised before anything goes over the wire.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid command: " + e.Message
}
