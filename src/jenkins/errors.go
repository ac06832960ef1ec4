package jenkins

import (
	"errors"
	"fmt"
)

// StatusError reports an HTTP status the caller did not expect.
// Known codes (404 absence, 401 bad credentials, 302 redirect-as-success)
// are interpreted inside this package; anything that escapes to a caller
// is a genuine failure.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jenkins returned status %d: %s", e.Code, e.Message)
}

// statusCode returns the HTTP status carried by err, or 0 when err is not
// a StatusError.
func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return statusCode(err) == 404
}

// IsUnauthorized reports whether err is a 401, i.e. the configured
// credentials were rejected.
func IsUnauthorized(err error) bool {
	return statusCode(err) == 401
}
