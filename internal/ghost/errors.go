package ghost

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// TransientError wraps an error that is likely temporary and safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError, meaning the caller should retry after a backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// HTTPError is a non-2xx response from the Ghost API.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Body       APIErrorList
	RawBody    string
}

func (e *HTTPError) Error() string {
	if msg := e.Body.String(); msg != "" {
		return fmt.Sprintf("API %s (%d): %s", e.Endpoint, e.StatusCode, msg)
	}

	return fmt.Sprintf("API %s returned status %d: %s", e.Endpoint, e.StatusCode, e.RawBody)
}

// Message returns the first server-provided error message, if any.
func (e *HTTPError) Message() string {
	if len(e.Body.Errors) > 0 {
		return e.Body.Errors[0].Message
	}

	return e.RawBody
}

// StatusCode returns the HTTP status of err, or 0 if err is not an HTTPError.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}

	return 0
}

// IsUnauthorized reports a 401 or 403 response.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnprocessable reports a 422 response. Ghost answers a wrong password
// with 422 ValidationError.
func IsUnprocessable(err error) bool {
	return StatusCode(err) == http.StatusUnprocessableEntity
}

// IsTooManyRequests reports a 429 response.
func IsTooManyRequests(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsCredentialRejection reports whether the server refused the supplied
// credentials. Ghost uses 401/403 for bad tokens, 404 for an unknown
// email and 422 for a wrong password.
func IsCredentialRejection(err error) bool {
	return IsUnauthorized(err) || IsNotFound(err) || IsUnprocessable(err)
}

// isTransientStatus returns true for HTTP status codes that indicate a
// temporary server-side problem worth retrying.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}
