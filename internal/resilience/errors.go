// Package resilience classifies pipeline errors and retries transient
// ones. The taxonomy: a source that cannot be reached or times out is
// unavailable (cascade to the next fallback); a source that responds
// with an unparseable payload is a parse failure (same cascading
// treatment, logged with an error confidence marker).
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// SourceError marks a failure of one external source within a cascade.
// It never surfaces past the stage that owns the cascade.
type SourceError struct {
	Source string // which collaborator failed
	Parse  bool   // true for schema/parse failures, false for unavailability
	Err    error
}

func (e *SourceError) Error() string {
	kind := "unavailable"
	if e.Parse {
		kind = "parse failure"
	}
	return e.Source + " " + kind + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a source-unavailable failure.
func Unavailable(source string, err error) *SourceError {
	return &SourceError{Source: source, Err: err}
}

// ParseFailure wraps err as a schema-mismatch failure.
func ParseFailure(source string, err error) *SourceError {
	return &SourceError{Source: source, Parse: true, Err: err}
}

// IsTransient returns true if the error (or any error in its chain)
// matches common transient patterns (network timeouts, connection
// resets, DNS failures). Parse failures are never transient: the same
// request would produce the same malformed payload.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *SourceError
	if errors.As(err, &se) && se.Parse {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
