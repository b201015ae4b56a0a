package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestSourceError_Message(t *testing.T) {
	unavailable := Unavailable("geocoder", errors.New("connection refused"))
	if got := unavailable.Error(); got != "geocoder unavailable: connection refused" {
		t.Errorf("unexpected message: %q", got)
	}

	parse := ParseFailure("oracle", errors.New("invalid character 'I'"))
	if got := parse.Error(); got != "oracle parse failure: invalid character 'I'" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestSourceError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	wrapped := fmt.Errorf("stage failed: %w", Unavailable("listings", inner))

	if !errors.Is(wrapped, inner) {
		t.Error("expected wrapped chain to reach the inner error")
	}

	var se *SourceError
	if !errors.As(wrapped, &se) {
		t.Fatal("expected SourceError in chain")
	}
	if se.Source != "listings" {
		t.Errorf("expected source listings, got %q", se.Source)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"net timeout", timeoutErr{}, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"reset message", errors.New("read tcp: connection reset by peer"), true},
		{"dns failure", errors.New("dial tcp: lookup api.example.com: no such host"), true},
		{"tls timeout", errors.New("net/http: TLS handshake timeout"), true},
		{"plain error", errors.New("bad request"), false},
		{"unavailable with transient cause", Unavailable("places", timeoutErr{}), true},
		{"parse failure never transient", ParseFailure("places", timeoutErr{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
