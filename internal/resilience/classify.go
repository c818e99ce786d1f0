package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Retryable marks a provider error as safe to attempt again. It carries the
// HTTP status that produced it when one exists, so logs can distinguish a
// rate limit from a gateway failure.
type Retryable struct {
	Err    error
	Status int
}

func (e *Retryable) Error() string { return e.Err.Error() }

func (e *Retryable) Unwrap() error { return e.Err }

// MarkRetryable wraps err so IsRetryable recognizes it. status may be 0 for
// failures that never reached HTTP.
func MarkRetryable(err error, status int) *Retryable {
	return &Retryable{Err: err, Status: status}
}

// RetryableStatus reports whether an HTTP status from an AI provider is
// worth retrying. 429 counts: providers rate-limit bursty observation
// batches and recover within one backoff window.
func RetryableStatus(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}

// transientHints covers transport failures that provider SDKs flatten into
// plain error strings.
var transientHints = []string{
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"tls handshake timeout",
	"temporary failure in name resolution",
	"server closed idle connection",
}

// IsRetryable reports whether a provider call may be attempted again:
// anything wrapped via MarkRetryable, plus network-level failures that tend
// to clear on their own.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var marked *Retryable
	if errors.As(err, &marked) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNRESET,
		syscall.ECONNREFUSED,
		syscall.ECONNABORTED,
		syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range transientHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
