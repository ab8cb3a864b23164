package telegram

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// APIError is a non-OK response from the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

// FloodWaitError is a rate-limit response carrying the mandated cooldown.
// Callers must suspend for RetryAfter before retrying.
type FloodWaitError struct {
	RetryAfter time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("telegram: rate limited, retry after %s", e.RetryAfter)
}

// FloodWait reports whether err is a rate-limit signal and, if so, the
// cooldown the gateway mandated.
func FloodWait(err error) (time.Duration, bool) {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw.RetryAfter, true
	}
	return 0, false
}

// IsTransient reports whether err is worth retrying under the caller's own
// policy: timeouts, rate limits and gateway-side 5xx responses.
func IsTransient(err error) bool {
	if _, ok := FloodWait(err); ok {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500
	}
	return false
}
