package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Middleware enforces the limiter's rules. Requests to paths without a rule
// pass through untouched. Rejected requests get a JSON 429 with Retry-After.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}

			result, allowed := l.Allow(ip, r.Method, r.URL.Path)
			if result.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			}
			if !allowed {
				retrySecs := int(result.RetryIn / time.Second)
				if retrySecs < 1 {
					retrySecs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retrySecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":          false,
					"error":       "rate limit exceeded",
					"retry_after": retrySecs,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
