// Package ratelimit guards the public catalog API with per-client
// fixed-window counting. The website proxies real visitor traffic, so
// limits are keyed by IP and scoped to individual routes.
package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Rule caps requests to one method+path at Limit per Window.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
}

func (r Rule) key() string { return r.Method + ":" + r.Path }

// Result reports the state of a client's current window; it feeds the
// X-RateLimit response headers. RetryIn is set only on rejection.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	RetryIn   time.Duration
}

// window tracks one client's counter against the rule it hit.
type window struct {
	rule      Rule
	count     int
	startedAt time.Time
}

func (wi *window) expired(now time.Time) bool {
	return now.Sub(wi.startedAt) >= wi.rule.Window
}

// Limiter applies fixed-window limits per IP+route. Routes without a
// rule pass through untouched.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	entries map[string]*window // key: ip + ":" + rule key
	clock   Clock
}

func NewLimiter(rules []Rule) *Limiter {
	ruleMap := make(map[string]Rule, len(rules))
	for _, r := range rules {
		ruleMap[r.key()] = r
	}
	return &Limiter{
		rules:   ruleMap,
		entries: make(map[string]*window),
		clock:   realClock{},
	}
}

// Allow records a request from ip against method+path and reports
// whether it may proceed. Unruled routes return (Result{}, true).
func (l *Limiter) Allow(ip, method, path string) (Result, bool) {
	rule, ok := l.rules[Rule{Method: method, Path: path}.key()]
	if !ok {
		return Result{}, true
	}

	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	key := ip + ":" + rule.key()
	wi := l.entries[key]
	if wi == nil || wi.expired(now) {
		l.entries[key] = &window{rule: rule, count: 1, startedAt: now}
		return Result{Limit: rule.Limit, Remaining: rule.Limit - 1, ResetAt: now.Add(rule.Window)}, true
	}

	resetAt := wi.startedAt.Add(rule.Window)
	if wi.count >= rule.Limit {
		return Result{Limit: rule.Limit, ResetAt: resetAt, RetryIn: resetAt.Sub(now)}, false
	}

	wi.count++
	return Result{Limit: rule.Limit, Remaining: rule.Limit - wi.count, ResetAt: resetAt}, true
}

// Cleanup drops expired windows. The app runs it on a slow ticker so the
// table does not grow with every visitor IP ever seen.
func (l *Limiter) Cleanup() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, wi := range l.entries {
		if wi.expired(now) {
			delete(l.entries, key)
		}
	}
}
