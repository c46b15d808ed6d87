package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hrperf/internal/transport/http/api"
	"hrperf/internal/transport/http/shared"
)

const (
	apiPrefix        = "/api/v1"
	maxPeekBodyBytes = 64 * 1024
	sweepThreshold   = 4096
)

type RateLimitKeyFunc func(r *http.Request) string

// RateLimit allows limit requests per window for each key, by default the
// authenticated user or else the client IP.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	ls := newLimiterSet(limit, window, actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ls.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

type routeClass int

const (
	routeOrdinary routeClass = iota
	routeLogin
	routeWorkflow
)

// workflowRoutes are mutations that move evaluations or rewrite aggregated
// results, keyed by path prefix and suffix under the API prefix.
var workflowRoutes = []struct{ prefix, suffix string }{
	{"/employees/", "/aggregate-subordinates"},
	{"/performance/evaluations/", "/check"},
	{"/performance/evaluations/", "/state"},
	{"/performance/evaluations/", "/level"},
}

// SensitiveMutationRateLimit applies tighter budgets to login attempts
// (a quarter of baseLimit, by IP and by email) and to evaluation workflow
// mutations (half of baseLimit, by actor).
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	loginLimit := max(baseLimit/4, 1)
	loginByIP := newLimiterSet(loginLimit, window, clientIPKey)
	loginByEmail := newLimiterSet(loginLimit, window, AuthEmailOrIPKey("email"))
	workflow := newLimiterSet(max(baseLimit/2, 1), window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch classifyRoute(r) {
			case routeLogin:
				if !loginByIP.allow(w, r) || !loginByEmail.allow(w, r) {
					return
				}
			case routeWorkflow:
				if !workflow.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func classifyRoute(r *http.Request) routeClass {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return routeOrdinary
	}
	path := strings.TrimPrefix(strings.TrimSpace(r.URL.Path), apiPrefix)
	if path == "/auth/login" {
		return routeLogin
	}
	for _, route := range workflowRoutes {
		if strings.HasPrefix(path, route.prefix) && strings.HasSuffix(path, route.suffix) {
			return routeWorkflow
		}
	}
	return routeOrdinary
}

// AuthEmailOrIPKey keys on the lowercased JSON body field, falling back to the client IP.
func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "email"
	}
	return func(r *http.Request) string {
		if value := peekJSONField(r, field); value != "" {
			return "email:" + strings.ToLower(value)
		}
		return clientIPKey(r)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.TenantID + ":" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	return "ip:" + shared.ClientIP(r)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per key. Each bucket holds limit tokens
// and refills one token every window/limit.
type limiterSet struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	keyFn   RateLimitKeyFunc
	entries map[string]*limiterEntry
}

func newLimiterSet(limit int, window time.Duration, keyFn RateLimitKeyFunc) *limiterSet {
	return &limiterSet{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		entries: map[string]*limiterEntry{},
	}
}

func (ls *limiterSet) get(key string, now time.Time) *rate.Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if len(ls.entries) >= sweepThreshold {
		ls.sweep(now)
	}
	entry, ok := ls.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(ls.window/time.Duration(ls.limit)), ls.limit)}
		ls.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep drops buckets idle for a full window; they would be full again anyway.
func (ls *limiterSet) sweep(now time.Time) {
	for key, entry := range ls.entries {
		if now.Sub(entry.lastSeen) > ls.window {
			delete(ls.entries, key)
		}
	}
}

func (ls *limiterSet) allow(w http.ResponseWriter, r *http.Request) bool {
	if ls.limit <= 0 {
		return true
	}
	key := ls.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}

	now := time.Now()
	limiter := ls.get(key, now)
	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
	}

	remaining := max(int(math.Floor(limiter.TokensAt(now))), 0)
	refill := time.Duration(float64(ls.limit-remaining) * float64(ls.window) / float64(ls.limit))
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(ls.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	headers.Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(refill)))
	if delay <= 0 {
		return true
	}

	headers.Set("Retry-After", strconv.Itoa(max(ceilSeconds(delay), 1)))
	zap.L().Warn("rate limit exceeded",
		zap.String("key", key),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("limit", ls.limit),
		zap.Duration("window", ls.window),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// peekJSONField reads a string field from a JSON body and restores the body
// for the next handler.
func peekJSONField(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBodyBytes))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
