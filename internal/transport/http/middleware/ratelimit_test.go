package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrperf/internal/domain/auth"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func loginRequest(email, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func userContext(userID string) context.Context {
	return WithUser(context.Background(), auth.UserContext{TenantID: "tenant-1", UserID: userID})
}

func TestRateLimitKeysOnUserAcrossIPs(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())
	ctx := userContext("user-1")

	first := httptest.NewRequest(http.MethodPost, "/api/v1/performance/evaluations/e1/check", nil).WithContext(ctx)
	first.RemoteAddr = "198.51.100.11:2222"
	assert.Equal(t, http.StatusNoContent, serve(limited, first).Code)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/performance/evaluations/e1/check", nil).WithContext(ctx)
	second.RemoteAddr = "198.51.100.12:3333"
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, second).Code)
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("a@example.com", "203.0.113.10:4444")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, loginRequest("b@example.com", "203.0.113.10:5555")).Code)
}

func TestRateLimitRefillsAfterWindow(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(noContent())

	assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("a@example.com", "192.0.2.20:1111")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, loginRequest("a@example.com", "192.0.2.20:1111")).Code)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("a@example.com", "192.0.2.20:1111")).Code)
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	ok := serve(limited, loginRequest("a@example.com", "192.0.2.30:1234"))
	assert.Equal(t, "1", ok.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", ok.Header().Get("X-RateLimit-Remaining"))

	rec := serve(limited, loginRequest("a@example.com", "192.0.2.30:1234"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/performance/dashboard", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		assert.Equal(t, http.StatusNoContent, serve(limited, req).Code, "read request %d", i+1)
	}

	ctx := userContext("hr-1")
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/performance/evaluations/e1/state", nil).WithContext(ctx)
		req.RemoteAddr = "198.51.100.41:9999"
		want := http.StatusNoContent
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		assert.Equal(t, want, serve(limited, req).Code, "workflow request %d", i+1)
	}
}

func TestSensitiveLoginLimitKeepsBodyReadable(t *testing.T) {
	var body string
	limited := SensitiveMutationRateLimit(4, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		body = buf.String()
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.Equal(t, http.StatusNoContent, serve(limited, loginRequest("hr@example.com", "192.0.2.50:1000")).Code)
	assert.Contains(t, body, "hr@example.com")
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, loginRequest("HR@example.com", "192.0.2.51:1000")).Code)
}

func TestClassifyRoute(t *testing.T) {
	cases := []struct {
		method, path string
		want         routeClass
	}{
		{http.MethodPost, "/api/v1/auth/login", routeLogin},
		{http.MethodGet, "/api/v1/auth/login", routeOrdinary},
		{http.MethodPost, "/api/v1/employees/e1/aggregate-subordinates", routeWorkflow},
		{http.MethodPut, "/api/v1/performance/evaluations/e1/level", routeWorkflow},
		{http.MethodPut, "/api/v1/performance/evaluations/e1/lines/l1", routeOrdinary},
		{http.MethodPost, "/api/v1/performance/objectives", routeOrdinary},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyRoute(httptest.NewRequest(tc.method, tc.path, nil)), tc.method+" "+tc.path)
	}
}

func TestLimiterSetSweepsIdleBuckets(t *testing.T) {
	ls := newLimiterSet(1, time.Minute, clientIPKey)
	now := time.Now()
	ls.get("ip:a", now.Add(-2*time.Minute))
	ls.get("ip:b", now)
	ls.sweep(now)
	assert.NotContains(t, ls.entries, "ip:a")
	assert.Contains(t, ls.entries, "ip:b")
}
