package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
)

func rateLimited(t *testing.T, cfg RateLimitConfig) (echo.HandlerFunc, *echo.Echo) {
	t.Helper()
	handler := RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return handler, echo.New()
}

func TestRateLimit_WithinBurst(t *testing.T) {
	handler, e := rateLimited(t, RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: X-RateLimit-Limit = %q, want 10", i+1, got)
		}
	}
}

func TestRateLimit_BurstExhausted(t *testing.T) {
	handler, e := rateLimited(t, RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
		if err := handler(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	if err == nil {
		t.Fatal("expected the third request to be throttled")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.Code)
	}

	retryAfter, parseErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if parseErr != nil {
		t.Fatalf("Retry-After is not an integer: %q", rec.Header().Get("Retry-After"))
	}
	if retryAfter < 1 {
		t.Errorf("expected Retry-After >= 1, got %d", retryAfter)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

func TestRateLimit_OrganizationsThrottledSeparately(t *testing.T) {
	handler, e := rateLimited(t, RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	request := func(org string) error {
		req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.Set("jwt_tenant_id", org)
		return handler(c)
	}

	if err := request("salon_abc"); err != nil {
		t.Fatalf("first salon_abc request: %v", err)
	}
	if err := request("salon_abc"); err == nil {
		t.Fatal("second salon_abc request should be throttled")
	}
	// A different organization draws from its own bucket.
	if err := request("salon_xyz"); err != nil {
		t.Fatalf("first salon_xyz request: %v", err)
	}
}

func TestLimitKey(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("jwt_tenant_id", "salon_abc")
	req.Header.Set("X-Org-ID", "ignored_when_claim_present")
	if key := limitKey(c); key != "salon_abc:"+c.RealIP() {
		t.Errorf("claim should win: got %q", key)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Org-ID", "salon_xyz")
	c = e.NewContext(req, httptest.NewRecorder())
	if key := limitKey(c); key != "salon_xyz:"+c.RealIP() {
		t.Errorf("header fallback: got %q", key)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	if key := limitKey(c); key != ":"+c.RealIP() {
		t.Errorf("anonymous request keys on address alone: got %q", key)
	}
}

func TestBucket_RetryEstimateWithZeroRate(t *testing.T) {
	b := newBucket(0, 1)
	if !b.take() {
		t.Fatal("the single burst token should be available")
	}
	if b.take() {
		t.Fatal("bucket should be dry")
	}
	if got := b.secondsUntilToken(); got != 1 {
		t.Errorf("zero refill rate should report 1 second, got %d", got)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
