package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimit_RefusesOverBurst(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})
	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	do := func() error {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		return h(e.NewContext(req, rec))
	}

	if err := do(); err != nil {
		t.Fatalf("first request refused: %v", err)
	}
	if err := do(); err != nil {
		t.Fatalf("second request refused: %v", err)
	}

	err := do()
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %v", err)
	}
}

func TestRateLimit_SetsRetryAfter(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.5, BurstSize: 1})
	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	if err := h(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("first request refused: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err == nil {
		t.Fatal("expected second request to be refused")
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on refusal")
	}
}

func TestRateLimit_IsolatesClients(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	do := func(addr string) error {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
		req.RemoteAddr = addr
		return h(e.NewContext(req, httptest.NewRecorder()))
	}

	if err := do("10.0.0.3:1"); err != nil {
		t.Fatalf("client A refused: %v", err)
	}
	if err := do("10.0.0.3:1"); err == nil {
		t.Fatal("expected client A to be throttled")
	}
	if err := do("10.0.0.4:1"); err != nil {
		t.Fatalf("client B should not share client A's bucket: %v", err)
	}
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := newLimiter(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 1})
	now := time.Now()

	if ok, _ := l.allow("c1", now); !ok {
		t.Fatal("first request refused")
	}
	if ok, _ := l.allow("c1", now); ok {
		t.Fatal("expected empty bucket to refuse")
	}
	if ok, _ := l.allow("c1", now.Add(time.Second)); !ok {
		t.Fatal("expected bucket to refill after a second")
	}
}

func TestLimiter_EvictsIdleClients(t *testing.T) {
	l := newLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	now := time.Now()
	l.lastSweep = now

	l.allow("c1", now)
	l.allow("c2", now)
	if got := l.size(); got != 2 {
		t.Fatalf("clients = %d, want 2", got)
	}

	later := now.Add(2 * clientIdleTTL)
	l.allow("c3", later)
	if got := l.size(); got != 1 {
		t.Errorf("clients = %d after sweep, want only the active one", got)
	}
}
