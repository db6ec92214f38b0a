package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewLimiter(3)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("u1") {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow("u1") {
		t.Fatal("fourth request should be limited")
	}
	// Other keys are independent.
	if !l.Allow("u2") {
		t.Fatal("other user must not be affected")
	}
}

func TestMiddlewareThrottlesWritesOnly(t *testing.T) {
	l := NewLimiter(1)
	defer l.Stop()

	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
		req.Header.Set("X-User-ID", "u1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := post(); code != http.StatusOK {
		t.Fatalf("first write: status = %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second write: status = %d, want 429", code)
	}

	// Reads always pass.
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("X-User-ID", "u1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("read: status = %d", rr.Code)
	}
}
