package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 60, Burst: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst should pass", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request beyond burst should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients have their own bucket")
	}
	if rl.ActiveClients() != 2 {
		t.Errorf("ActiveClients() = %d, want 2", rl.ActiveClients())
	}
	if rl.Hits() != 1 {
		t.Errorf("Hits() = %d, want 1", rl.Hits())
	}
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	if rl.burst != 10 {
		t.Errorf("burst = %d, want 10", rl.burst)
	}
	if got := rl.retryAfter(); got != "1" {
		t.Errorf("retryAfter() = %q, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 60, Burst: 1})
	handler := rl.Middleware(func(*http.Request) string { return "client" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusNoContent},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(tt.method, "/api/entries", nil))
		if rr.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.method, rr.Code, tt.want)
		}
		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") == "" {
			t.Error("limited response should carry Retry-After")
		}
	}
}
