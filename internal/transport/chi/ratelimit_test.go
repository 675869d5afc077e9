package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_UnderLimit_PassThrough(t *testing.T) {
	rl := NewRateLimiter(60, 5)
	handler := rl.Middleware()(okHandler())

	req := httptest.NewRequest("POST", "/search", http.NoBody)
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimiter_BurstExceeded_429(t *testing.T) {
	rl := NewRateLimiter(6, 2)
	handler := rl.Middleware()(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/search", http.NoBody)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d, want %d", last.Code, http.StatusTooManyRequests)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(last.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != ErrorCodeRateLimited {
		t.Errorf("code = %s, want %s", errResp.Code, ErrorCodeRateLimited)
	}
	if errResp.RetryAfter <= 0 {
		t.Errorf("retryAfter = %d, want > 0", errResp.RetryAfter)
	}
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	rl := NewRateLimiter(6, 1)
	handler := rl.Middleware()(okHandler())

	first := httptest.NewRequest("POST", "/search", http.NoBody)
	first.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("first client: got %d, want %d", rr.Code, http.StatusOK)
	}

	// Same client again, bucket drained
	again := httptest.NewRequest("POST", "/search", http.NoBody)
	again.RemoteAddr = "10.0.0.1:5678"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, again)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("same client: got %d, want %d", rr.Code, http.StatusTooManyRequests)
	}

	// Different client gets its own bucket
	other := httptest.NewRequest("POST", "/search", http.NoBody)
	other.RemoteAddr = "10.0.0.2:1234"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Errorf("other client: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimiter_ForwardedForIdentifiesClient(t *testing.T) {
	rl := NewRateLimiter(6, 1)
	handler := rl.Middleware()(okHandler())

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("POST", "/search", http.NoBody)
		req.RemoteAddr = "172.16.0.1:1234"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 172.16.0.1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != want {
			t.Errorf("request %d: got %d, want %d", i, rr.Code, want)
		}
	}
}

func TestRateLimiter_Disabled_PassThrough(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("POST", "/search", http.NoBody)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want %d", i, rr.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_HealthExempt(t *testing.T) {
	rl := NewRateLimiter(6, 1)
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/health", http.NoBody)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("probe %d: got %d, want %d", i, rr.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_GCDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(6, 1)
	rl.allow("10.0.0.1")
	rl.allow("10.0.0.2")

	rl.gc(time.Now().Add(limiterIdleTTL + time.Minute))

	rl.mu.Lock()
	n := len(rl.clients)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("clients after gc = %d, want 0", n)
	}
}
