package kit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestMemoryWindow_LimitsPerKey(t *testing.T) {
	l := NewMemoryWindow(2, time.Minute)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1", now)
		if err != nil || !ok {
			t.Fatalf("hit %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "10.0.0.1", now); ok {
		t.Fatalf("third hit should be limited")
	}
	if ok, _ := l.Allow(ctx, "10.0.0.2", now); !ok {
		t.Fatalf("other key should not be limited")
	}
}

func TestMemoryWindow_Slides(t *testing.T) {
	l := NewMemoryWindow(1, time.Second)
	ctx := context.Background()
	now := time.Now()

	if ok, _ := l.Allow(ctx, "k", now); !ok {
		t.Fatalf("first hit limited")
	}
	if ok, _ := l.Allow(ctx, "k", now.Add(500*time.Millisecond)); ok {
		t.Fatalf("hit inside window should be limited")
	}
	if ok, _ := l.Allow(ctx, "k", now.Add(1500*time.Millisecond)); !ok {
		t.Fatalf("hit after window should pass")
	}
}

func setupRedisWindow(t *testing.T, limit int, window time.Duration) (*RedisWindow, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisWindow(client, limit, window), mr
}

func TestRedisWindow_LimitsPerKey(t *testing.T) {
	l, _ := setupRedisWindow(t, 2, time.Minute)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1", now)
		if err != nil || !ok {
			t.Fatalf("hit %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := l.Allow(ctx, "10.0.0.1", now)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatalf("third hit should be limited")
	}
	if ok, _ := l.Allow(ctx, "10.0.0.2", now); !ok {
		t.Fatalf("other key should not be limited")
	}
}

func TestRedisWindow_SetsExpiry(t *testing.T) {
	l, mr := setupRedisWindow(t, 5, time.Minute)

	if _, err := l.Allow(context.Background(), "k", time.Now()); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("keys=%v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl=%s", ttl)
	}
}

func TestRedisWindow_BackendDown(t *testing.T) {
	l, mr := setupRedisWindow(t, 5, time.Minute)
	mr.Close()

	if _, err := l.Allow(context.Background(), "k", time.Now()); err == nil {
		t.Fatalf("expected error with redis down")
	}
}

type failingWindow struct{}

func (failingWindow) Allow(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("boom")
}

func (failingWindow) Window() time.Duration { return time.Second }

func TestRateLimiter_Middleware(t *testing.T) {
	rl := &RateLimiter{Backend: NewMemoryWindow(1, time.Minute), Log: zap.NewNop()}
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/produtos", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := do(); rr.Code != http.StatusNoContent {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := do()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("retry-after=%q", rr.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl := &RateLimiter{Backend: failingWindow{}, Log: zap.NewNop()}
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/produtos", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("remote addr ip=%q", got)
	}

	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("forwarded ip=%q", got)
	}
}
