package kit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type WindowLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, error)
	Window() time.Duration
}

type RateLimiter struct {
	Backend WindowLimiter
	Log     *zap.Logger
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := l.Backend.Allow(r.Context(), clientIP(r), time.Now())
		if err != nil {
			// fail open: a broken limiter backend must not take the API down
			if l.Log != nil {
				l.Log.Warn("rate limiter backend failed", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.Backend.Window().Seconds())))
			WriteError(w, r, http.StatusTooManyRequests, "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MemoryWindow is a per-process sliding window log.
type MemoryWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
}

func NewMemoryWindow(limit int, window time.Duration) *MemoryWindow {
	return &MemoryWindow{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

func (l *MemoryWindow) Window() time.Duration { return l.window }

func (l *MemoryWindow) Allow(_ context.Context, key string, now time.Time) (bool, error) {
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := prune(l.hits[key], cutoff)
	if len(ts) >= l.limit {
		l.hits[key] = ts
		return false, nil
	}

	l.hits[key] = append(ts, now)
	return true, nil
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	n := 0
	for _, t := range ts {
		if t.After(cutoff) {
			ts[n] = t
			n++
		}
	}
	return ts[:n]
}

// RedisWindow is a fixed window counter shared by every replica that points
// at the same redis.
type RedisWindow struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisWindow(client *redis.Client, limit int, window time.Duration) *RedisWindow {
	return &RedisWindow{
		client: client,
		prefix: "catalog:ratelimit",
		limit:  limit,
		window: window,
	}
}

func (l *RedisWindow) Window() time.Duration { return l.window }

func (l *RedisWindow) Allow(ctx context.Context, key string, now time.Time) (bool, error) {
	bucket := now.UnixNano() / int64(l.window)
	k := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}

func clientIP(r *http.Request) string {
	if ip := firstForwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}

	return r.RemoteAddr
}

func firstForwardedFor(xff string) string {
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
