package auth

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"notekeeper/internal/httpx"
)

type counter struct {
	count   int
	resetAt time.Time
}

// MemoryCounterStore keeps counters in process memory. State is lost on
// restart and is not shared between instances.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*counter
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*counter)}
}

func (s *MemoryCounterStore) Take(_ context.Context, key string, max int, window time.Duration, now time.Time) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.After(c.resetAt) {
		c = &counter{count: 1, resetAt: now.Add(window)}
		s.counters[key] = c
		return true, c.resetAt, nil
	}

	if c.count >= max {
		return false, c.resetAt, nil
	}

	c.count++
	return true, c.resetAt, nil
}

func (s *MemoryCounterStore) Prune(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, c := range s.counters {
		if now.After(c.resetAt) {
			delete(s.counters, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryCounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

type RateLimiter struct {
	store CounterStore
	now   func() time.Time
}

func NewRateLimiter(store CounterStore) *RateLimiter {
	if store == nil {
		store = NewMemoryCounterStore()
	}
	return &RateLimiter{store: store, now: time.Now}
}

// Allow counts one attempt for identifier. The first attempt, and the first
// one after the window elapsed, opens a fresh window; attempts beyond
// maxAttempts inside a window are refused. Store failures fail open.
func (l *RateLimiter) Allow(ctx context.Context, identifier string, maxAttempts int, window time.Duration) bool {
	allowed, _ := l.allow(ctx, identifier, maxAttempts, window)
	return allowed
}

func (l *RateLimiter) allow(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (bool, time.Duration) {
	now := l.now().UTC()
	allowed, resetAt, err := l.store.Take(ctx, identifier, maxAttempts, window, now)
	if err != nil {
		return true, 0
	}
	if allowed {
		return true, 0
	}

	retryAfter := resetAt.Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return false, retryAfter
}

func (l *RateLimiter) Prune(ctx context.Context) (int, error) {
	return l.store.Prune(ctx, l.now().UTC())
}

// Middleware throttles next per client address under the given operation name.
func (l *RateLimiter) Middleware(operation, message string, maxAttempts int, window time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := operation + "_" + httpx.ClientIP(r)

		allowed, retryAfter := l.allow(r.Context(), key, maxAttempts, window)
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			httpx.WriteError(w, httpx.RateLimited(message))
			return
		}

		next.ServeHTTP(w, r)
	})
}
