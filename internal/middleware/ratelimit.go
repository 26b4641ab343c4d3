package middleware

import (
	"net/http"
	"sync"
	"time"

	"barbershop/backend/internal/httpjson"
	"barbershop/backend/internal/i18n"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per signed-in user.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	perMin   int
	now      func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewRateLimiter(perMin int) *RateLimiter {
	if perMin <= 0 {
		perMin = 30
	}
	return &RateLimiter{limiters: map[string]*limiterEntry{}, perMin: perMin, now: time.Now}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMin)), rl.perMin)}
		rl.limiters[key] = e
	}
	e.seen = now

	// drop buckets idle long enough to have refilled
	if len(rl.limiters) > 1024 {
		for k, old := range rl.limiters {
			if now.Sub(old.seen) > time.Minute {
				delete(rl.limiters, k)
			}
		}
	}
	return e.lim
}

// Middleware limits by uid; it must run after WithAuth.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if au, ok := GetAuthUser(r.Context()); ok {
			key = au.UID
		}
		if !rl.get(key).Allow() {
			httpjson.Error(w, http.StatusTooManyRequests, i18n.T(Language(r.Context()), i18n.MsgRateLimited))
			return
		}
		next.ServeHTTP(w, r)
	})
}
