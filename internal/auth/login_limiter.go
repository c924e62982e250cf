package auth

import (
	"context"
	"time"

	"userauth/internal/cache"
)

const loginAttemptKeyPrefix = "login_attempts:"

// LoginLimiterInterface throttles repeated login attempts for one email.
type LoginLimiterInterface interface {
	Allow(ctx context.Context, email string) bool
	Reset(ctx context.Context, email string)
}

// LoginLimiter counts login attempts per email in Redis. Every call to Allow
// consumes one attempt, and a successful login calls Reset, so the counter
// effectively holds consecutive failures. Reserving the attempt with a single
// INCR keeps concurrent requests from exceeding the limit.
type LoginLimiter struct {
	cache       *cache.Client
	maxAttempts int64
	window      time.Duration
}

// Ensure LoginLimiter implements LoginLimiterInterface
var _ LoginLimiterInterface = (*LoginLimiter)(nil)

// NewLoginLimiter creates a limiter that blocks an email once maxAttempts
// unsuccessful attempts were made within window. maxAttempts <= 0 disables it.
func NewLoginLimiter(cache *cache.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		cache:       cache,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

// Allow reserves an attempt for email and reports whether it is within the limit.
func (l *LoginLimiter) Allow(ctx context.Context, email string) bool {
	if l.maxAttempts <= 0 {
		return true
	}
	count, err := l.cache.Incr(ctx, loginAttemptKeyPrefix+email, l.window)
	if err != nil {
		return true // Fail open if redis is down
	}
	return count <= l.maxAttempts
}

// Reset clears the attempt counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if l.maxAttempts <= 0 {
		return
	}
	_ = l.cache.Delete(ctx, loginAttemptKeyPrefix+email)
}
