package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmynk/synapso/internal/models"
)

// LoginThrottle limits login attempts per (client IP, name) with a token
// bucket, so guessing one account's password is slow without locking the
// account for everybody else.
type LoginThrottle struct {
	limiters map[string]*throttleEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginThrottle allows perMinute attempts per minute with the given burst.
func NewLoginThrottle(perMinute, burst int) *LoginThrottle {
	return &LoginThrottle{
		limiters: make(map[string]*throttleEntry),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// throttleKey folds name like the user store, so "Élodie" and "ÉLODIE" share a bucket.
func throttleKey(ip, name string) string {
	return ip + "|" + models.NameKey(name)
}

// Allow consumes one attempt for (ip, name) and reports whether it is allowed.
func (t *LoginThrottle) Allow(ip, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := throttleKey(ip, name)
	now := t.now()
	entry, exists := t.limiters[key]
	if !exists {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// Reset forgets the attempts of (ip, name), after a successful login.
func (t *LoginThrottle) Reset(ip, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.limiters, throttleKey(ip, name))
}

// Cleanup removes limiters idle for longer than the idle period.
func (t *LoginThrottle) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.idle)
	removed := 0
	for key, entry := range t.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(t.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (t *LoginThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (t *LoginThrottle) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Cleanup()
			}
		}
	}()
}
