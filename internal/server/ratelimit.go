package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/battalionsim/internal/config"
)

// LoginRateLimiter locks an address out after repeated failed profile logins.
// Each successive lockout doubles, up to the configured maximum.
type LoginRateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*attemptInfo
	maxAttempts int
	lockout     time.Duration
	maxLockout  time.Duration
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

type attemptInfo struct {
	failures    int
	lockouts    int
	lockedUntil time.Time
	lastSeen    time.Time
}

const rateLimitSweepInterval = 5 * time.Minute

// NewLoginRateLimiter returns a limiter for cfg and starts its sweeper.
// Call Stop to end the sweeper.
func NewLoginRateLimiter(cfg config.RateLimitConfig) *LoginRateLimiter {
	rl := &LoginRateLimiter{
		attempts:    make(map[string]*attemptInfo),
		maxAttempts: cfg.MaxAttempts,
		lockout:     time.Duration(cfg.LockoutSeconds) * time.Second,
		maxLockout:  time.Duration(cfg.MaxLockoutSeconds) * time.Second,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	if rl.maxAttempts <= 0 {
		rl.maxAttempts = 5
	}
	if rl.lockout <= 0 {
		rl.lockout = 30 * time.Second
	}
	if rl.maxLockout < rl.lockout {
		rl.maxLockout = max(rl.lockout, 300*time.Second)
	}

	go rl.sweepLoop()
	return rl
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *LoginRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// IsLocked reports whether key is locked out and for how much longer.
func (rl *LoginRateLimiter) IsLocked(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, ok := rl.attempts[key]
	if !ok {
		return false, 0
	}
	if remaining := info.lockedUntil.Sub(rl.now()); remaining > 0 {
		return true, remaining
	}
	return false, 0
}

// RecordFailure counts a failed login for key. It reports whether key is now
// locked out and for how long.
func (rl *LoginRateLimiter) RecordFailure(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	info, ok := rl.attempts[key]
	if !ok {
		info = &attemptInfo{}
		rl.attempts[key] = info
	}
	info.lastSeen = now

	if remaining := info.lockedUntil.Sub(now); remaining > 0 {
		return true, remaining
	}

	info.failures++
	if info.failures < rl.maxAttempts {
		return false, 0
	}

	info.lockouts++
	info.failures = 0
	d := rl.lockoutFor(info.lockouts)
	info.lockedUntil = now.Add(d)
	return true, d
}

// lockoutFor returns the lockout length of the nth lockout.
func (rl *LoginRateLimiter) lockoutFor(n int) time.Duration {
	d := rl.lockout
	for i := 1; i < n; i++ {
		if d >= rl.maxLockout/2 {
			return rl.maxLockout
		}
		d *= 2
	}
	return min(d, rl.maxLockout)
}

// RecordSuccess forgets key's failures and lockout history.
func (rl *LoginRateLimiter) RecordSuccess(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, key)
}

// Failures returns the failures counted toward key's next lockout.
func (rl *LoginRateLimiter) Failures(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if info, ok := rl.attempts[key]; ok {
		return info.failures
	}
	return 0
}

func (rl *LoginRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rateLimitSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops entries idle for ten minutes past their lockout.
func (rl *LoginRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	for key, info := range rl.attempts {
		if info.lockedUntil.Before(cutoff) && info.lastSeen.Before(cutoff) {
			delete(rl.attempts, key)
		}
	}
}
