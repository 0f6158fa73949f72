// Package throttle limits how fast a single WebSocket session may send
// requests.
package throttle

import (
	"sync"
	"time"
)

// Config holds request throttling configuration
type Config struct {
	Enabled     bool          // Whether throttling is enabled
	MaxRequests int           // Max requests allowed in the time window
	TimeWindow  time.Duration // Sliding window length
}

// DefaultConfig returns the limits used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxRequests: 30,
		TimeWindow:  10 * time.Second,
	}
}

// ConfigFromYAML creates a Config from YAML-loaded values. A non-positive
// maxRequests disables throttling.
func ConfigFromYAML(maxRequests, windowSeconds int) Config {
	cfg := DefaultConfig()
	if maxRequests <= 0 {
		cfg.Enabled = false
		return cfg
	}
	cfg.MaxRequests = maxRequests
	if windowSeconds > 0 {
		cfg.TimeWindow = time.Duration(windowSeconds) * time.Second
	}
	return cfg
}

// Tracker tracks request times for one session
type Tracker struct {
	mu           sync.Mutex
	config       Config
	requestTimes []time.Time
	now          func() time.Time
}

// NewTracker creates a new tracker with the given config
func NewTracker(config Config) *Tracker {
	return &Tracker{
		config:       config,
		requestTimes: make([]time.Time, 0, max(config.MaxRequests, 0)),
		now:          time.Now,
	}
}

// CheckResult contains the result of a throttle check
type CheckResult struct {
	Allowed     bool
	Reason      string
	WaitSeconds int // How long to wait before trying again (if not allowed)
}

// Check records a request if the session is under its limit.
func (t *Tracker) Check() CheckResult {
	if !t.config.Enabled {
		return CheckResult{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.cleanup(now)

	if len(t.requestTimes) >= t.config.MaxRequests {
		// The oldest request leaves the window first
		remaining := t.requestTimes[0].Add(t.config.TimeWindow).Sub(now)
		return CheckResult{
			Allowed:     false,
			Reason:      "too many requests, slow down",
			WaitSeconds: int(remaining.Seconds()) + 1,
		}
	}

	t.requestTimes = append(t.requestTimes, now)
	return CheckResult{Allowed: true}
}

// cleanup drops requests that fell out of the window
func (t *Tracker) cleanup(now time.Time) {
	cutoff := now.Add(-t.config.TimeWindow)
	kept := t.requestTimes[:0]
	for _, at := range t.requestTimes {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.requestTimes = kept
}

// Reset clears all tracking data
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestTimes = t.requestTimes[:0]
}
