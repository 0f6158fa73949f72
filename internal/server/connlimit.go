package server

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/battalionsim/internal/config"
)

// ConnLimiter caps concurrent WebSocket sessions per address and in total.
type ConnLimiter struct {
	mu       sync.Mutex
	perAddr  map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

// ConnStats is a snapshot of the limiter's counters.
type ConnStats struct {
	Open      int `json:"open"`
	Addresses int `json:"addresses"`
}

// NewConnLimiter returns a limiter for cfg. Zero limits are unlimited.
func NewConnLimiter(cfg config.ConnectionsConfig) *ConnLimiter {
	return &ConnLimiter{
		perAddr:  make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
	}
}

// TryAcquire takes a slot for ip. On success it returns a release func that
// is safe to call more than once.
func (c *ConnLimiter) TryAcquire(ip string) (release func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTotal > 0 && c.total >= c.maxTotal {
		return nil, false
	}
	if c.maxPerIP > 0 && c.perAddr[ip] >= c.maxPerIP {
		return nil, false
	}

	c.perAddr[ip]++
	c.total++

	var once sync.Once
	return func() { once.Do(func() { c.release(ip) }) }, true
}

func (c *ConnLimiter) release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := c.perAddr[ip]; n > 1 {
		c.perAddr[ip] = n - 1
	} else {
		delete(c.perAddr, ip)
	}
	if c.total > 0 {
		c.total--
	}
}

// Stats returns the open session count and distinct addresses.
func (c *ConnLimiter) Stats() ConnStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnStats{Open: c.total, Addresses: len(c.perAddr)}
}

// Count returns the open sessions of ip.
func (c *ConnLimiter) Count(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perAddr[ip]
}

// clientIP returns the caller's address, preferring the first
// X-Forwarded-For hop and then X-Real-IP when behind a proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return hostOnly(r.RemoteAddr)
}

// hostOnly strips the port from an ip:port address.
func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
