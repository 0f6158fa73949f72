package server

import (
	"net/http"
	"testing"

	"github.com/lawnchairsociety/battalionsim/internal/config"
)

func TestConnLimiter_PerIPLimit(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{MaxPerIP: 2, MaxTotal: 100})

	release1, ok := limiter.TryAcquire("192.168.1.1")
	if !ok {
		t.Fatal("first connection should be allowed")
	}
	if _, ok := limiter.TryAcquire("192.168.1.1"); !ok {
		t.Fatal("second connection should be allowed")
	}
	if _, ok := limiter.TryAcquire("192.168.1.1"); ok {
		t.Error("third connection from same IP should be rejected")
	}
	if _, ok := limiter.TryAcquire("192.168.1.2"); !ok {
		t.Error("connection from different IP should be allowed")
	}

	release1()
	if _, ok := limiter.TryAcquire("192.168.1.1"); !ok {
		t.Error("connection should be allowed after release")
	}
}

func TestConnLimiter_TotalLimit(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{MaxPerIP: 10, MaxTotal: 3})

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if _, ok := limiter.TryAcquire(ip); !ok {
			t.Fatalf("connection from %s should be allowed", ip)
		}
	}
	if _, ok := limiter.TryAcquire("10.0.0.4"); ok {
		t.Error("fourth connection should exceed the total limit")
	}
}

func TestConnLimiter_Unlimited(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{})

	for i := 0; i < 50; i++ {
		if _, ok := limiter.TryAcquire("192.168.1.1"); !ok {
			t.Fatalf("connection %d should be allowed with no limits", i)
		}
	}
}

func TestConnLimiter_ReleaseIsIdempotent(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{MaxPerIP: 5})

	release, _ := limiter.TryAcquire("192.168.1.1")
	limiter.TryAcquire("192.168.1.1")

	release()
	release()

	if got := limiter.Count("192.168.1.1"); got != 1 {
		t.Errorf("Count = %d after double release, want 1", got)
	}
}

func TestConnLimiter_Stats(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{})

	r1, _ := limiter.TryAcquire("192.168.1.1")
	r2, _ := limiter.TryAcquire("192.168.1.1")
	limiter.TryAcquire("192.168.1.2")

	if got := limiter.Stats(); got != (ConnStats{Open: 3, Addresses: 2}) {
		t.Errorf("Stats = %+v, want {3 2}", got)
	}

	r1()
	r2()
	if got := limiter.Stats(); got != (ConnStats{Open: 1, Addresses: 1}) {
		t.Errorf("Stats = %+v after release, want {1 1}", got)
	}
}

func TestHostOnly(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[::1]:12345", "::1"},
		{"localhost:4000", "localhost"},
		{"192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		if got := hostOnly(tt.input); got != tt.expected {
			t.Errorf("hostOnly(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		expected   string
	}{
		{"X-Forwarded-For single", "203.0.113.50", "", "10.0.0.1:12345", "203.0.113.50"},
		{"X-Forwarded-For chain", "203.0.113.50, 70.41.3.18", "", "10.0.0.1:12345", "203.0.113.50"},
		{"X-Real-IP", "", "203.0.113.50", "10.0.0.1:12345", "203.0.113.50"},
		{"X-Forwarded-For wins", "203.0.113.50", "198.51.100.25", "10.0.0.1:12345", "203.0.113.50"},
		{"blank X-Forwarded-For", " , 70.41.3.18", "", "192.168.1.100:54321", "192.168.1.100"},
		{"no headers", "", "", "192.168.1.100:54321", "192.168.1.100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := clientIP(req); got != tt.expected {
				t.Errorf("clientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}
