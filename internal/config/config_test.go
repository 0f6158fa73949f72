package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lawnchairsociety/battalionsim/internal/strategy"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if len(cfg.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.WebSocket.AllowedOrigins)
	}

	if cfg.WebSocket.MaxMessageSize != 64*1024 {
		t.Errorf("expected max message size 65536, got %d", cfg.WebSocket.MaxMessageSize)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver by default, got %q", cfg.Database.Driver)
	}

	if lvl := cfg.Advisor.DefaultTrainingCenterLevel; lvl == nil || *lvl != 25 {
		t.Errorf("expected training center level 25, got %v", lvl)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}

	if len(cfg.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default")
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "server.yaml")

	content := `
websocket:
  allowed_origins:
    - "https://example.com"
    - "http://localhost:3000"
  max_message_size: 8192
http:
  listen: "127.0.0.1:9000"
database:
  driver: postgres
  postgres:
    host: db.internal
advisor:
  fallback_reference_hp: 75
  default_training_center_level: 30
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.WebSocket.AllowedOrigins) != 2 {
		t.Errorf("expected 2 allowed origins, got %d", len(cfg.WebSocket.AllowedOrigins))
	}

	if cfg.WebSocket.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("expected first origin 'https://example.com', got %s", cfg.WebSocket.AllowedOrigins[0])
	}

	if cfg.WebSocket.MaxMessageSize != 8192 {
		t.Errorf("expected max message size 8192, got %d", cfg.WebSocket.MaxMessageSize)
	}

	if cfg.HTTP.Listen != "127.0.0.1:9000" {
		t.Errorf("expected listen 127.0.0.1:9000, got %s", cfg.HTTP.Listen)
	}

	// Fields absent from the file keep their defaults.
	if cfg.HTTP.ReadTimeoutSeconds != 15 {
		t.Errorf("expected default read timeout, got %d", cfg.HTTP.ReadTimeoutSeconds)
	}
	if cfg.Database.Postgres.Host != "db.internal" || cfg.Database.Postgres.Port != 5432 {
		t.Errorf("unexpected postgres config %+v", cfg.Database.Postgres)
	}

	sc := cfg.Advisor.Strategy()
	if sc.FallbackReferenceHP != 75 {
		t.Errorf("expected fallback HP 75, got %v", sc.FallbackReferenceHP)
	}
	if lvl, ok := sc.DefaultMiscBuffs.Level(); !ok || lvl != 30 {
		t.Errorf("expected misc TC level 30, got %d (set %v)", lvl, ok)
	}
	if len(sc.DefaultEnforcers) != 5 {
		t.Errorf("expected 5 default enforcers, got %d", len(sc.DefaultEnforcers))
	}
}

func TestLoadConfig_SessionLimitsAndUsernames(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "server.yaml")
	content := `
websocket:
  max_requests: 0
usernames:
  enabled: true
  banned_names: [warden]
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WebSocket.Throttle().Enabled {
		t.Error("max_requests 0 should disable throttling")
	}
	if len(cfg.Usernames.BannedNames) != 1 || cfg.Usernames.BannedNames[0] != "warden" {
		t.Errorf("expected banned names [warden], got %v", cfg.Usernames.BannedNames)
	}

	def := DefaultConfig().WebSocket.Throttle()
	if !def.Enabled || def.MaxRequests != 30 || def.TimeWindow != 10*time.Second {
		t.Errorf("unexpected default throttle %+v", def)
	}
}

func TestLoadConfig_TrainingCenterLevelZero(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(configPath, []byte("advisor:\n  default_training_center_level: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	effective := strategy.New(nil, cfg.Advisor.Strategy()).Config()
	if lvl, ok := effective.DefaultMiscBuffs.Level(); !ok || lvl != 0 {
		t.Errorf("level = %d (set %v), want explicit 0", lvl, ok)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "http: [unclosed"},
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"bad archetype", "advisor:\n  default_archetype: Tank\n"},
		{"empty data dir", "data:\n  dir: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "server.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadConfig(path)
			if err == nil {
				t.Error("expected an error")
			}
			if cfg == nil {
				t.Error("expected a config alongside the error")
			}
		})
	}
}

func TestHTTPDurations(t *testing.T) {
	h := HTTPConfig{ReadTimeoutSeconds: 2, WriteTimeoutSeconds: 3, ShutdownTimeoutSeconds: 4}
	if h.ReadTimeout() != 2*time.Second || h.WriteTimeout() != 3*time.Second || h.ShutdownTimeout() != 4*time.Second {
		t.Errorf("unexpected durations %v %v %v", h.ReadTimeout(), h.WriteTimeout(), h.ShutdownTimeout())
	}
}

func TestIsOriginAllowed(t *testing.T) {
	const host = "advisor.local:8080"
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"same-origin no header", nil, "", true},
		{"same-origin match", nil, "http://advisor.local:8080", true},
		{"same-origin https trailing slash", nil, "https://advisor.local:8080/", true},
		{"same-origin ws scheme", nil, "ws://advisor.local:8080", true},
		{"same-origin other host", nil, "http://evil.com", false},
		{"same-origin other port", nil, "http://advisor.local:3000", false},
		{"wildcard", []string{"*"}, "http://anything.com", true},
		{"wildcard no header", []string{"*"}, "", true},
		{"listed", []string{"https://planner.example", "http://localhost:3000"}, "http://localhost:3000", true},
		{"unlisted", []string{"https://planner.example"}, "http://evil.com", false},
		{"listed prefix only", []string{"https://planner.example"}, "https://planner.example:8443", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := WebSocketConfig{AllowedOrigins: tt.allowed}
			if got := cfg.IsOriginAllowed(tt.origin, host); got != tt.want {
				t.Errorf("IsOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	strict := PasswordConfig{MinLength: 8, RequireUppercase: true, RequireLowercase: true, RequireDigit: true}
	tests := []struct {
		name     string
		config   PasswordConfig
		password string
		want     string
	}{
		{"strict ok", strict, "Battal1on", ""},
		{"too short", strict, "Bat1", "Password must be at least 8 characters."},
		{"no uppercase", strict, "battal1on", "Password must contain at least one uppercase letter."},
		{"no lowercase", strict, "BATTAL1ON", "Password must contain at least one lowercase letter."},
		{"no digit", strict, "Battalion", "Password must contain at least one digit."},
		{"no special", PasswordConfig{RequireSpecial: true}, "Battal1on", "Password must contain at least one special character."},
		{"special ok", PasswordConfig{RequireSpecial: true}, "Battal1on!", ""},
		{"zero min length means 8", PasswordConfig{}, "short", "Password must be at least 8 characters."},
		{"custom min length", PasswordConfig{MinLength: 4}, "tank", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.ValidatePassword(tt.password); got != tt.want {
				t.Errorf("ValidatePassword(%q) = %q, want %q", tt.password, got, tt.want)
			}
		})
	}
}

func TestGetRequirementsText(t *testing.T) {
	cfg := DefaultConfig().Password
	text := cfg.GetRequirementsText()

	for _, want := range []string{"min 8 chars", "uppercase", "lowercase", "digit"} {
		if !strings.Contains(text, want) {
			t.Errorf("requirements %q missing %q", text, want)
		}
	}
	if strings.Contains(text, "special") {
		t.Errorf("requirements %q mention special characters, which are not required by default", text)
	}
}
