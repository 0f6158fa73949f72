// Package config loads the advisor service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/namefilter"
	"github.com/lawnchairsociety/battalionsim/internal/strategy"
	"github.com/lawnchairsociety/battalionsim/internal/throttle"
)

// ServerConfig holds every setting of the advisor service.
type ServerConfig struct {
	HTTP        HTTPConfig        `yaml:"http"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Password    PasswordConfig    `yaml:"password"`
	Usernames   namefilter.Config `yaml:"usernames"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Data        DataConfig        `yaml:"data"`
	Database    DatabaseConfig    `yaml:"database"`
	Advisor     AdvisorConfig     `yaml:"advisor"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Listen                 string `yaml:"listen"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// ReadTimeout returns the read timeout as a duration.
func (h HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (h HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (h HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(h.ShutdownTimeoutSeconds) * time.Second
}

// RateLimitConfig holds rate limiting settings for failed profile logins.
type RateLimitConfig struct {
	// MaxAttempts is the number of failed logins before lockout.
	MaxAttempts int `yaml:"max_attempts"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds caps the exponential backoff.
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// ConnectionsConfig limits concurrent WebSocket connections.
type ConnectionsConfig struct {
	// MaxPerIP is the per-address limit. 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the server-wide limit. 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// PasswordConfig holds password rules for new accounts.
type PasswordConfig struct {
	MinLength        int  `yaml:"min_length"`
	RequireUppercase bool `yaml:"require_uppercase"`
	RequireLowercase bool `yaml:"require_lowercase"`
	RequireDigit     bool `yaml:"require_digit"`
	RequireSpecial   bool `yaml:"require_special"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins lists origins allowed to connect. Empty enforces
	// same-origin; "*" allows everything.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the largest accepted request in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// MaxRequests per RequestWindowSeconds for one session. 0 disables
	// throttling.
	MaxRequests          int `yaml:"max_requests"`
	RequestWindowSeconds int `yaml:"request_window_seconds"`
}

// Throttle converts the session limits to a throttle.Config.
func (c WebSocketConfig) Throttle() throttle.Config {
	return throttle.ConfigFromYAML(c.MaxRequests, c.RequestWindowSeconds)
}

// DataConfig points at the reference tables.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// DatabaseConfig selects and configures profile storage.
type DatabaseConfig struct {
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// AdvisorConfig tunes the recommenders.
type AdvisorConfig struct {
	ReferenceTier              string                      `yaml:"reference_tier"`
	SacrificialTier            string                      `yaml:"sacrificial_tier"`
	FallbackReferenceHP        float64                     `yaml:"fallback_reference_hp"`
	HPMultiplier               float64                     `yaml:"hp_multiplier"`
	SacrificialRatio           float64                     `yaml:"sacrificial_ratio"`
	MinimumQuantity            int                         `yaml:"minimum_quantity"`
	DefaultEnforcers           []battalion.EnforcerLoadout `yaml:"default_enforcers"`
	DefaultTrainingCenterLevel *int                        `yaml:"default_training_center_level"`
	PreferredLeads             []string                    `yaml:"preferred_leads"`
	DefaultPoolTier            string                      `yaml:"default_pool_tier"`
	DefaultArchetype           string                      `yaml:"default_archetype"`
}

// Strategy converts the advisor settings to a strategy.Config.
func (a AdvisorConfig) Strategy() strategy.Config {
	return strategy.Config{
		ReferenceTier:       a.ReferenceTier,
		SacrificialTier:     a.SacrificialTier,
		FallbackReferenceHP: a.FallbackReferenceHP,
		HPMultiplier:        a.HPMultiplier,
		SacrificialRatio:    a.SacrificialRatio,
		MinimumQuantity:     a.MinimumQuantity,
		DefaultEnforcers:    a.DefaultEnforcers,
		DefaultMiscBuffs:    battalion.MiscBuffs{TrainingCenterLevel: a.DefaultTrainingCenterLevel},
		PreferredLeads:      a.PreferredLeads,
		DefaultPoolTier:     a.DefaultPoolTier,
		DefaultArchetype:    a.DefaultArchetype,
	}
}

// DefaultConfig returns a ServerConfig with secure defaults.
func DefaultConfig() *ServerConfig {
	advisor := strategy.DefaultConfig()
	return &ServerConfig{
		HTTP: HTTPConfig{
			Listen:                 ":8080",
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    60,
			ShutdownTimeoutSeconds: 10,
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:       []string{},
			MaxMessageSize:       64 * 1024,
			MaxRequests:          30,
			RequestWindowSeconds: 10,
		},
		Password: PasswordConfig{
			MinLength:        8,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireDigit:     true,
		},
		Usernames: namefilter.DefaultConfig(),
		Connections: ConnectionsConfig{
			MaxPerIP: 5,
			MaxTotal: 200,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:       5,
			LockoutSeconds:    30,
			MaxLockoutSeconds: 300,
		},
		Data: DataConfig{
			Dir: "data",
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "data/advisor.db",
			Postgres: PostgresConfig{
				Host:         "localhost",
				Port:         5432,
				Database:     "battalionsim",
				SSLMode:      "disable",
				MaxOpenConns: 25,
				MaxIdleConns: 5,
			},
		},
		Advisor: AdvisorConfig{
			ReferenceTier:              advisor.ReferenceTier,
			SacrificialTier:            advisor.SacrificialTier,
			FallbackReferenceHP:        advisor.FallbackReferenceHP,
			HPMultiplier:               advisor.HPMultiplier,
			SacrificialRatio:           advisor.SacrificialRatio,
			MinimumQuantity:            advisor.MinimumQuantity,
			DefaultEnforcers:           advisor.DefaultEnforcers,
			DefaultTrainingCenterLevel: advisor.DefaultMiscBuffs.TrainingCenterLevel,
			PreferredLeads:             advisor.PreferredLeads,
			DefaultPoolTier:            advisor.DefaultPoolTier,
			DefaultArchetype:           advisor.DefaultArchetype,
		},
	}
}

// LoadConfig loads configuration from a YAML file over the defaults.
// A missing file yields the defaults; a malformed one is an error.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate checks cross-field constraints.
func (c *ServerConfig) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir must not be empty")
	}
	if c.Advisor.DefaultArchetype != "" && !strategy.IsArchetype(c.Advisor.DefaultArchetype) {
		return fmt.Errorf("advisor.default_archetype %q is not one of %s",
			c.Advisor.DefaultArchetype, strings.Join(strategy.Archetypes, ", "))
	}
	return nil
}

// IsOriginAllowed reports whether a WebSocket upgrade from origin may proceed.
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin compares the origin's host with the request host. A missing
// Origin header comes from a non-browser client and is allowed.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}

func (c *PasswordConfig) minLength() int {
	if c.MinLength == 0 {
		return 8
	}
	return c.MinLength
}

// ValidatePassword returns a message describing why password is rejected,
// or an empty string if it is acceptable.
func (c *PasswordConfig) ValidatePassword(password string) string {
	if minLen := c.minLength(); len(password) < minLen {
		return "Password must be at least " + strconv.Itoa(minLen) + " characters."
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	switch {
	case c.RequireUppercase && !hasUpper:
		return "Password must contain at least one uppercase letter."
	case c.RequireLowercase && !hasLower:
		return "Password must contain at least one lowercase letter."
	case c.RequireDigit && !hasDigit:
		return "Password must contain at least one digit."
	case c.RequireSpecial && !hasSpecial:
		return "Password must contain at least one special character."
	}
	return ""
}

// GetRequirementsText describes the password rules for error responses.
func (c *PasswordConfig) GetRequirementsText() string {
	parts := []string{"min " + strconv.Itoa(c.minLength()) + " chars"}
	if c.RequireUppercase {
		parts = append(parts, "uppercase")
	}
	if c.RequireLowercase {
		parts = append(parts, "lowercase")
	}
	if c.RequireDigit {
		parts = append(parts, "digit")
	}
	if c.RequireSpecial {
		parts = append(parts, "special char")
	}
	return strings.Join(parts, ", ")
}
