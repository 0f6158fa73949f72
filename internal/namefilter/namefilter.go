// Package namefilter decides which account usernames may be registered.
package namefilter

import (
	"strings"
)

// Config holds the username filter configuration
type Config struct {
	Enabled     bool     `yaml:"enabled"`
	BannedWords []string `yaml:"banned_words"`
	BannedNames []string `yaml:"banned_names"`
}

// DefaultConfig reserves the names an operator account might be mistaken for.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		BannedNames: []string{"admin", "administrator", "root", "system", "support"},
	}
}

// Result contains the outcome of checking a name
type Result struct {
	Allowed bool   // Whether the name is allowed
	Reason  string // Reason for rejection (if not allowed)
}

// NameFilter validates usernames against allowed characters and banned
// words and names
type NameFilter struct {
	enabled     bool
	bannedWords []string // Lowercase banned words (partial match)
	bannedNames []string // Lowercase banned names (exact match)
}

// New creates a new NameFilter from a Config
func New(cfg *Config) *NameFilter {
	if cfg == nil {
		return &NameFilter{enabled: false}
	}

	nf := &NameFilter{
		enabled:     cfg.Enabled,
		bannedWords: make([]string, 0, len(cfg.BannedWords)),
		bannedNames: make([]string, 0, len(cfg.BannedNames)),
	}

	for _, word := range cfg.BannedWords {
		if word = strings.TrimSpace(word); word != "" {
			nf.bannedWords = append(nf.bannedWords, strings.ToLower(word))
		}
	}
	for _, name := range cfg.BannedNames {
		if name = strings.TrimSpace(name); name != "" {
			nf.bannedNames = append(nf.bannedNames, strings.ToLower(name))
		}
	}

	return nf
}

// validRune reports whether r may appear in a username. Profile URLs embed
// the name, so only URL-safe ASCII is accepted.
func validRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == '.':
		return true
	}
	return false
}

// Check validates a name against the filter rules. Surrounding whitespace
// is ignored; length is left to the account store.
func (nf *NameFilter) Check(name string) Result {
	if !nf.enabled {
		return Result{Allowed: true}
	}

	name = strings.TrimSpace(name)
	if strings.IndexFunc(name, func(r rune) bool { return !validRune(r) }) >= 0 {
		return Result{
			Allowed: false,
			Reason:  "username may only contain letters, digits, '_', '-' and '.'",
		}
	}

	nameLower := strings.ToLower(name)

	for _, banned := range nf.bannedNames {
		if nameLower == banned {
			return Result{
				Allowed: false,
				Reason:  "that username is reserved",
			}
		}
	}

	for _, word := range nf.bannedWords {
		if strings.Contains(nameLower, word) {
			return Result{
				Allowed: false,
				Reason:  "that username contains a word that is not allowed",
			}
		}
	}

	return Result{Allowed: true}
}

// IsEnabled returns whether the filter is enabled
func (nf *NameFilter) IsEnabled() bool {
	return nf.enabled
}
