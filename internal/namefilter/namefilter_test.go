package namefilter

import (
	"testing"
)

func TestNew_NilConfig(t *testing.T) {
	nf := New(nil)

	if nf.IsEnabled() {
		t.Error("Filter should be disabled when config is nil")
	}
	if result := nf.Check("admin"); !result.Allowed {
		t.Error("Should allow any name when filter is disabled")
	}
}

func TestNew_DisabledConfig(t *testing.T) {
	nf := New(&Config{
		Enabled:     false,
		BannedWords: []string{"admin"},
		BannedNames: []string{"root"},
	})

	for _, name := range []string{"admin", "root", "has space"} {
		if result := nf.Check(name); !result.Allowed {
			t.Errorf("Check(%q) should be allowed when filter is disabled", name)
		}
	}
}

func TestCheck_BannedWords(t *testing.T) {
	nf := New(&Config{
		Enabled:     true,
		BannedWords: []string{"admin", "moderator", "gm"},
	})

	tests := []struct {
		name    string
		allowed bool
	}{
		{"admin", false},
		{"Admin", false},
		{"superadmin", false},
		{"theadmin123", false},
		{"gamemoderator", false},
		{"gmmaster", false},
		{"commander", true},
		{"bruiser_boss", true},
		{"admi", true},
		{"mod", true},
	}

	for _, tc := range tests {
		if result := nf.Check(tc.name); result.Allowed != tc.allowed {
			t.Errorf("Check(%q) = %v, want %v", tc.name, result.Allowed, tc.allowed)
		}
	}
}

func TestCheck_BannedNames(t *testing.T) {
	nf := New(&Config{
		Enabled:     true,
		BannedNames: []string{"root", "  System "},
	})

	tests := []struct {
		name    string
		allowed bool
	}{
		{"root", false},
		{"ROOT", false},
		{" root ", false},
		{"system", false},
		{"rooted", true}, // exact match only
		{"mysystem", true},
	}

	for _, tc := range tests {
		if result := nf.Check(tc.name); result.Allowed != tc.allowed {
			t.Errorf("Check(%q) = %v, want %v", tc.name, result.Allowed, tc.allowed)
		}
	}
}

func TestCheck_Characters(t *testing.T) {
	nf := New(&Config{Enabled: true})

	tests := []struct {
		name    string
		allowed bool
	}{
		{"Commander_01", true},
		{"red-thorn.fan", true},
		{"two words", false},
		{"slash/name", false},
		{"query?x", false},
		{"bücher", false},
		{"", true}, // empty names are rejected by the account store
	}

	for _, tc := range tests {
		result := nf.Check(tc.name)
		if result.Allowed != tc.allowed {
			t.Errorf("Check(%q) = %v, want %v", tc.name, result.Allowed, tc.allowed)
		}
		if !result.Allowed && result.Reason == "" {
			t.Errorf("Check(%q) rejected without a reason", tc.name)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	nf := New(&cfg)

	if result := nf.Check("Administrator"); result.Allowed || result.Reason != "that username is reserved" {
		t.Errorf("Check(Administrator) = %+v, want reserved", result)
	}
	if !nf.Check("commander").Allowed {
		t.Error("ordinary names should be allowed by default")
	}
}
