package strategy

import (
	"slices"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
)

// Config tunes the recommenders. Zero fields fall back to DefaultConfig; an
// unset training center level in DefaultMiscBuffs does too, while an explicit
// level 0 is kept.
type Config struct {
	ReferenceTier       string
	SacrificialTier     string
	FallbackReferenceHP float64
	HPMultiplier        float64
	SacrificialRatio    float64
	MinimumQuantity     int
	DefaultEnforcers    []battalion.EnforcerLoadout
	DefaultMiscBuffs    battalion.MiscBuffs
	PreferredLeads      []string
	DefaultPoolTier     string
	DefaultArchetype    string
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		ReferenceTier:       "T4",
		SacrificialTier:     "T1",
		FallbackReferenceHP: 50,
		HPMultiplier:        1.2,
		SacrificialRatio:    0.1,
		MinimumQuantity:     100,
		DefaultEnforcers: []battalion.EnforcerLoadout{
			{Name: "Red Thorn", Tier: "Grand", HasSignatureWeapon: true},
			{Name: "Captain", Tier: "Grand", HasSignatureWeapon: true},
			{Name: "Tengu", Tier: "Grand", HasSignatureWeapon: true},
			{Name: "Bubba", Tier: "Grand", HasSignatureWeapon: true},
			{Name: "The Professor", Tier: "Grand", HasSignatureWeapon: true},
		},
		DefaultMiscBuffs: battalion.TrainingCenter(25),
		PreferredLeads:   []string{"Red Thorn", "Captain", "The Professor", "Bubba", "Viper", "Banshee", "Enigma"},
		DefaultPoolTier:  "Grand",
		DefaultArchetype: Bruiser,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReferenceTier == "" {
		c.ReferenceTier = d.ReferenceTier
	}
	if c.SacrificialTier == "" {
		c.SacrificialTier = d.SacrificialTier
	}
	if c.FallbackReferenceHP <= 0 {
		c.FallbackReferenceHP = d.FallbackReferenceHP
	}
	if c.HPMultiplier <= 0 {
		c.HPMultiplier = d.HPMultiplier
	}
	if c.SacrificialRatio <= 0 {
		c.SacrificialRatio = d.SacrificialRatio
	}
	if c.MinimumQuantity <= 0 {
		c.MinimumQuantity = d.MinimumQuantity
	}
	if c.DefaultEnforcers == nil {
		c.DefaultEnforcers = d.DefaultEnforcers
	}
	if _, ok := c.DefaultMiscBuffs.Level(); !ok {
		c.DefaultMiscBuffs = d.DefaultMiscBuffs
	}
	if c.PreferredLeads == nil {
		c.PreferredLeads = d.PreferredLeads
	}
	if c.DefaultPoolTier == "" {
		c.DefaultPoolTier = d.DefaultPoolTier
	}
	if !IsArchetype(c.DefaultArchetype) {
		c.DefaultArchetype = d.DefaultArchetype
	}
	return c.clone()
}

// clone copies the slices and pointers so the result shares nothing with c.
func (c Config) clone() Config {
	c.DefaultEnforcers = slices.Clone(c.DefaultEnforcers)
	c.PreferredLeads = slices.Clone(c.PreferredLeads)
	c.DefaultMiscBuffs = c.DefaultMiscBuffs.Clone()
	return c
}
