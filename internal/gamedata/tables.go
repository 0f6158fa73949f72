// Package gamedata holds the read-only game balance tables that drive battalion
// aggregation, battle simulation and strategy recommendations.
package gamedata

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CombatBuffType is the buff category that affects battle stats.
const CombatBuffType = "Combat"

// TroopStats holds the per-unit base values of a troop type at one tier.
type TroopStats struct {
	ATK       float64 `yaml:"atk" json:"atk"`
	DEF       float64 `yaml:"def" json:"def"`
	HP        float64 `yaml:"hp" json:"hp"`
	Speed     float64 `yaml:"speed" json:"speed,omitempty"`
	Load      float64 `yaml:"load" json:"load,omitempty"`
	Upkeep    float64 `yaml:"upkeep" json:"upkeep,omitempty"`
	Influence float64 `yaml:"influence" json:"influence,omitempty"`
}

// TroopStatTable maps troop type -> tier -> per-unit stats.
type TroopStatTable map[string]map[string]TroopStats

// Lookup returns the per-unit stats for a troop type and tier.
func (t TroopStatTable) Lookup(troopType, tier string) (TroopStats, bool) {
	tiers, ok := t[troopType]
	if !ok {
		return TroopStats{}, false
	}
	stats, ok := tiers[tier]
	return stats, ok
}

// HasTroopType reports whether the table knows the given troop type.
func (t TroopStatTable) HasTroopType(name string) bool {
	_, ok := t[name]
	return ok
}

// EnforcerBuff is one buff line of an enforcer.
type EnforcerBuff struct {
	Name     string  `yaml:"name" json:"name"`
	Type     string  `yaml:"type" json:"type"`
	MaxValue float64 `yaml:"max_value" json:"max_value"`
}

// IsCombat reports whether the buff affects battle stats.
func (b EnforcerBuff) IsCombat() bool {
	return b.Type == CombatBuffType
}

// EnforcerDefinition lists an enforcer's buffs in declaration order.
type EnforcerDefinition struct {
	Buffs []EnforcerBuff `yaml:"buffs" json:"buffs"`
}

// EnforcerBuffTable maps enforcer name -> definition.
type EnforcerBuffTable map[string]EnforcerDefinition

// TierMultiplier is the fraction of an enforcer's max buff value granted at a tier.
type TierMultiplier struct {
	PercentageBenefit float64 `yaml:"percentage_benefit" json:"percentage_benefit"`
}

// TierMultiplierTable maps enforcer tier name -> multiplier.
type TierMultiplierTable map[string]TierMultiplier

// WeaponSkill is one flat-percentage skill of a signature weapon.
// BuffValue is a pointer so a missing value can be told apart from zero.
type WeaponSkill struct {
	Name      string   `yaml:"name" json:"name"`
	BuffValue *float64 `yaml:"buff_value" json:"buff_value"`
}

// Usable reports whether the skill has both a name and a numeric value.
func (s *WeaponSkill) Usable() bool {
	return s != nil && s.Name != "" && s.BuffValue != nil
}

// SignatureWeapon describes the weapon bound to one enforcer.
type SignatureWeapon struct {
	WeaponName     string       `yaml:"weapon_name" json:"weapon_name"`
	BasicSkill     *WeaponSkill `yaml:"basic_skill" json:"basic_skill,omitempty"`
	ExclusiveSkill *WeaponSkill `yaml:"exclusive_skill" json:"exclusive_skill,omitempty"`
}

// SignatureWeaponTable maps enforcer name -> signature weapon.
type SignatureWeaponTable map[string]SignatureWeapon

// CounterEntry lists the types a troop type is strong and weak against.
type CounterEntry struct {
	StrongAgainst []string `yaml:"strong_against" json:"strong_against"`
	WeakAgainst   []string `yaml:"weak_against" json:"weak_against"`
}

// CounterTable maps troop type -> counter entry.
type CounterTable map[string]CounterEntry

// LevelTable maps a building level to a bonus fraction.
// On disk the keys are either "level_<n>" or a bare number.
type LevelTable map[int]float64

// UnmarshalYAML decodes "level_<n>" keyed maps into integer levels.
func (l *LevelTable) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]float64
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out := make(LevelTable, len(raw))
	for key, value := range raw {
		level, err := parseLevelKey(key)
		if err != nil {
			return err
		}
		out[level] = value
	}
	*l = out
	return nil
}

func parseLevelKey(key string) (int, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), "level_")
	level, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid level key %q", key)
	}
	return level, nil
}

// MiscBuffTable holds the passive buff tables that are not tied to enforcers.
type MiscBuffTable struct {
	TrainingCenterDEFBonus LevelTable `yaml:"training_center_def_bonus" json:"training_center_def_bonus"`
}

// TrainingCenterBonus returns the DEF bonus fraction for an exact level.
func (m *MiscBuffTable) TrainingCenterBonus(level int) (float64, bool) {
	if m == nil || m.TrainingCenterDEFBonus == nil {
		return 0, false
	}
	bonus, ok := m.TrainingCenterDEFBonus[level]
	return bonus, ok
}

// GameData bundles every reference table. A nil table means it failed to load;
// consumers degrade or fail explicitly instead of assuming presence.
// GameData is never modified after loading and is safe for concurrent readers.
type GameData struct {
	TroopStats       TroopStatTable
	EnforcerBuffs    EnforcerBuffTable
	TierMultipliers  TierMultiplierTable
	SignatureWeapons SignatureWeaponTable
	Counters         CounterTable
	MiscBuffs        *MiscBuffTable
}

// Availability reports which tables are present, keyed by table name.
func (g *GameData) Availability() map[string]bool {
	if g == nil {
		g = &GameData{}
	}
	return map[string]bool{
		TableTroopStats:       g.TroopStats != nil,
		TableEnforcerBuffs:    g.EnforcerBuffs != nil,
		TableTierMultipliers:  g.TierMultipliers != nil,
		TableSignatureWeapons: g.SignatureWeapons != nil,
		TableCounters:         g.Counters != nil,
		TableMiscBuffs:        g.MiscBuffs != nil,
	}
}

// Complete reports whether every table loaded.
func (g *GameData) Complete() bool {
	for _, ok := range g.Availability() {
		if !ok {
			return false
		}
	}
	return true
}

// NormalizeTroopType strips one trailing "s" so plural type names
// ("Bruisers") match the singular table keys ("Bruiser").
func NormalizeTroopType(name string) string {
	return strings.TrimSuffix(name, "s")
}
