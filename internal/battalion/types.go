// Package battalion turns a troop composition, an enforcer loadout and passive
// buff state into effective ATK/DEF/HP totals per troop group.
package battalion

import (
	"strings"

	"github.com/lawnchairsociety/battalionsim/internal/buff"
)

// TroopEntry is one troop group of a battalion.
type TroopEntry struct {
	Type     string `json:"type" yaml:"type"`
	Tier     string `json:"tier" yaml:"tier"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// EnforcerLoadout is one enforcer assigned to a battalion.
type EnforcerLoadout struct {
	Name               string `json:"name" yaml:"name"`
	Tier               string `json:"tier" yaml:"tier"`
	HasSignatureWeapon bool   `json:"has_signature_weapon" yaml:"has_signature_weapon"`
}

// MiscBuffs carries passive buff state that is not tied to an enforcer.
// A nil TrainingCenterLevel means the level was not provided; level 0 is
// looked up like any other level.
type MiscBuffs struct {
	TrainingCenterLevel *int `json:"training_center_level,omitempty" yaml:"training_center_level"`
}

// TrainingCenter returns MiscBuffs with the given training center level.
func TrainingCenter(level int) MiscBuffs {
	return MiscBuffs{TrainingCenterLevel: &level}
}

// Level returns the training center level and whether one was provided.
func (m MiscBuffs) Level() (int, bool) {
	if m.TrainingCenterLevel == nil {
		return 0, false
	}
	return *m.TrainingCenterLevel, true
}

// Clone returns a copy that shares no memory with m.
func (m MiscBuffs) Clone() MiscBuffs {
	if level, ok := m.Level(); ok {
		return TrainingCenter(level)
	}
	return MiscBuffs{}
}

// BuffApplication is one audit entry: a single buff applied to a single group.
type BuffApplication struct {
	BuffName   string  `json:"buff_name"`
	Source     string  `json:"source"`
	Percentage float64 `json:"value_percentage"`
	Stat       string  `json:"applied_to_stat"`
	BaseValue  float64 `json:"base_value_for_calc"`
	Increase   float64 `json:"increase_amount"`
	Before     float64 `json:"stat_value_before"`
	After      float64 `json:"stat_value_after"`
}

// GroupResult is the aggregated state of one troop group. The Base* totals are
// frozen at per-unit base x quantity and are the reference for every percentage
// buff; ATK, DEF and HP are the running values after buffs.
type GroupResult struct {
	Type         string            `json:"type"`
	Tier         string            `json:"tier"`
	Quantity     int               `json:"quantity"`
	BaseATK      float64           `json:"base_atk_total"`
	BaseDEF      float64           `json:"base_def_total"`
	BaseHP       float64           `json:"base_hp_total"`
	ATK          float64           `json:"atk"`
	DEF          float64           `json:"def"`
	HP           float64           `json:"hp"`
	BuffsApplied []BuffApplication `json:"buffs_applied"`
	Error        string            `json:"error,omitempty"`
}

// OK reports whether the group resolved against the troop stat table.
func (g *GroupResult) OK() bool {
	return g.Error == ""
}

func (g *GroupResult) base(stat buff.Stat) float64 {
	switch stat {
	case buff.ATK:
		return g.BaseATK
	case buff.DEF:
		return g.BaseDEF
	default:
		return g.BaseHP
	}
}

func (g *GroupResult) current(stat buff.Stat) *float64 {
	switch stat {
	case buff.ATK:
		return &g.ATK
	case buff.DEF:
		return &g.DEF
	default:
		return &g.HP
	}
}

// applyPercentage raises stat by base x pct and records the audit entry.
func (g *GroupResult) applyPercentage(d buff.Descriptor, source string, pct float64) BuffApplication {
	base := g.base(d.Stat)
	value := g.current(d.Stat)
	increase := base * pct
	before := *value
	*value += increase

	entry := BuffApplication{
		BuffName:   d.Label,
		Source:     source,
		Percentage: pct,
		Stat:       strings.ToLower(string(d.Stat)),
		BaseValue:  base,
		Increase:   increase,
		Before:     before,
		After:      *value,
	}
	g.BuffsApplied = append(g.BuffsApplied, entry)
	return entry
}

// Result is an aggregated battalion. Totals cover only groups without an error.
type Result struct {
	TotalATK float64       `json:"total_atk"`
	TotalDEF float64       `json:"total_def"`
	TotalHP  float64       `json:"total_hp"`
	Details  []GroupResult `json:"details"`
}

// Summary is the headline totals of a Result.
type Summary struct {
	TotalATK float64 `json:"total_atk"`
	TotalDEF float64 `json:"total_def"`
	TotalHP  float64 `json:"total_hp"`
}

// Summary returns the result's totals.
func (r Result) Summary() Summary {
	return Summary{TotalATK: r.TotalATK, TotalDEF: r.TotalDEF, TotalHP: r.TotalHP}
}

// Failed returns the groups that could not be resolved.
func (r Result) Failed() []GroupResult {
	var failed []GroupResult
	for _, g := range r.Details {
		if !g.OK() {
			failed = append(failed, g)
		}
	}
	return failed
}
