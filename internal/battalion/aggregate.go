package battalion

import (
	"errors"
	"fmt"

	"github.com/lawnchairsociety/battalionsim/internal/buff"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
)

// ErrTroopStatsUnavailable is returned when the troop stat table is not loaded.
var ErrTroopStatsUnavailable = errors.New("troop stats not loaded")

const (
	trainingCenterBuffName = "Training Center DEF Bonus"
	basicSkill             = "Basic Skill"
	exclusiveSkill         = "Exclusive Skill"
)

// Aggregate computes the effective stats of a battalion. Buffs are applied in a
// fixed order: misc passive buffs, enforcer buffs, signature weapon buffs.
// Lookup misses are recorded on the affected group or skipped; the only error
// is a missing troop stat table. Optional tables that are absent skip their stage.
func Aggregate(data *gamedata.GameData, troops []TroopEntry, enforcers []EnforcerLoadout, misc MiscBuffs) (Result, error) {
	if data == nil || data.TroopStats == nil {
		logger.Error("Cannot aggregate battalion, troop stats not loaded")
		return Result{Details: []GroupResult{}}, ErrTroopStatsUnavailable
	}

	details := make([]GroupResult, 0, len(troops))
	for _, troop := range troops {
		stats, ok := data.TroopStats.Lookup(troop.Type, troop.Tier)
		if !ok {
			logger.Warning("Base stats not found, skipping troop group", "type", troop.Type, "tier", troop.Tier)
			details = append(details, GroupResult{
				Type:     troop.Type,
				Tier:     troop.Tier,
				Quantity: troop.Quantity,
				Error:    fmt.Sprintf("base stats not found for %s %s", troop.Type, troop.Tier),
			})
			continue
		}

		quantity := float64(troop.Quantity)
		group := GroupResult{
			Type:         troop.Type,
			Tier:         troop.Tier,
			Quantity:     troop.Quantity,
			BaseATK:      stats.ATK * quantity,
			BaseDEF:      stats.DEF * quantity,
			BaseHP:       stats.HP * quantity,
			BuffsApplied: []BuffApplication{},
		}
		group.ATK, group.DEF, group.HP = group.BaseATK, group.BaseDEF, group.BaseHP

		applyMiscBuffs(data.MiscBuffs, &group, misc)
		details = append(details, group)
	}

	a := aggregator{data: data, known: data.TroopStats}
	a.applyEnforcerBuffs(details, enforcers)
	a.applySignatureWeapons(details, enforcers)

	return totals(details), nil
}

func totals(details []GroupResult) Result {
	result := Result{Details: details}
	for i := range details {
		if !details[i].OK() {
			continue
		}
		result.TotalATK += details[i].ATK
		result.TotalDEF += details[i].DEF
		result.TotalHP += details[i].HP
	}
	return result
}

// applyMiscBuffs applies the training center DEF bonus for an exact level.
// An unknown level is not an error; no bonus is applied.
func applyMiscBuffs(table *gamedata.MiscBuffTable, group *GroupResult, misc MiscBuffs) {
	if table == nil {
		logger.Debug("Misc buff table not loaded, skipping misc buffs")
		return
	}
	level, provided := misc.Level()
	if !provided {
		return
	}
	bonus, ok := table.TrainingCenterBonus(level)
	if !ok {
		logger.Debug("No training center bonus for level", "level", level, "type", group.Type)
		return
	}

	before := group.DEF
	increase := before * bonus
	group.DEF += increase
	group.BuffsApplied = append(group.BuffsApplied, BuffApplication{
		BuffName:   trainingCenterBuffName,
		Source:     fmt.Sprintf("Training Center Level %d", level),
		Percentage: bonus,
		Stat:       "def",
		BaseValue:  before,
		Increase:   increase,
		Before:     before,
		After:      group.DEF,
	})
}

type aggregator struct {
	data  *gamedata.GameData
	known buff.TypeSet
}

func (a aggregator) applyEnforcerBuffs(details []GroupResult, enforcers []EnforcerLoadout) {
	if a.data.EnforcerBuffs == nil || a.data.TierMultipliers == nil {
		if len(enforcers) > 0 {
			logger.Warning("Enforcer buffs or tier multipliers not loaded, skipping enforcer buffs")
		}
		return
	}

	for _, enforcer := range enforcers {
		def, ok := a.data.EnforcerBuffs[enforcer.Name]
		if !ok {
			logger.Warning("Enforcer not found, skipping", "enforcer", enforcer.Name)
			continue
		}

		multiplier := 0.0
		if tier, ok := a.data.TierMultipliers[enforcer.Tier]; ok {
			multiplier = tier.PercentageBenefit
		} else {
			logger.Warning("Unknown enforcer tier, assuming zero multiplier", "enforcer", enforcer.Name, "tier", enforcer.Tier)
		}

		source := fmt.Sprintf("Enforcer: %s (Tier: %s)", enforcer.Name, enforcer.Tier)
		for _, b := range def.Buffs {
			if !b.IsCombat() {
				continue
			}
			d, err := buff.Parse(b.Name, a.known)
			if err != nil {
				logger.Debug("Skipping unparseable enforcer buff", "enforcer", enforcer.Name, "error", err)
				continue
			}
			pct := b.MaxValue * multiplier
			if pct == 0 {
				logger.Debug("Enforcer buff has no effect at this tier", "enforcer", enforcer.Name, "buff", b.Name, "tier", enforcer.Tier)
				continue
			}
			a.applyToGroups(details, d, source, pct)
		}
	}
}

func (a aggregator) applySignatureWeapons(details []GroupResult, enforcers []EnforcerLoadout) {
	if a.data.SignatureWeapons == nil {
		for _, e := range enforcers {
			if e.HasSignatureWeapon {
				logger.Warning("Signature weapon table not loaded, skipping weapon buffs")
				return
			}
		}
		return
	}

	for _, enforcer := range enforcers {
		if !enforcer.HasSignatureWeapon {
			continue
		}
		weapon, ok := a.data.SignatureWeapons[enforcer.Name]
		if !ok {
			logger.Warning("Signature weapon not found, skipping", "enforcer", enforcer.Name)
			continue
		}
		a.applyWeaponSkill(details, weapon, enforcer.Name, weapon.BasicSkill, basicSkill)
		a.applyWeaponSkill(details, weapon, enforcer.Name, weapon.ExclusiveSkill, exclusiveSkill)
	}
}

// applyWeaponSkill applies a flat, non tier-scaled weapon skill.
func (a aggregator) applyWeaponSkill(details []GroupResult, weapon gamedata.SignatureWeapon, enforcer string, skill *gamedata.WeaponSkill, kind string) {
	if skill == nil {
		return
	}
	if !skill.Usable() {
		logger.Debug("Skipping weapon skill without name or value", "weapon", weapon.WeaponName, "skill", kind)
		return
	}
	d, err := buff.Parse(skill.Name, a.known)
	if err != nil {
		logger.Debug("Skipping unparseable weapon skill", "weapon", weapon.WeaponName, "error", err)
		return
	}
	pct := *skill.BuffValue
	if pct == 0 {
		return
	}
	source := fmt.Sprintf("Signature Weapon: %s (%s) - %s", weapon.WeaponName, enforcer, kind)
	a.applyToGroups(details, d, source, pct)
}

func (a aggregator) applyToGroups(details []GroupResult, d buff.Descriptor, source string, pct float64) {
	for i := range details {
		group := &details[i]
		if !group.OK() || !d.AppliesTo(group.Type) {
			continue
		}
		entry := group.applyPercentage(d, source, pct)
		logger.Debug("Applied buff",
			"buff", d.Label,
			"group", group.Type+" "+group.Tier,
			"stat", entry.Stat,
			"before", entry.Before,
			"after", entry.After)
	}
}
