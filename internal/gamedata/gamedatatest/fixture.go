// Package gamedatatest builds small synthetic game data sets for tests.
package gamedatatest

import "github.com/lawnchairsociety/battalionsim/internal/gamedata"

func pct(v float64) *float64 { return &v }

func combat(name string, value float64) gamedata.EnforcerBuff {
	return gamedata.EnforcerBuff{Name: name, Type: gamedata.CombatBuffType, MaxValue: value}
}

func skill(name string, value float64) *gamedata.WeaponSkill {
	return &gamedata.WeaponSkill{Name: name, BuffValue: pct(value)}
}

// New returns a complete data set: three archetypes plus Mortar Car, a
// rock-paper-scissors counter table, nine enforcers (eight with weapons) and
// training center levels 12, 25 and 30.
func New() *gamedata.GameData {
	return &gamedata.GameData{
		TroopStats: gamedata.TroopStatTable{
			"Bruiser": {
				"T1": {ATK: 10, DEF: 10, HP: 50},
				"T4": {ATK: 40, DEF: 40, HP: 200},
			},
			"Hitman": {
				"T1": {ATK: 12, DEF: 8, HP: 40},
				"T4": {ATK: 48, DEF: 32, HP: 160},
			},
			"Biker": {
				"T1": {ATK: 11, DEF: 9, HP: 45},
				"T4": {ATK: 44, DEF: 36, HP: 180},
			},
			"Mortar Car": {
				"T1": {ATK: 30, DEF: 2, HP: 20},
			},
		},
		EnforcerBuffs: gamedata.EnforcerBuffTable{
			"Red Thorn":     {Buffs: []gamedata.EnforcerBuff{combat("Biker ATK Up", 0.2), combat("Biker HP Up", 0.1)}},
			"Captain":       {Buffs: []gamedata.EnforcerBuff{combat("Hitman ATK Up", 0.2), combat("Hitman DEF Up", 0.1)}},
			"Tengu":         {Buffs: []gamedata.EnforcerBuff{combat("Crew ATK Up", 0.05)}},
			"Bubba":         {Buffs: []gamedata.EnforcerBuff{combat("Bruiser HP Up", 0.2), combat("Bruiser ATK Up", 0.1)}},
			"The Professor": {Buffs: []gamedata.EnforcerBuff{combat("Crew HP Up", 0.1), combat("Crew DEF Up", 0.05), {Name: "Research Speed Up", Type: "Economy", MaxValue: 0.1}}},
			"Viper":         {Buffs: []gamedata.EnforcerBuff{combat("Biker DEF Up", 0.1)}},
			"Banshee":       {Buffs: []gamedata.EnforcerBuff{combat("Hitman HP Up", 0.15)}},
			"Enigma":        {Buffs: []gamedata.EnforcerBuff{combat("Crew ATK Up", 0.08)}},
			"Mole":          {Buffs: []gamedata.EnforcerBuff{{Name: "Cash Production Up", Type: "Economy", MaxValue: 0.3}}},
		},
		TierMultipliers: gamedata.TierMultiplierTable{
			"Grand":  {PercentageBenefit: 1.0},
			"Elite":  {PercentageBenefit: 0.5},
			"Common": {PercentageBenefit: 0},
		},
		SignatureWeapons: gamedata.SignatureWeaponTable{
			"Red Thorn":     {WeaponName: "Thorn Whip", BasicSkill: skill("Biker ATK Up", 0.05)},
			"Captain":       {WeaponName: "Sabre", BasicSkill: skill("Hitman ATK Up", 0.05)},
			"Tengu":         {WeaponName: "Fan", BasicSkill: skill("Crew DEF Up", 0.02)},
			"Bubba":         {WeaponName: "Big Bat", BasicSkill: skill("Bruiser ATK Up", 0.05), ExclusiveSkill: skill("Crew HP Up", 0.03)},
			"The Professor": {WeaponName: "Chalk", BasicSkill: skill("Crew ATK Up", 0.02)},
			"Viper":         {WeaponName: "Fangs", BasicSkill: skill("Biker HP Up", 0.04)},
			"Banshee":       {WeaponName: "Wail", BasicSkill: skill("Hitman DEF Up", 0.04)},
			"Enigma":        {WeaponName: "Riddle", ExclusiveSkill: &gamedata.WeaponSkill{Name: "Crew HP Up"}},
		},
		Counters: gamedata.CounterTable{
			"Bruiser": {StrongAgainst: []string{"Hitman"}, WeakAgainst: []string{"Biker"}},
			"Hitman":  {StrongAgainst: []string{"Biker"}, WeakAgainst: []string{"Bruiser"}},
			"Biker":   {StrongAgainst: []string{"Bruiser"}, WeakAgainst: []string{"Hitman"}},
		},
		MiscBuffs: &gamedata.MiscBuffTable{
			TrainingCenterDEFBonus: gamedata.LevelTable{12: 0.06, 25: 0.12, 30: 0.15},
		},
	}
}

// Bare returns only the troop stat table of New.
func Bare() *gamedata.GameData {
	return &gamedata.GameData{TroopStats: New().TroopStats}
}
