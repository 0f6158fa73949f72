// Package battle runs the round-based attrition simulation between two
// aggregated battalions.
package battle

import (
	"fmt"
	"math"
	"slices"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
)

// Winner is the side that won a simulated battle.
type Winner string

const (
	Attacker Winner = "attacker"
	Defender Winner = "defender"
	Draw     Winner = "draw"
)

const (
	// MaxRounds bounds every simulation.
	MaxRounds = 100
	// StrongModifier is the damage bonus against a type the attacker is strong against.
	StrongModifier = 0.5
	// WeakModifier is the damage penalty against a type the attacker is weak against.
	WeakModifier = -0.33
)

// Outcome is the result of one simulated battle. Percentages are 0-100 of
// each side's initial HP.
type Outcome struct {
	Winner                        Winner   `json:"winner"`
	RoundsFought                  int      `json:"rounds_fought"`
	AttackerHPRemainingPercentage float64  `json:"attacker_hp_remaining_percentage"`
	DefenderHPRemainingPercentage float64  `json:"defender_hp_remaining_percentage"`
	AttackerInitialHP             float64  `json:"attacker_initial_hp"`
	AttackerFinalHP               float64  `json:"attacker_final_hp"`
	DefenderInitialHP             float64  `json:"defender_initial_hp"`
	DefenderFinalHP               float64  `json:"defender_final_hp"`
	Log                           []string `json:"log"`
}

// unit is the simulation's value snapshot of one troop group.
type unit struct {
	Type string
	Tier string
	ATK  float64
	HP   float64
}

func snapshot(r battalion.Result) []unit {
	units := make([]unit, 0, len(r.Details))
	for _, g := range r.Details {
		if !g.OK() {
			continue
		}
		units = append(units, unit{Type: g.Type, Tier: g.Tier, ATK: g.ATK, HP: g.HP})
	}
	return units
}

func totalHP(units []unit) float64 {
	total := 0.0
	for _, u := range units {
		total += math.Max(0, u.HP)
	}
	return total
}

// Simulate fights attacker against defender for at most MaxRounds rounds.
// Both sides deal damage from the same start-of-round snapshot. The caller's
// results are never modified.
func Simulate(data *gamedata.GameData, attacker, defender battalion.Result) Outcome {
	var counters gamedata.CounterTable
	if data != nil {
		counters = data.Counters
	}

	att := snapshot(attacker)
	def := snapshot(defender)
	initialAtt := math.Max(1, totalHP(att))
	initialDef := math.Max(1, totalHP(def))

	var lines []string
	rounds := 0
	for round := 1; round <= MaxRounds; round++ {
		attHP := totalHP(att)
		defHP := totalHP(def)
		lines = append(lines,
			fmt.Sprintf("--- Round %d ---", round),
			fmt.Sprintf("Start of round: attacker HP %.0f, defender HP %.0f", attHP, defHP))

		if attHP == 0 || defHP == 0 {
			lines = append(lines, "Battle ended: one side eliminated before acting this round")
			break
		}
		rounds = round

		attDamage := damagePotential(counters, att, def, defHP)
		defDamage := damagePotential(counters, def, att, attHP)
		lines = append(lines,
			fmt.Sprintf("Attacker deals %.0f damage", attDamage),
			fmt.Sprintf("Defender deals %.0f damage", defDamage))

		def = applyDamage(def, attDamage, defHP, "Defender", &lines)
		att = applyDamage(att, defDamage, attHP, "Attacker", &lines)

		if totalHP(att) == 0 || totalHP(def) == 0 {
			lines = append(lines, "Battle ended: one side eliminated")
			break
		}
		if round == MaxRounds {
			lines = append(lines, "Battle ended: max rounds reached")
		}
	}

	finalAtt := totalHP(att)
	finalDef := totalHP(def)
	outcome := Outcome{
		RoundsFought:                  rounds,
		AttackerHPRemainingPercentage: finalAtt / initialAtt * 100,
		DefenderHPRemainingPercentage: finalDef / initialDef * 100,
		AttackerInitialHP:             initialAtt,
		AttackerFinalHP:               finalAtt,
		DefenderInitialHP:             initialDef,
		DefenderFinalHP:               finalDef,
	}

	switch {
	case finalAtt > 0 && finalDef <= 0:
		outcome.Winner = Attacker
	case finalDef > 0 && finalAtt <= 0:
		outcome.Winner = Defender
	case finalAtt <= 0 && finalDef <= 0:
		outcome.Winner = Draw
		lines = append(lines, "Both sides eliminated")
	default:
		switch {
		case outcome.AttackerHPRemainingPercentage > outcome.DefenderHPRemainingPercentage:
			outcome.Winner = Attacker
		case outcome.DefenderHPRemainingPercentage > outcome.AttackerHPRemainingPercentage:
			outcome.Winner = Defender
		default:
			outcome.Winner = Draw
		}
		lines = append(lines, fmt.Sprintf("Both sides survived, decided by remaining HP percentage: %s", outcome.Winner))
	}

	lines = append(lines,
		"--- Battle End ---",
		fmt.Sprintf("Rounds fought: %d", rounds),
		fmt.Sprintf("Final attacker HP: %.0f / %.0f", finalAtt, initialAtt),
		fmt.Sprintf("Final defender HP: %.0f / %.0f", finalDef, initialDef),
		fmt.Sprintf("Winner: %s", outcome.Winner))
	outcome.Log = lines

	logger.Debug("Battle simulated", "winner", outcome.Winner, "rounds", rounds,
		"attacker_pct", outcome.AttackerHPRemainingPercentage, "defender_pct", outcome.DefenderHPRemainingPercentage)
	return outcome
}

// damagePotential is the total damage from's living groups deal this round.
// Each group's ATK is split across the opposing groups by their HP share, and
// every pairing gets its own counter modifier.
func damagePotential(counters gamedata.CounterTable, from, to []unit, toTotal float64) float64 {
	if toTotal <= 0 {
		return 0
	}
	total := 0.0
	for _, a := range from {
		if a.HP <= 0 {
			continue
		}
		for _, d := range to {
			if d.HP <= 0 {
				continue
			}
			total += a.ATK * (1 + CounterModifier(counters, a.Type, d.Type)) * (d.HP / toTotal)
		}
	}
	return total
}

// applyDamage returns a new state for units after taking damage, split by each
// group's share of the side's start-of-round HP.
func applyDamage(units []unit, damage, sideTotal float64, side string, lines *[]string) []unit {
	next := make([]unit, len(units))
	copy(next, units)
	if sideTotal <= 0 {
		return next
	}
	for i, u := range next {
		if u.HP <= 0 {
			continue
		}
		share := damage * (u.HP / sideTotal)
		next[i].HP = math.Max(0, u.HP-share)
		*lines = append(*lines, fmt.Sprintf("  %s's %s %s HP: %.0f -> %.0f (took %.0f)",
			side, u.Type, u.Tier, u.HP, next[i].HP, share))
	}
	return next
}

// CounterModifier returns the damage adjustment for attackerType hitting
// defenderType, read from the attacker's counter entry. Names are singularized
// by dropping one trailing "s". A nil table is neutral.
func CounterModifier(counters gamedata.CounterTable, attackerType, defenderType string) float64 {
	if counters == nil {
		return 0
	}
	attacker := gamedata.NormalizeTroopType(attackerType)
	defender := gamedata.NormalizeTroopType(defenderType)

	entry, ok := counters[attacker]
	if !ok {
		return 0
	}
	switch {
	case slices.Contains(entry.StrongAgainst, defender):
		return StrongModifier
	case slices.Contains(entry.WeakAgainst, defender):
		return WeakModifier
	}
	return 0
}
