package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/battle"
	"github.com/lawnchairsociety/battalionsim/internal/strategy"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	winColor     = color.New(color.FgGreen, color.Bold)
	loseColor    = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
)

func num(v float64) string {
	return humanize.Commaf(math.Round(v))
}

func qty(n int) string {
	return humanize.Comma(int64(n))
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderBattalion(w io.Writer, title string, result battalion.Result) error {
	titleColor.Fprintf(w, "\n%s\n", title)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Type", "Tier", "Quantity", "ATK", "DEF", "HP", "Buffs"}),
	)
	for _, g := range result.Details {
		if !g.OK() {
			continue
		}
		if err := table.Append([]string{g.Type, g.Tier, qty(g.Quantity), num(g.ATK), num(g.DEF), num(g.HP), fmt.Sprint(len(g.BuffsApplied))}); err != nil {
			return err
		}
	}
	if err := table.Append([]string{"TOTAL", "", "", num(result.TotalATK), num(result.TotalDEF), num(result.TotalHP), ""}); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, g := range result.Failed() {
		warningColor.Fprintf(w, "  skipped: %s\n", g.Error)
	}
	return nil
}

func renderBuffs(w io.Writer, result battalion.Result) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Group", "Buff", "Source", "Stat", "Value", "Before", "After"}),
	)
	for _, g := range result.Details {
		for _, b := range g.BuffsApplied {
			row := []string{g.Type + " " + g.Tier, b.BuffName, b.Source, b.Stat, pct(b.Percentage * 100), num(b.Before), num(b.After)}
			if err := table.Append(row); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

func winnerColor(w battle.Winner) *color.Color {
	switch w {
	case battle.Attacker:
		return winColor
	case battle.Defender:
		return loseColor
	default:
		return warningColor
	}
}

func renderOutcome(w io.Writer, outcome battle.Outcome, attackerLabel, defenderLabel string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Side", "Initial HP", "Final HP", "Remaining"}),
	)
	rows := [][]string{
		{attackerLabel, num(outcome.AttackerInitialHP), num(outcome.AttackerFinalHP), pct(outcome.AttackerHPRemainingPercentage)},
		{defenderLabel, num(outcome.DefenderInitialHP), num(outcome.DefenderFinalHP), pct(outcome.DefenderHPRemainingPercentage)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	winnerColor(outcome.Winner).Fprintf(w, "Winner: %s after %d rounds\n", outcome.Winner, outcome.RoundsFought)
	return nil
}

func renderTroopMix(w io.Writer, rec strategy.TroopMixRecommendation) error {
	titleColor.Fprintf(w, "\nRecommended counter (opponent is mostly %s)\n", rec.OpponentDominantType)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Type", "Tier", "Quantity"}),
	)
	for _, t := range rec.RecommendedMix {
		if err := table.Append([]string{t.Type, t.Tier, qty(t.Quantity)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(rec.AssumedEnforcers) > 0 {
		fmt.Fprintf(w, "Assumed enforcers: %s\n", teamString(rec.AssumedEnforcers))
	}
	if rec.Simulation != nil {
		fmt.Fprintln(w)
		return renderOutcome(w, *rec.Simulation, "Recommended", "Opponent")
	}
	return nil
}

func teamString(team []battalion.EnforcerLoadout) string {
	parts := make([]string, len(team))
	for i, e := range team {
		parts[i] = e.Name + " (" + e.Tier
		if e.HasSignatureWeapon {
			parts[i] += ", SW"
		}
		parts[i] += ")"
	}
	return strings.Join(parts, ", ")
}

func renderEnforcerSetups(w io.Writer, rec strategy.EnforcerRecommendation) error {
	titleColor.Fprintf(w, "\nEnforcer teams for a %s battalion\n", rec.DominantUserType)
	fmt.Fprintf(w, "Candidates generated: %d, evaluated: %d\n", rec.CandidatesGenerated, rec.CandidatesEvaluated)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Rank", "Team", "Winner", "Your HP", "Opponent HP", "Rounds"}),
	)
	for i, setup := range rec.TopSetups {
		row := []string{
			fmt.Sprint(i + 1),
			teamString(setup.Team),
			string(setup.Simulation.Winner),
			pct(setup.Simulation.AttackerHPRemainingPercentage),
			pct(setup.Simulation.DefenderHPRemainingPercentage),
			fmt.Sprint(setup.Simulation.RoundsFought),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
