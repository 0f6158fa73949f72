package strategy

import (
	"fmt"
	"slices"
	"sort"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/battle"
	"github.com/lawnchairsociety/battalionsim/internal/buff"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
)

const (
	// TeamSize is a lead plus SquadSize squad members.
	TeamSize  = 5
	SquadSize = 4
	// MaxLeadCandidates caps how many leads are tried.
	MaxLeadCandidates = 3
	// SquadPoolSize is how many top-scored enforcers each lead's squads are drawn from.
	SquadPoolSize = 7
	// MaxCandidateTeams caps the teams generated across all leads.
	MaxCandidateTeams = 75
	// TopSetups is how many ranked teams are returned.
	TopSetups = 5
)

// EnforcerSetup is one evaluated team.
type EnforcerSetup struct {
	Team        []battalion.EnforcerLoadout `json:"enforcer_team"`
	UserSummary battalion.Summary           `json:"user_stats_summary"`
	Simulation  battle.Outcome              `json:"simulation"`
}

// EnforcerRecommendation is the result of an enforcer team search.
type EnforcerRecommendation struct {
	Best                *EnforcerSetup  `json:"best_enforcer_recommendation"`
	TopSetups           []EnforcerSetup `json:"all_evaluated_setups"`
	DominantUserType    string          `json:"dominant_user_type,omitempty"`
	CandidatesGenerated int             `json:"candidates_generated"`
	CandidatesEvaluated int             `json:"candidates_evaluated"`
}

// RecommendEnforcerSetup searches lead+squad enforcer teams for the one that
// performs best for the user's troops against a fixed opponent. When available
// is empty every enforcer with both buff and weapon data is a candidate.
func (r *Recommender) RecommendEnforcerSetup(
	userTroops []battalion.TroopEntry,
	userMisc battalion.MiscBuffs,
	opponentTroops []battalion.TroopEntry,
	opponentEnforcers []battalion.EnforcerLoadout,
	opponentMisc battalion.MiscBuffs,
	available []battalion.EnforcerLoadout,
) (EnforcerRecommendation, error) {
	rec := EnforcerRecommendation{TopSetups: []EnforcerSetup{}}

	if r.data == nil || r.data.EnforcerBuffs == nil || r.data.TroopStats == nil || r.data.SignatureWeapons == nil {
		return rec, stageError(StageData, ErrEssentialDataMissing)
	}

	pool := r.validatePool(available)
	if len(pool) < TeamSize {
		return rec, stageError(StagePool, fmt.Errorf("%w: found %d", ErrNotEnoughEnforcers, len(pool)))
	}

	opponent, err := battalion.Aggregate(r.data, opponentTroops, opponentEnforcers, opponentMisc)
	if err != nil {
		return rec, stageError(StageOpponent, err)
	}
	if opponent.TotalHP <= 0 {
		return rec, stageError(StageOpponent, ErrOpponentNoHP)
	}

	userBase, err := battalion.Aggregate(r.data, userTroops, nil, userMisc)
	if err != nil {
		return rec, stageError(StageUser, err)
	}
	if userBase.TotalHP <= 0 {
		return rec, stageError(StageUser, ErrUserNoHP)
	}

	dominant := Classify(userBase).Dominant
	if dominant == "" {
		dominant = r.cfg.DefaultArchetype
	}
	rec.DominantUserType = dominant

	leads := r.selectLeads(pool)
	if len(leads) == 0 {
		return rec, stageError(StageLeads, ErrNoLeadCandidates)
	}

	teams := r.generateTeams(pool, leads, dominant)
	rec.CandidatesGenerated = len(teams)
	if len(teams) == 0 {
		return rec, stageError(StageGeneration, ErrNoCandidateTeams)
	}

	setups := make([]EnforcerSetup, 0, len(teams))
	for _, team := range teams {
		user, err := battalion.Aggregate(r.data, userTroops, team, userMisc)
		if err != nil || user.TotalHP <= 0 {
			logger.Debug("Skipping team that produced no HP", "lead", team[0].Name)
			continue
		}
		setups = append(setups, EnforcerSetup{
			Team:        team,
			UserSummary: user.Summary(),
			Simulation:  battle.Simulate(r.data, user, opponent),
		})
	}
	rec.CandidatesEvaluated = len(setups)
	if len(setups) == 0 {
		return rec, stageError(StageEvaluation, ErrNoEvaluatedTeams)
	}

	rankSetups(setups)
	best := setups[0]
	rec.Best = &best
	rec.TopSetups = setups[:min(TopSetups, len(setups))]

	logger.Info("Enforcer search complete",
		"generated", rec.CandidatesGenerated,
		"evaluated", rec.CandidatesEvaluated,
		"best_lead", best.Team[0].Name,
		"winner", best.Simulation.Winner)
	return rec, nil
}

// defaultPool lists every enforcer with weapon data, sorted by name, at the
// configured pool tier with weapons equipped.
func (r *Recommender) defaultPool() []battalion.EnforcerLoadout {
	names := make([]string, 0, len(r.data.EnforcerBuffs))
	for name := range r.data.EnforcerBuffs {
		if _, ok := r.data.SignatureWeapons[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	pool := make([]battalion.EnforcerLoadout, len(names))
	for i, name := range names {
		pool[i] = battalion.EnforcerLoadout{Name: name, Tier: r.cfg.DefaultPoolTier, HasSignatureWeapon: true}
	}
	return pool
}

// validatePool drops enforcers missing from the buff table, or flagged with a
// weapon that has no weapon data.
func (r *Recommender) validatePool(available []battalion.EnforcerLoadout) []battalion.EnforcerLoadout {
	if len(available) == 0 {
		available = r.defaultPool()
	}
	valid := make([]battalion.EnforcerLoadout, 0, len(available))
	for _, e := range available {
		if _, ok := r.data.EnforcerBuffs[e.Name]; !ok {
			logger.Warning("Available enforcer not in buff table", "enforcer", e.Name)
			continue
		}
		if e.HasSignatureWeapon {
			if _, ok := r.data.SignatureWeapons[e.Name]; !ok {
				logger.Warning("Available enforcer has weapon flag but no weapon data", "enforcer", e.Name)
				continue
			}
		}
		valid = append(valid, e)
	}
	return valid
}

// selectLeads picks up to MaxLeadCandidates pool members from the preferred
// list, in list order. Without any preferred member the first one or two pool
// members are used.
func (r *Recommender) selectLeads(pool []battalion.EnforcerLoadout) []battalion.EnforcerLoadout {
	var leads []battalion.EnforcerLoadout
	for _, e := range pool {
		if slices.Contains(r.cfg.PreferredLeads, e.Name) {
			leads = append(leads, e)
		}
	}
	sort.SliceStable(leads, func(i, j int) bool {
		return slices.Index(r.cfg.PreferredLeads, leads[i].Name) < slices.Index(r.cfg.PreferredLeads, leads[j].Name)
	})
	if len(leads) > MaxLeadCandidates {
		leads = leads[:MaxLeadCandidates]
	}
	if len(leads) == 0 {
		leads = append(leads, pool[:min(2, len(pool))]...)
	}
	return leads
}

// squadScore rates an enforcer for a squad: +1 per Combat buff on every troop,
// +2 per Combat buff on the user's dominant archetype.
func (r *Recommender) squadScore(name, dominant string) int {
	score := 0
	for _, b := range r.data.EnforcerBuffs[name].Buffs {
		if !b.IsCombat() {
			continue
		}
		d, err := buff.Parse(b.Name, r.data.TroopStats)
		if err != nil {
			continue
		}
		switch d.Target {
		case buff.Crew:
			score++
		case dominant:
			score += 2
		}
	}
	return score
}

// generateTeams forms lead + 4 teams from each lead's best-scored squad pool,
// stopping at MaxCandidateTeams.
func (r *Recommender) generateTeams(pool, leads []battalion.EnforcerLoadout, dominant string) [][]battalion.EnforcerLoadout {
	var teams [][]battalion.EnforcerLoadout

	for _, lead := range leads {
		if len(teams) >= MaxCandidateTeams {
			break
		}

		type scored struct {
			loadout battalion.EnforcerLoadout
			score   int
		}
		var candidates []scored
		for _, e := range pool {
			if e.Name == lead.Name {
				continue
			}
			candidates = append(candidates, scored{loadout: e, score: r.squadScore(e.Name, dominant)})
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].score > candidates[j].score
		})
		if len(candidates) > SquadPoolSize {
			candidates = candidates[:SquadPoolSize]
		}
		if len(candidates) < SquadSize {
			logger.Debug("Squad pool too small for lead", "lead", lead.Name, "size", len(candidates))
			continue
		}

		combos := newCombinations(len(candidates), SquadSize)
		for len(teams) < MaxCandidateTeams && combos.Next() {
			team := make([]battalion.EnforcerLoadout, 0, TeamSize)
			team = append(team, lead)
			for _, i := range combos.Indices() {
				team = append(team, candidates[i].loadout)
			}
			if distinctNames(team) == TeamSize {
				teams = append(teams, team)
			}
		}
	}
	return teams
}

func distinctNames(team []battalion.EnforcerLoadout) int {
	seen := make(map[string]struct{}, len(team))
	for _, e := range team {
		seen[e.Name] = struct{}{}
	}
	return len(seen)
}

// rankSetups orders attacker wins first, then by attacker HP remaining.
func rankSetups(setups []EnforcerSetup) {
	sort.SliceStable(setups, func(i, j int) bool {
		iWin := setups[i].Simulation.Winner == battle.Attacker
		jWin := setups[j].Simulation.Winner == battle.Attacker
		if iWin != jWin {
			return iWin
		}
		return setups[i].Simulation.AttackerHPRemainingPercentage > setups[j].Simulation.AttackerHPRemainingPercentage
	})
}
