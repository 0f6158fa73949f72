// Package strategy recommends counter troop mixes and enforcer teams by
// aggregating candidate battalions and simulating them against an opponent.
package strategy

import (
	"fmt"
	"math"
	"slices"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/battle"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
)

// Recommender runs recommendations against one immutable game data set.
// It holds no mutable state and is safe for concurrent use.
type Recommender struct {
	data *gamedata.GameData
	cfg  Config
}

// New returns a Recommender. Zero fields of cfg take their defaults.
func New(data *gamedata.GameData, cfg Config) *Recommender {
	return &Recommender{data: data, cfg: cfg.withDefaults()}
}

// Config returns a copy of the effective configuration.
func (r *Recommender) Config() Config {
	return r.cfg.clone()
}

// TroopMixRecommendation is a proposed counter composition and how it fared.
type TroopMixRecommendation struct {
	RecommendedMix       []battalion.TroopEntry      `json:"recommended_mix"`
	OpponentDominantType string                      `json:"opponent_dominant_type,omitempty"`
	Simulation           *battle.Outcome             `json:"simulation_result"`
	AssumedEnforcers     []battalion.EnforcerLoadout `json:"assumed_user_enforcers,omitempty"`
	AssumedMiscBuffs     *battalion.MiscBuffs        `json:"assumed_user_misc_buffs,omitempty"`
	UserSummary          *battalion.Summary          `json:"user_candidate_stats_summary,omitempty"`
	OpponentSummary      *battalion.Summary          `json:"opponent_stats_summary,omitempty"`
}

// RecommendTroopMix proposes a troop mix against the opponent's composition.
// The primary archetype counters the opponent's dominant archetype and is sized
// to hold HPMultiplier times the opponent's HP; two sacrificial groups of
// SacrificialRatio of that quantity round it out. The mix is evaluated with the
// configured default enforcers and misc buffs. On a precondition failure the
// returned *Error is accompanied by whatever part of the recommendation exists.
func (r *Recommender) RecommendTroopMix(opponentTroops []battalion.TroopEntry, opponentEnforcers []battalion.EnforcerLoadout, opponentMisc battalion.MiscBuffs) (TroopMixRecommendation, error) {
	rec := TroopMixRecommendation{RecommendedMix: []battalion.TroopEntry{}}

	if r.data == nil || r.data.TroopStats == nil || r.data.Counters == nil {
		return rec, stageError(StageData, ErrEssentialDataMissing)
	}

	opponent, err := battalion.Aggregate(r.data, opponentTroops, opponentEnforcers, opponentMisc)
	if err != nil {
		return rec, stageError(StageOpponent, err)
	}
	if opponent.TotalHP <= 0 {
		return rec, stageError(StageOpponent, ErrOpponentNoHP)
	}
	opponentSummary := opponent.Summary()
	rec.OpponentSummary = &opponentSummary

	class := Classify(opponent)
	if class.Total == 0 {
		return rec, stageError(StageClassify, ErrNoCombatTroops)
	}
	rec.OpponentDominantType = class.Dominant
	plan, _ := CounterFor(class.Dominant)

	referenceHP := r.cfg.FallbackReferenceHP
	if stats, ok := r.data.TroopStats.Lookup(plan.Primary, r.cfg.ReferenceTier); ok && stats.HP > 0 {
		referenceHP = stats.HP
	} else {
		logger.Warning("Reference HP missing, using fallback",
			"type", plan.Primary, "tier", r.cfg.ReferenceTier, "fallback_hp", referenceHP)
	}

	primaryQty := int(math.Ceil(opponent.TotalHP * r.cfg.HPMultiplier / referenceHP))
	sacrificialQty := int(math.Ceil(float64(primaryQty) * r.cfg.SacrificialRatio))
	rec.RecommendedMix = []battalion.TroopEntry{
		{Type: plan.Primary, Tier: r.cfg.ReferenceTier, Quantity: max(r.cfg.MinimumQuantity, primaryQty)},
		{Type: plan.Sacrificial[0], Tier: r.cfg.SacrificialTier, Quantity: max(r.cfg.MinimumQuantity, sacrificialQty)},
		{Type: plan.Sacrificial[1], Tier: r.cfg.SacrificialTier, Quantity: max(r.cfg.MinimumQuantity, sacrificialQty)},
	}
	rec.AssumedEnforcers = slices.Clone(r.cfg.DefaultEnforcers)
	misc := r.cfg.DefaultMiscBuffs.Clone()
	rec.AssumedMiscBuffs = &misc

	logger.Debug("Generated counter mix",
		"dominant", class.Dominant, "primary", plan.Primary, "primary_qty", rec.RecommendedMix[0].Quantity)

	candidate, err := battalion.Aggregate(r.data, rec.RecommendedMix, r.cfg.DefaultEnforcers, r.cfg.DefaultMiscBuffs)
	if err != nil {
		return rec, stageError(StageCandidate, err)
	}
	if candidate.TotalHP <= 0 {
		return rec, stageError(StageCandidate, fmt.Errorf("%w: %d unresolved groups", ErrCandidateNoHP, len(candidate.Failed())))
	}
	candidateSummary := candidate.Summary()
	rec.UserSummary = &candidateSummary

	outcome := battle.Simulate(r.data, candidate, opponent)
	rec.Simulation = &outcome
	return rec, nil
}
