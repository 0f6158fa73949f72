package strategy

import (
	"errors"
	"fmt"
)

// Precondition failures. They are wrapped in *Error together with the stage
// that detected them.
var (
	ErrEssentialDataMissing = errors.New("essential game data not loaded")
	ErrOpponentNoHP         = errors.New("opponent has no HP")
	ErrNoCombatTroops       = errors.New("opponent has no Bruisers, Hitmen or Bikers with HP")
	ErrCandidateNoHP        = errors.New("recommended mix has no HP")
	ErrNotEnoughEnforcers   = errors.New("not enough valid enforcers to form a team of 5")
	ErrUserNoHP             = errors.New("user troops have no HP")
	ErrNoLeadCandidates     = errors.New("no lead enforcer candidates")
	ErrNoCandidateTeams     = errors.New("no candidate enforcer teams could be generated")
	ErrNoEvaluatedTeams     = errors.New("no enforcer teams could be evaluated")
)

// Stage names reported on *Error.
const (
	StageData       = "data"
	StageOpponent   = "opponent_stats"
	StageClassify   = "classify"
	StageCandidate  = "candidate_stats"
	StagePool       = "enforcer_pool"
	StageUser       = "user_stats"
	StageLeads      = "lead_selection"
	StageGeneration = "team_generation"
	StageEvaluation = "team_evaluation"
)

// Error is a recommender precondition failure.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) *Error {
	return &Error{Stage: stage, Err: err}
}
