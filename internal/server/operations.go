package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/battle"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
	"github.com/lawnchairsociety/battalionsim/internal/strategy"
)

// Operation names shared by the HTTP routes and WebSocket message types.
const (
	OpBattalion          = "battalion"
	OpSimulate           = "simulate"
	OpRecommendTroops    = "recommend_troops"
	OpRecommendEnforcers = "recommend_enforcers"
	OpQuickCounter       = "quick_counter"
)

// SideRequest describes one battalion.
type SideRequest struct {
	Troops    []battalion.TroopEntry      `json:"troops"`
	Enforcers []battalion.EnforcerLoadout `json:"enforcers"`
	MiscBuffs battalion.MiscBuffs         `json:"misc_buffs"`
}

// SimulateRequest pits two battalions against each other.
type SimulateRequest struct {
	Attacker SideRequest `json:"attacker"`
	Defender SideRequest `json:"defender"`
}

// SimulateResponse carries both aggregations and the fight outcome.
type SimulateResponse struct {
	Attacker battalion.Result `json:"attacker"`
	Defender battalion.Result `json:"defender"`
	Outcome  battle.Outcome   `json:"outcome"`
}

// TroopMixRequest asks for a counter composition.
type TroopMixRequest struct {
	OpponentTroops    []battalion.TroopEntry      `json:"opponent_troops"`
	OpponentEnforcers []battalion.EnforcerLoadout `json:"opponent_enforcers"`
	OpponentMiscBuffs battalion.MiscBuffs         `json:"opponent_misc_buffs"`
}

// EnforcerRequest asks for the best enforcer team for the user's troops.
type EnforcerRequest struct {
	UserTroops         []battalion.TroopEntry      `json:"user_troops"`
	UserMiscBuffs      battalion.MiscBuffs         `json:"user_misc_buffs"`
	OpponentTroops     []battalion.TroopEntry      `json:"opponent_troops"`
	OpponentEnforcers  []battalion.EnforcerLoadout `json:"opponent_enforcers"`
	OpponentMiscBuffs  battalion.MiscBuffs         `json:"opponent_misc_buffs"`
	AvailableEnforcers []battalion.EnforcerLoadout `json:"available_enforcers"`
}

// apiError is a failed operation as reported to clients. Recommender
// precondition failures carry the failing stage and the partial result.
type apiError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Result  any    `json:"result,omitempty"`
}

func (e *apiError) Error() string {
	if e.Stage != "" {
		return e.Stage + ": " + e.Message
	}
	return e.Message
}

func badRequest(format string, args ...any) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// toAPIError maps err to an apiError, attaching partial when the recommender
// stopped at a precondition.
func toAPIError(err error, partial any) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}
	var se *strategy.Error
	if errors.As(err, &se) {
		return &apiError{Status: http.StatusUnprocessableEntity, Message: se.Err.Error(), Stage: se.Stage, Result: partial}
	}
	if errors.Is(err, battalion.ErrTroopStatsUnavailable) {
		return &apiError{Status: http.StatusServiceUnavailable, Message: err.Error()}
	}
	logger.Error("Operation failed", "error", err)
	return &apiError{Status: http.StatusInternalServerError, Message: "internal error"}
}

// operation decodes a JSON payload and runs it.
type operation func(payload []byte) (any, error)

// typed adapts a handler of a concrete request type. An empty payload decodes
// to the zero request.
func typed[T any](fn func(T) (any, error)) operation {
	return func(payload []byte) (any, error) {
		var req T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, badRequest("invalid request body: %v", err)
			}
		}
		return fn(req)
	}
}

func (s *Server) operations() map[string]operation {
	return map[string]operation{
		OpBattalion:          typed(s.runBattalion),
		OpSimulate:           typed(s.runSimulate),
		OpRecommendTroops:    typed(s.runRecommendTroops),
		OpRecommendEnforcers: typed(s.runRecommendEnforcers),
		OpQuickCounter:       typed(s.runQuickCounter),
	}
}

func validateTroops(field string, troops []battalion.TroopEntry) error {
	for i, t := range troops {
		if t.Quantity < 0 {
			return badRequest("%s[%d]: quantity must not be negative", field, i)
		}
	}
	return nil
}

func (s *Server) aggregate(field string, side SideRequest) (battalion.Result, error) {
	if err := validateTroops(field, side.Troops); err != nil {
		return battalion.Result{}, err
	}
	return battalion.Aggregate(s.data, side.Troops, side.Enforcers, side.MiscBuffs)
}

func (s *Server) runBattalion(req SideRequest) (any, error) {
	result, err := s.aggregate("troops", req)
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	return result, nil
}

func (s *Server) runSimulate(req SimulateRequest) (any, error) {
	attacker, err := s.aggregate("attacker.troops", req.Attacker)
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	defender, err := s.aggregate("defender.troops", req.Defender)
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	return SimulateResponse{
		Attacker: attacker,
		Defender: defender,
		Outcome:  battle.Simulate(s.data, attacker, defender),
	}, nil
}

func (s *Server) runRecommendTroops(req TroopMixRequest) (any, error) {
	if err := validateTroops("opponent_troops", req.OpponentTroops); err != nil {
		return nil, err
	}
	rec, err := s.recommender.RecommendTroopMix(req.OpponentTroops, req.OpponentEnforcers, req.OpponentMiscBuffs)
	if err != nil {
		return nil, toAPIError(err, rec)
	}
	return rec, nil
}

func (s *Server) runRecommendEnforcers(req EnforcerRequest) (any, error) {
	if err := validateTroops("user_troops", req.UserTroops); err != nil {
		return nil, err
	}
	if err := validateTroops("opponent_troops", req.OpponentTroops); err != nil {
		return nil, err
	}
	rec, err := s.recommender.RecommendEnforcerSetup(
		req.UserTroops, req.UserMiscBuffs,
		req.OpponentTroops, req.OpponentEnforcers, req.OpponentMiscBuffs,
		req.AvailableEnforcers,
	)
	if err != nil {
		return nil, toAPIError(err, rec)
	}
	return rec, nil
}

func (s *Server) runQuickCounter(req map[string]int) (any, error) {
	return strategy.QuickCounter(req), nil
}
