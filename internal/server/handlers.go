package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/database"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
)

// maxBodyBytes caps HTTP request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	ae := toAPIError(err, nil)
	writeJSON(w, ae.Status, ae)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &apiError{Status: http.StatusRequestEntityTooLarge, Message: "request body too large"}
		}
		return nil, badRequest("failed to read request body: %v", err)
	}
	return body, nil
}

// operationHandler serves a named operation over HTTP.
func (s *Server) operationHandler(name string) http.Handler {
	op := s.ops[name]
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		result, err := op(body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
}

type healthResponse struct {
	Status        string          `json:"status"`
	Tables        map[string]bool `json:"tables"`
	Connections   ConnStats       `json:"connections"`
	Profiles      bool            `json:"profiles_enabled"`
	UptimeSeconds int64           `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !s.data.Complete() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        status,
		Tables:        s.data.Availability(),
		Connections:   s.conns.Stats(),
		Profiles:      s.db != nil,
		UptimeSeconds: int64(time.Since(s.StartTime).Seconds()),
	})
}

func (s *Server) requireDatabase(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.db == nil {
			writeError(w, &apiError{Status: http.StatusServiceUnavailable, Message: "profile storage is disabled"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createAccountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, badRequest("invalid request body: %v", err))
		return
	}

	if check := s.names.Check(req.Username); !check.Allowed {
		writeError(w, badRequest("%s", check.Reason))
		return
	}
	if msg := s.cfg.Password.ValidatePassword(req.Password); msg != "" {
		writeError(w, badRequest("%s Requirements: %s", msg, s.cfg.Password.GetRequirementsText()))
		return
	}

	account, err := s.db.CreateAccount(req.Username, req.Password)
	switch {
	case errors.Is(err, database.ErrAccountExists):
		writeError(w, &apiError{Status: http.StatusConflict, Message: err.Error()})
		return
	case errors.Is(err, database.ErrInvalidUsername):
		writeError(w, badRequest("%v", err))
		return
	case err != nil:
		writeError(w, err)
		return
	}

	logger.Audit("Account created", "username", account.Username, "client_ip", clientIP(r), "event", "account_create")
	writeJSON(w, http.StatusCreated, accountResponse{ID: account.ID, Username: account.Username})
}

type accountKey struct{}

func accountFrom(ctx context.Context) *database.Account {
	a, _ := ctx.Value(accountKey{}).(*database.Account)
	return a
}

// withProfileAuth requires HTTP basic credentials for the {username} in the
// path. Failures count toward the caller address's login lockout.
func (s *Server) withProfileAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if locked, remaining := s.logins.IsLocked(ip); locked {
			w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())+1))
			writeError(w, &apiError{Status: http.StatusTooManyRequests, Message: "too many failed logins"})
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="battalionsim"`)
			writeError(w, &apiError{Status: http.StatusUnauthorized, Message: "credentials required"})
			return
		}

		account, err := s.db.ValidateLogin(username, password, ip)
		if err != nil {
			if !errors.Is(err, database.ErrInvalidCredentials) {
				writeError(w, err)
				return
			}
			locked, d := s.logins.RecordFailure(ip)
			logger.Audit("Profile login failed", "username", username, "client_ip", ip, "locked", locked, "event", "login_failed")
			if locked {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.Seconds())))
				writeError(w, &apiError{Status: http.StatusTooManyRequests, Message: "too many failed logins"})
				return
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="battalionsim"`)
			writeError(w, &apiError{Status: http.StatusUnauthorized, Message: err.Error()})
			return
		}
		s.logins.RecordSuccess(ip)

		if !strings.EqualFold(account.Username, mux.Vars(r)["username"]) {
			writeError(w, &apiError{Status: http.StatusForbidden, Message: "credentials do not match profile"})
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, account)))
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.db.GetProfile(accountFrom(r.Context()).ID)
	if errors.Is(err, database.ErrProfileNotFound) {
		writeError(w, &apiError{Status: http.StatusNotFound, Message: err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var side SideRequest
	if err := json.Unmarshal(body, &side); err != nil {
		writeError(w, badRequest("invalid request body: %v", err))
		return
	}
	if err := validateTroops("troops", side.Troops); err != nil {
		writeError(w, err)
		return
	}

	account := accountFrom(r.Context())
	profile := database.Profile{Troops: side.Troops, Enforcers: side.Enforcers, MiscBuffs: side.MiscBuffs}
	if err := s.db.SaveProfile(account.ID, profile); err != nil {
		writeError(w, err)
		return
	}
	saved, err := s.db.GetProfile(account.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteProfile(accountFrom(r.Context()).ID)
	if errors.Is(err, database.ErrProfileNotFound) {
		writeError(w, &apiError{Status: http.StatusNotFound, Message: err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// profileEnforcerRequest is an EnforcerRequest whose user side comes from the
// saved profile.
type profileEnforcerRequest struct {
	OpponentTroops     []battalion.TroopEntry      `json:"opponent_troops"`
	OpponentEnforcers  []battalion.EnforcerLoadout `json:"opponent_enforcers"`
	OpponentMiscBuffs  battalion.MiscBuffs         `json:"opponent_misc_buffs"`
	AvailableEnforcers []battalion.EnforcerLoadout `json:"available_enforcers"`
}

// handleProfileEnforcers runs the enforcer search for the saved troops. When
// no available list is sent, the profile's own enforcers are the pool.
func (s *Server) handleProfileEnforcers(w http.ResponseWriter, r *http.Request) {
	profile, err := s.db.GetProfile(accountFrom(r.Context()).ID)
	if errors.Is(err, database.ErrProfileNotFound) {
		writeError(w, &apiError{Status: http.StatusNotFound, Message: err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req profileEnforcerRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, badRequest("invalid request body: %v", err))
			return
		}
	}

	available := req.AvailableEnforcers
	if len(available) == 0 {
		available = profile.Enforcers
	}
	result, err := s.runRecommendEnforcers(EnforcerRequest{
		UserTroops:         profile.Troops,
		UserMiscBuffs:      profile.MiscBuffs,
		OpponentTroops:     req.OpponentTroops,
		OpponentEnforcers:  req.OpponentEnforcers,
		OpponentMiscBuffs:  req.OpponentMiscBuffs,
		AvailableEnforcers: available,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
