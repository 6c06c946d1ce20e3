package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/game/catalog"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/storage"
)

// statusFor maps service and simulator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, combat.ErrSessionNotFound),
		errors.Is(err, catalog.ErrHeroNotFound),
		errors.Is(err, catalog.ErrEncounterNotFound):
		return http.StatusNotFound
	case errors.Is(err, arena.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrAccountExists),
		errors.Is(err, combat.ErrOnCooldown),
		errors.Is(err, combat.ErrInsufficientMana),
		errors.Is(err, combat.ErrBattleOver),
		errors.Is(err, combat.ErrActorDefeated),
		errors.Is(err, arena.ErrRealtimeBattle):
		return http.StatusConflict
	case errors.Is(err, storage.ErrAccountNotFound),
		errors.Is(err, storage.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, arena.ErrUnknownAction),
		errors.Is(err, arena.ErrTooManyTicks),
		errors.Is(err, arena.ErrInvalidUsername),
		errors.Is(err, arena.ErrInvalidPassword),
		errors.Is(err, combat.ErrNoTarget),
		errors.Is(err, combat.ErrInvalidTarget),
		errors.Is(err, combat.ErrUnknownParticipant),
		errors.Is(err, combat.ErrUnknownAbility):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func limitParam(r *http.Request, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		return n
	}
	return def
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if !decode(w, r, &c) {
		return
	}
	acct, err := s.arena.Register(r.Context(), c.Username, c.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"username": acct.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if !decode(w, r, &c) {
		return
	}
	acct, err := s.arena.Login(r.Context(), c.Username, c.Password)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			err = storage.ErrInvalidCredentials
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"username": acct.Username,
		"token":    s.arena.Tokens().Issue(acct.Username),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.arena.Tokens().Revoke(bearer(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHeroes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, arena.HeroViews(s.arena.Catalog()))
}

func (s *Server) handleEncounters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, arena.EncounterViews(s.arena.Catalog()))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.arena.Leaderboard(r.Context(), limitParam(r, 10))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []storage.Standing{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	reports, err := s.arena.History(r.Context(), ownerFrom(r), limitParam(r, 10))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if reports == nil {
		reports = []storage.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

type startRequest struct {
	Hero      string `json:"hero"`
	Encounter string `json:"encounter"`
	// Realtime drives the battle on the server clock; otherwise the client
	// advances time with "tick" actions.
	Realtime bool `json:"realtime"`
}

func (s *Server) handleStartBattle(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := s.arena.StartBattle(ownerFrom(r), req.Hero, req.Encounter, req.Realtime)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/battles/"+sess.ID())
	writeJSON(w, http.StatusCreated, arena.ViewOf(sess))
}

func (s *Server) battle(w http.ResponseWriter, r *http.Request) (*combat.Session, bool) {
	sess, err := s.arena.Battle(ownerFrom(r), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.battle(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, arena.ViewOf(sess))
}

func (s *Server) handleBattleLog(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.battle(w, r)
	if !ok {
		return
	}
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	events := sess.EventsSince(since)
	if events == nil {
		events = []combat.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.battle(w, r)
	if !ok {
		return
	}
	var a arena.Action
	if !decode(w, r, &a) {
		return
	}
	if err := arena.Apply(sess, a); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, arena.ViewOf(sess))
}

func (s *Server) handleEndBattle(w http.ResponseWriter, r *http.Request) {
	if err := s.arena.EndBattle(ownerFrom(r), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
