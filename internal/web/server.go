// Package web serves the arena over HTTP: a JSON API for accounts, content and
// battles, and a websocket that streams live battle updates.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/config"
)

// Server is the HTTP front end. It satisfies server.Service.
type Server struct {
	cfg    config.HTTPConfig
	arena  *arena.Service
	logger *zap.Logger
	router *mux.Router
	http   *http.Server
}

// NewServer builds the router for svc.
//
// Precondition: svc and logger must be non-nil.
func NewServer(cfg config.HTTPConfig, svc *arena.Service, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		arena:  svc,
		logger: logger,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/heroes", s.handleHeroes).Methods(http.MethodGet)
	api.HandleFunc("/encounters", s.handleEncounters).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	authed.HandleFunc("/battles", s.handleStartBattle).Methods(http.MethodPost)
	authed.HandleFunc("/battles/{id}", s.handleGetBattle).Methods(http.MethodGet)
	authed.HandleFunc("/battles/{id}", s.handleEndBattle).Methods(http.MethodDelete)
	authed.HandleFunc("/battles/{id}/log", s.handleBattleLog).Methods(http.MethodGet)
	authed.HandleFunc("/battles/{id}/actions", s.handleAction).Methods(http.MethodPost)

	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(s.requireAuth)
	ws.HandleFunc("/battles/{id}", s.handleStream).Methods(http.MethodGet)
	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address and serves until Stop.
//
// Postcondition: Returns nil after Stop, or the listen/serve error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting up to five seconds for requests.
// Hijacked websocket connections are closed when their battle ends.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
