package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/command"
	"github.com/cory-johannsen/dungeon/internal/game/player"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/game/world"
	"github.com/cory-johannsen/dungeon/internal/storage/postgres"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "dungeon_session"

// AccountStore defines the account persistence operations required by the server.
type AccountStore interface {
	Create(ctx context.Context, username, password string) (postgres.Account, error)
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
}

// SaveStore defines the saved-game persistence operations required by the server.
type SaveStore interface {
	Put(ctx context.Context, username, name string, snap session.Snapshot) (postgres.SavedGame, error)
	Get(ctx context.Context, username, name string) (postgres.SavedGame, error)
	List(ctx context.Context, username string) ([]postgres.SavedGame, error)
	Delete(ctx context.Context, username, name string) error
}

// HealthChecker reports backing-store liveness.
type HealthChecker interface {
	Health(ctx context.Context, timeout time.Duration) error
}

// HTTPServer is the JSON/HTTP game surface: login, command parsing,
// map rendering, and saved games.
type HTTPServer struct {
	cfg      config.HTTPConfig
	logger   *zap.Logger
	interp   *command.Interpreter
	store    session.Store
	accounts AccountStore
	saves    SaveStore
	health   HealthChecker
	newWorld command.WorldFactory
	metrics  *Metrics
	srv      *http.Server
}

// NewHTTPServer wires the game surface together.
//
// Precondition: logger, interp, store, and newWorld must be non-nil.
// accounts, saves, and health may be nil; the matching endpoints then
// report unavailability.
func NewHTTPServer(
	cfg config.HTTPConfig,
	logger *zap.Logger,
	interp *command.Interpreter,
	store session.Store,
	accounts AccountStore,
	saves SaveStore,
	health HealthChecker,
	newWorld command.WorldFactory,
	metrics *Metrics,
) *HTTPServer {
	s := &HTTPServer{
		cfg:      cfg,
		logger:   logger,
		interp:   interp,
		store:    store,
		accounts: accounts,
		saves:    saves,
		health:   health,
		newWorld: newWorld,
		metrics:  metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /parser", s.handleParser)
	mux.HandleFunc("GET /map.svg", s.handleMap)
	mux.HandleFunc("POST /api/dungeon/save", s.handleSave)
	mux.HandleFunc("POST /api/dungeon/load", s.handleLoad)
	mux.HandleFunc("GET /api/dungeon/saves", s.handleListSaves)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	s.srv = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins serving. It blocks until the server is stopped.
func (s *HTTPServer) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr()))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully drains in-flight requests.
func (s *HTTPServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Asset     string `json:"asset,omitempty"`
}

// handleLogin authenticates or auto-registers the player, builds a fresh
// world and session, and returns the opening narration.
func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 32 {
		s.writeError(w, http.StatusBadRequest, "username must be 3-32 characters")
		return
	}
	if len(req.Password) < 6 {
		s.writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	if s.accounts == nil {
		s.writeError(w, http.StatusServiceUnavailable, "accounts unavailable")
		return
	}

	ctx := r.Context()
	acct, err := s.accounts.Authenticate(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, postgres.ErrAccountNotFound):
		acct, err = s.accounts.Create(ctx, req.Username, req.Password)
		if err != nil {
			s.logger.Error("registering account", zap.String("username", req.Username), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "could not create account")
			return
		}
	case errors.Is(err, postgres.ErrInvalidCredentials):
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	case err != nil:
		s.logger.Error("authenticating", zap.String("username", req.Username), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	sess, err := s.newSession(acct.Username)
	if err != nil {
		s.logger.Error("creating session", zap.String("username", acct.Username), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not start game")
		return
	}

	if s.metrics != nil {
		s.metrics.LoginProcessed()
	}
	s.logger.Info("player logged in",
		zap.String("username", acct.Username),
		zap.String("session_id", sess.ID.String()),
	)

	result := s.interp.Execute(sess, "init")
	s.setSessionCookie(w, sess.ID)
	s.writeJSON(w, http.StatusOK, loginResponse{
		SessionID: sess.ID.String(),
		Username:  acct.Username,
		Message:   result.Message,
		Asset:     result.AssetRef,
	})
}

func (s *HTTPServer) newSession(username string) (*session.Session, error) {
	p, err := player.New(username)
	if err != nil {
		return nil, err
	}
	w, err := s.newWorld()
	if err != nil {
		return nil, err
	}
	sess, err := session.New(p, w)
	if err != nil {
		return nil, err
	}
	s.store.Put(sess)
	return sess, nil
}

type parserRequest struct {
	Command string `json:"command"`
}

type parserResponse struct {
	Action   string `json:"action"`
	Message  string `json:"message"`
	Asset    string `json:"asset,omitempty"`
	Quantity int    `json:"quantity"`
	Clear    bool   `json:"clear"`
	Score    int    `json:"score"`
}

// handleParser executes one game command for the cookie's session.
func (s *HTTPServer) handleParser(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}

	var req parserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.interp.Execute(sess, req.Command)
	if s.metrics != nil {
		s.metrics.CommandProcessed(result.Action.String())
		if result.Action == command.ActionMove && strings.HasPrefix(result.Message, "You move") {
			s.metrics.MoveProcessed()
		}
	}

	s.writeJSON(w, http.StatusOK, parserResponse{
		Action:   result.Action.String(),
		Message:  result.Message,
		Asset:    result.AssetRef,
		Quantity: result.Quantity,
		Clear:    result.Clear,
		Score:    sess.CurrentScore(),
	})
}

// handleMap renders the visited portion of the session's world as SVG.
func (s *HTTPServer) handleMap(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}

	sess.Lock()
	svg := world.RenderMapSVG(sess.World.Graph, sess.Cells, sess.CurrentRoomID)
	sess.Unlock()
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}

type saveRequest struct {
	Name string `json:"name"`
}

type saveResponse struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"saved_at"`
}

// handleSave snapshots the session into the saved-game store.
func (s *HTTPServer) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if s.saves == nil {
		s.writeError(w, http.StatusServiceUnavailable, "saved games unavailable")
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		req.Name = "quicksave"
	}

	snap, err := sess.Snapshot()
	if err != nil {
		s.logger.Error("snapshotting session", zap.String("session_id", sess.ID.String()), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not save game")
		return
	}

	saved, err := s.saves.Put(r.Context(), snap.Username, req.Name, snap)
	if err != nil {
		s.logger.Error("storing saved game", zap.String("username", snap.Username), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not save game")
		return
	}

	s.writeJSON(w, http.StatusOK, saveResponse{Name: saved.Name, SavedAt: saved.State.SavedAt})
}

type loadResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Asset     string `json:"asset,omitempty"`
	Score     int    `json:"score"`
}

// handleLoad restores a saved game into a fresh session and swaps the
// caller's cookie to it.
func (s *HTTPServer) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if s.saves == nil {
		s.writeError(w, http.StatusServiceUnavailable, "saved games unavailable")
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		req.Name = "quicksave"
	}
	if sess.Player == nil {
		s.writeError(w, http.StatusConflict, "no player bound to session")
		return
	}

	saved, err := s.saves.Get(r.Context(), sess.Player.Name, req.Name)
	if errors.Is(err, postgres.ErrSaveNotFound) {
		s.writeError(w, http.StatusNotFound, "no such saved game")
		return
	}
	if err != nil {
		s.logger.Error("fetching saved game", zap.String("username", sess.Player.Name), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not load game")
		return
	}

	fresh, err := s.newWorld()
	if err != nil {
		s.logger.Error("building world for load", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not load game")
		return
	}
	restored, err := session.Restore(fresh, saved.State)
	if err != nil {
		s.logger.Error("restoring saved game", zap.String("username", sess.Player.Name), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not load game")
		return
	}

	s.store.Delete(sess.ID)
	s.store.Put(restored)
	s.setSessionCookie(w, restored.ID)

	result := s.interp.Execute(restored, "look")
	s.writeJSON(w, http.StatusOK, loadResponse{
		SessionID: restored.ID.String(),
		Message:   result.Message,
		Asset:     result.AssetRef,
		Score:     restored.CurrentScore(),
	})
}

type savedGameInfo struct {
	Name      string    `json:"name"`
	SavedAt   time.Time `json:"saved_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleListSaves lists the caller's saved games, newest first.
func (s *HTTPServer) handleListSaves(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if s.saves == nil {
		s.writeError(w, http.StatusServiceUnavailable, "saved games unavailable")
		return
	}
	if sess.Player == nil {
		s.writeError(w, http.StatusConflict, "no player bound to session")
		return
	}

	all, err := s.saves.List(r.Context(), sess.Player.Name)
	if err != nil {
		s.logger.Error("listing saved games", zap.String("username", sess.Player.Name), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not list saved games")
		return
	}

	infos := make([]savedGameInfo, 0, len(all))
	for _, sg := range all {
		infos = append(infos, savedGameInfo{
			Name:      sg.Name,
			SavedAt:   sg.State.SavedAt,
			UpdatedAt: sg.UpdatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, infos)
}

// handleHealth reports backing-store liveness.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Health(r.Context(), 5*time.Second); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionFor resolves the request's session cookie, writing the error
// response itself when resolution fails.
func (s *HTTPServer) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "no session; log in first")
		return nil, false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "malformed session token")
		return nil, false
	}
	sess, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "session expired; log in again")
		return nil, false
	}
	return sess, true
}

func (s *HTTPServer) setSessionCookie(w http.ResponseWriter, id uuid.UUID) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response", zap.Error(err))
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
