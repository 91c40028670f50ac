package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/command"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/game/world"
	"github.com/cory-johannsen/dungeon/internal/storage/postgres"
)

const serverWorldYAML = `
scenario:
  name: Mysterious Land
  description: A land of mystery.
  opening: You wake up in a damp cellar.
rooms:
  - id: cellar
    name: Cellar
    description: A damp cellar.
    items:
      - name: Brass Key
        kind: key
        description: a brass key
        weight: 0.1
  - id: hall
    name: Hall
    description: A grand hall.
connections:
  - from: cellar
    to: hall
    direction: north
start: cellar
`

type fakeAccounts struct {
	accounts map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[string]string)}
}

func (f *fakeAccounts) Create(_ context.Context, username, password string) (postgres.Account, error) {
	if _, ok := f.accounts[username]; ok {
		return postgres.Account{}, postgres.ErrAccountExists
	}
	f.accounts[username] = password
	return postgres.Account{ID: int64(len(f.accounts)), Username: username}, nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, username, password string) (postgres.Account, error) {
	stored, ok := f.accounts[username]
	if !ok {
		return postgres.Account{}, postgres.ErrAccountNotFound
	}
	if stored != password {
		return postgres.Account{}, postgres.ErrInvalidCredentials
	}
	return postgres.Account{ID: 1, Username: username}, nil
}

type fakeSaves struct {
	games map[string]postgres.SavedGame
}

func newFakeSaves() *fakeSaves {
	return &fakeSaves{games: make(map[string]postgres.SavedGame)}
}

func saveKey(username, name string) string { return username + "/" + name }

func (f *fakeSaves) Put(_ context.Context, username, name string, snap session.Snapshot) (postgres.SavedGame, error) {
	sg := postgres.SavedGame{
		ID:        int64(len(f.games) + 1),
		Username:  username,
		Name:      name,
		State:     snap,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.games[saveKey(username, name)] = sg
	return sg, nil
}

func (f *fakeSaves) Get(_ context.Context, username, name string) (postgres.SavedGame, error) {
	sg, ok := f.games[saveKey(username, name)]
	if !ok {
		return postgres.SavedGame{}, postgres.ErrSaveNotFound
	}
	return sg, nil
}

func (f *fakeSaves) List(_ context.Context, username string) ([]postgres.SavedGame, error) {
	var out []postgres.SavedGame
	for _, sg := range f.games {
		if sg.Username == username {
			out = append(out, sg)
		}
	}
	return out, nil
}

func (f *fakeSaves) Delete(_ context.Context, username, name string) error {
	key := saveKey(username, name)
	if _, ok := f.games[key]; !ok {
		return postgres.ErrSaveNotFound
	}
	delete(f.games, key)
	return nil
}

type fakeHealth struct {
	err error
}

func (f *fakeHealth) Health(context.Context, time.Duration) error { return f.err }

type serverFixture struct {
	srv      *HTTPServer
	accounts *fakeAccounts
	saves    *fakeSaves
	health   *fakeHealth
	store    *session.MemoryStore
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	logger := zap.NewNop()

	newWorld := func() (*world.World, error) {
		return world.LoadWorldFromBytes([]byte(serverWorldYAML), logger)
	}
	store, err := session.NewMemoryStore(time.Hour, logger)
	require.NoError(t, err)

	accounts := newFakeAccounts()
	saves := newFakeSaves()
	health := &fakeHealth{}
	interp := command.NewInterpreter(logger, newWorld, nil)
	metrics := NewMetrics(store, time.Now())

	cfg := config.HTTPConfig{Host: "127.0.0.1", Port: 8000, ShutdownGrace: time.Second}
	srv := NewHTTPServer(cfg, logger, interp, store, accounts, saves, health, newWorld, metrics)

	return &serverFixture{srv: srv, accounts: accounts, saves: saves, health: health, store: store}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/login", loginRequest{Username: username, Password: "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie in login response")
	return nil
}

func TestLoginAutoRegistersAndOpens(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/login", loginRequest{Username: "rheull", Password: "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rheull", resp.Username)
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Message, "You wake up in a damp cellar.")
	assert.Contains(t, resp.Message, "A damp cellar.")
	assert.Equal(t, 1, f.store.Len())
}

func TestLoginWrongPassword(t *testing.T) {
	f := newServerFixture(t)
	f.login(t, "rheull")

	rec := f.do(t, http.MethodPost, "/login", loginRequest{Username: "rheull", Password: "wrongpassword"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/login", loginRequest{Username: "ab", Password: "password123"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/login", loginRequest{Username: "rheull", Password: "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParserExecutesCommands(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.login(t, "rheull")

	rec := f.do(t, http.MethodPost, "/parser", parserRequest{Command: "go north"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp parserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "move", resp.Action)
	assert.Contains(t, resp.Message, "You move north.")
	assert.Contains(t, resp.Message, "A grand hall.")
}

func TestParserRequiresSession(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/parser", parserRequest{Command: "look"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad := &http.Cookie{Name: SessionCookie, Value: "not-a-uuid"}
	rec = f.do(t, http.MethodPost, "/parser", parserRequest{Command: "look"}, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMapRendersSVG(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.login(t, "rheull")

	rec := f.do(t, http.MethodGet, "/map.svg", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.login(t, "rheull")

	rec := f.do(t, http.MethodPost, "/parser", parserRequest{Command: "take key"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/parser", parserRequest{Command: "go north"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/dungeon/save", saveRequest{Name: "slot1"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/dungeon/load", saveRequest{Name: "slot1"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "A grand hall.")

	// The restored session replaces the old one in the store.
	assert.Equal(t, 1, f.store.Len())
	assert.NotEqual(t, cookie.Value, resp.SessionID)
}

func TestLoadMissingSave(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.login(t, "rheull")

	rec := f.do(t, http.MethodPost, "/api/dungeon/load", saveRequest{Name: "nothere"}, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveDefaultsToQuicksave(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.login(t, "rheull")

	rec := f.do(t, http.MethodPost, "/api/dungeon/save", saveRequest{}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	_, ok := f.saves.games[saveKey("rheull", "quicksave")]
	assert.True(t, ok)
}

func TestListSaves(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.login(t, "rheull")

	rec := f.do(t, http.MethodPost, "/api/dungeon/save", saveRequest{Name: "slot1"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/dungeon/saves", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []savedGameInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "slot1", infos[0].Name)
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.health.err = fmt.Errorf("connection refused")
	rec = f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.login(t, "rheull")
	_ = f.do(t, http.MethodPost, "/parser", parserRequest{Command: "look"}, cookie)

	rec := f.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "dungeon_logins_total 1")
	assert.Contains(t, body, `dungeon_commands_total{action="look"} 1`)
	assert.Contains(t, body, "dungeon_sessions_active 1")
}
