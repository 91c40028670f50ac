package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/item"
	"github.com/cory-johannsen/dungeon/internal/game/session"
)

// useHook is the global function every item script must define.
const useHook = "use"

// Manager owns one sandboxed LState per item script and dispatches use
// calls into them. It implements the interpreter's ScriptRunner.
//
// Manager is safe for concurrent Run after LoadDir completes. Each
// script's LState is single-threaded; the manager mutex serializes calls.
// A script's state lives for the whole process, so script globals
// persist across calls and across sessions. Scripts that track state
// for one adventurer key it on the ctx.player field of the use context.
type Manager struct {
	mu        sync.Mutex
	states    map[string]*lua.LState
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: logger must be non-nil; instLimit <= 0 uses the default.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	return &Manager{
		states:    make(map[string]*lua.LState),
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadDir loads every *.lua file in dir into its own sandboxed VM, keyed
// by the file's base name. A file that fails to load is skipped with a
// warning; the remaining scripts still load.
//
// Precondition: dir must be a readable directory.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".lua")
		path := filepath.Join(dir, e.Name())

		L, cancel := NewSandboxedState(m.instLimit)
		registerHelpers(L)
		if err := L.DoFile(path); err != nil {
			m.logger.Warn("scripting: skipping script",
				zap.String("script", name), zap.Error(err))
			cancel()
			L.Close()
			continue
		}

		m.mu.Lock()
		if old, ok := m.states[name]; ok {
			old.Close()
		}
		m.states[name] = L
		m.mu.Unlock()
		m.logger.Info("scripting: loaded item script", zap.String("script", name))
	}
	return nil
}

// Close shuts down every loaded VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, L := range m.states {
		L.Close()
		delete(m.states, name)
	}
}

// Len returns the number of loaded scripts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Run calls the script's use hook with a snapshot of the item and
// session, and returns the narration string the hook produced. A second
// numeric return value, when present, is added to the session score.
//
// Postcondition: Returns an error when the script is missing, the hook is
// undefined, the instruction limit is exceeded, or the hook returns a
// non-string.
func (m *Manager) Run(script string, it *item.Item, sess *session.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[script]
	if !ok {
		return "", fmt.Errorf("scripting: no script named %q", script)
	}

	fn := L.GetGlobal(useHook)
	if fn == lua.LNil {
		return "", fmt.Errorf("scripting: script %q defines no %s function", script, useHook)
	}

	// Each call gets a fresh instruction budget.
	limit := m.instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := newCountingContext(limit)
	defer cancel()
	L.SetContext(ctx)

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    2,
		Protect: true,
	}, snapshot(L, it, sess)); err != nil {
		return "", fmt.Errorf("scripting: running %q: %w", script, err)
	}

	points := L.Get(-1)
	msg := L.Get(-2)
	L.Pop(2)

	text, ok := msg.(lua.LString)
	if !ok {
		return "", fmt.Errorf("scripting: script %q returned %s, want string", script, msg.Type())
	}
	if n, ok := points.(lua.LNumber); ok && sess != nil {
		sess.AddScore(int(n))
	}
	return string(text), nil
}

// snapshot builds the read-only table handed to the use hook.
func snapshot(L *lua.LState, it *item.Item, sess *session.Session) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "item_name", lua.LString(it.Name))
	L.SetField(t, "item_kind", lua.LString(it.Kind))
	L.SetField(t, "item_description", lua.LString(it.Description))
	if sess != nil {
		if sess.Player != nil {
			L.SetField(t, "player", lua.LString(sess.Player.Name))
		}
		L.SetField(t, "score", lua.LNumber(sess.CurrentScore()))
		if room, err := sess.CurrentRoom(); err == nil {
			L.SetField(t, "room", lua.LString(room.Name))
		}
	}
	return t
}
