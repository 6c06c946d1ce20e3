package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// vm is one script's LState. An LState is single-threaded, so every use holds mu.
type vm struct {
	mu sync.Mutex
	L  *lua.LState
}

// Manager owns one sandboxed VM per script, keyed by the script's file name
// without extension ("berserker.lua" is "berserker").
//
// Manager is safe for concurrent use.
type Manager struct {
	roller    *dice.Roller
	logger    *zap.Logger
	instLimit int

	mu  sync.RWMutex
	vms map[string]*vm
}

// NewManager creates an empty Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: instLimit <= 0 selects DefaultInstructionLimit per hook call.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	return &Manager{
		roller:    roller,
		logger:    logger,
		instLimit: instLimit,
		vms:       make(map[string]*vm),
	}
}

// LoadDir loads every *.lua file in dir into its own VM.
//
// Postcondition: On error no VM from dir is registered.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	loaded := make(map[string]*vm, len(files))
	for _, name := range files {
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			closeAll(loaded)
			return fmt.Errorf("scripting: reading %q: %w", name, err)
		}
		key := strings.TrimSuffix(name, ".lua")
		v, err := m.compile(key, string(src))
		if err != nil {
			closeAll(loaded)
			return err
		}
		loaded[key] = v
	}

	for key, v := range loaded {
		m.install(key, v)
	}
	m.logger.Info("scripts loaded", zap.String("dir", dir), zap.Int("count", len(loaded)))
	return nil
}

// LoadString loads src as the script named key, replacing any previous one.
func (m *Manager) LoadString(key, src string) error {
	v, err := m.compile(key, src)
	if err != nil {
		return err
	}
	m.install(key, v)
	return nil
}

// Has reports whether a script named key is loaded.
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[key]
	return ok
}

func (m *Manager) compile(key, src string) (*vm, error) {
	L := NewSandboxedState()
	m.registerModules(L, key)
	release := withBudget(L, m.instLimit)
	err := L.DoString(src)
	release()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", key, err)
	}
	return &vm{L: L}, nil
}

func (m *Manager) install(key string, v *vm) {
	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = v
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
}

// CallHook calls the global function hook in script key with args and
// returns its first result. A missing script or hook returns (LNil, nil).
// Lua runtime errors, including an exhausted instruction budget, are
// returned wrapped.
//
// Precondition: args must have been built with NewTable or be scalar values;
// tables must not be shared between scripts.
func (m *Manager) CallHook(key, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[key]
	m.mu.RUnlock()
	if !ok {
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}
	var args []lua.LValue
	if build != nil {
		args = build(v.L)
	}

	release := withBudget(v.L, m.instLimit)
	defer release()
	if err := v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, fmt.Errorf("scripting: %s.%s: %w", key, hook, err)
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	closeAll(vms)
}

func closeAll(vms map[string]*vm) {
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
