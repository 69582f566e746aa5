package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/dice"
)

// UnitInfo is a snapshot of a unit passed to Lua.
type UnitInfo struct {
	IID      int
	ID       string
	Name     string
	Side     string
	HP       int
	MaxHP    int
	Fury     int
	FuryMax  int
	Statuses []string
}

// Host is the battle surface a script may touch during one hook call.
type Host interface {
	Unit(iid int) (UnitInfo, bool)
	ApplyStatus(iid int, statusID string, turns int, power float64) bool
	Heal(iid, amount int) int
	Damage(iid, amount int) int
	GainFury(iid, amount int) int
	Shield(iid, amount int)
}

// vm is one loaded script set. Calls into it are serialised by mu.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	host  Host
	limit int
}

// Manager owns one sandboxed VM per script set and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook; calls into the same VM are
// serialised while different VMs run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// Load creates a sandboxed VM for name, registers the engine.* module, then
// executes every *.lua file in scriptDir in lexicographic order. An existing VM
// with the same name is replaced.
//
// Precondition: name must be non-empty; scriptDir must be a readable directory.
// Postcondition: the VM is registered, or an error is returned and nothing changes.
func (m *Manager) Load(name, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, name, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	v := &vm{L: NewSandboxedState(), limit: instLimit}
	m.registerModules(v)
	for _, path := range luaFiles {
		release := withBudget(v.L, instLimit)
		err := v.L.DoFile(path)
		release()
		if err != nil {
			v.L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, name, err)
		}
	}

	m.swap(name, v)
	return nil
}

func (m *Manager) swap(name string, v *vm) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.vms[name]; ok {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.vms[name] = v
}

// LoadString is Load for a single in-memory chunk.
func (m *Manager) LoadString(name, src string, instLimit int) error {
	v := &vm{L: NewSandboxedState(), limit: instLimit}
	m.registerModules(v)
	release := withBudget(v.L, instLimit)
	err := v.L.DoString(src)
	release()
	if err != nil {
		v.L.Close()
		return fmt.Errorf("scripting: loading chunk for %q: %w", name, err)
	}
	m.swap(name, v)
	return nil
}

// Has reports whether the VM name defines a global function hook.
func (m *Manager) Has(name, hook string) bool {
	m.mu.RLock()
	v, ok := m.vms[name]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.L.GetGlobal(hook).Type() == lua.LTFunction
}

// CallHook calls the global function hook in VM name with args, exposing host
// to engine.* for the duration of the call. Returns (LNil, nil) when the VM or
// hook does not exist. Lua runtime errors, including an exhausted instruction
// budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(name, hook string, host Host, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[name]
	m.mu.RUnlock()
	if !ok {
		m.logger.Info("scripting: no VM",
			zap.String("vm", name),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	v.host = host
	release := withBudget(v.L, v.limit)
	defer func() {
		release()
		v.host = nil
	}()

	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("vm", name),
			zap.String("hook", hook),
			zap.Error(err),
		)
		v.L.SetTop(0)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, name)
	}
}
