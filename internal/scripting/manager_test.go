package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/gridbattle/internal/game/dice"
	"github.com/cory-johannsen/gridbattle/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewRoller(dice.NewSeededSource(1), logger)
	mgr := scripting.NewManager(roller, logger)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

// fakeHost records every call made through engine.*.
type fakeHost struct {
	mu       sync.Mutex
	units    map[int]scripting.UnitInfo
	statuses []string
	healed   int
	damaged  int
	fury     int
	shield   int
}

func (h *fakeHost) Unit(iid int) (scripting.UnitInfo, bool) {
	u, ok := h.units[iid]
	return u, ok
}

func (h *fakeHost) ApplyStatus(iid int, id string, turns int, power float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, id)
	return true
}

func (h *fakeHost) Heal(_, amount int) int {
	h.healed += amount
	return amount
}

func (h *fakeHost) Damage(_, amount int) int {
	h.damaged += amount
	return amount
}

func (h *fakeHost) GainFury(_, amount int) int {
	h.fury += amount
	return amount
}

func (h *fakeHost) Shield(_, amount int) { h.shield += amount }

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function add(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.Load("passives", dir, 0))
	assert.True(t, mgr.Has("passives", "add"))
	assert.False(t, mgr.Has("passives", "missing"))
	ret, err := mgr.CallHook("passives", "add", nil, lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_CallHook_MissingVMOrHook(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret, err := mgr.CallHook("nope", "hook", nil)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: no VM").Len())

	require.NoError(t, mgr.LoadString("p", `-- empty`, 0))
	ret, err = mgr.CallHook("p", "hook", nil)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeErrorLogged(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadString("p", `function boom() error("bad") end`, 0))
	ret, err := mgr.CallHook("p", "boom", nil)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestManager_BudgetResetsPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("p", `
		function spin(n)
			local s = 0
			for i = 1, n do s = s + i end
			return s
		end
		function forever() while true do end end
	`, 5000))
	for i := 0; i < 20; i++ {
		ret, err := mgr.CallHook("p", "spin", nil, lua.LNumber(200))
		require.NoError(t, err)
		require.Equal(t, lua.LNumber(20100), ret, "call %d", i)
	}
	ret, _ := mgr.CallHook("p", "forever", nil)
	assert.Equal(t, lua.LNil, ret)
	ret, _ = mgr.CallHook("p", "spin", nil, lua.LNumber(10))
	assert.Equal(t, lua.LNumber(55), ret, "a runaway call does not poison the VM")
}

func TestManager_EngineModule(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("p", `
		function lifesteal(self, target, dealt)
			local me = engine.unit(self)
			if me == nil or engine.unit(99) ~= nil then return -1 end
			engine.heal(self, math.floor(dealt / 2))
			engine.damage(target, 3)
			engine.gain_fury(self, 5)
			engine.shield(self, 7)
			engine.apply_status(target, "bleed", 2)
			engine.log("lifesteal " .. me.name)
			return me.hp
		end
	`, 0))
	host := &fakeHost{units: map[int]scripting.UnitInfo{1: {IID: 1, Name: "Vamp", HP: 40}}}
	ret, err := mgr.CallHook("p", "lifesteal", host, lua.LNumber(1), lua.LNumber(2), lua.LNumber(21))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(40), ret)
	assert.Equal(t, 10, host.healed)
	assert.Equal(t, 3, host.damaged)
	assert.Equal(t, 5, host.fury)
	assert.Equal(t, 7, host.shield)
	assert.Equal(t, []string{"bleed"}, host.statuses)
}

func TestManager_ConcurrentCalls(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("p", `function double(x) return x * 2 end`, 0))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ret, err := mgr.CallHook("p", "double", nil, lua.LNumber(i))
			assert.NoError(t, err)
			assert.Equal(t, lua.LNumber(2*i), ret)
		}(i)
	}
	wg.Wait()
}
