// Package scripting provides the sandboxed GopherLua environment that runs
// scripted kit passives. It has no dependency on battle packages; all battle
// interaction goes through the Host interface supplied per call.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one chunk or hook call
// when no override is configured.
const DefaultInstructionLimit = 100_000

// safeLibs are the only standard libraries a passive VM gets.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// strippedGlobals are base-library functions that reach the filesystem,
// compile arbitrary chunks or write to stdout.
var strippedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "print"}

// opBudget cancels itself once Done has been polled n times. GopherLua polls
// Done once per opcode while a context is set.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// withBudget arms L with a fresh budget of limit opcodes and returns the
// function that disarms it.
func withBudget(L *lua.LState, limit int) func() {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	L.SetContext(b)
	return func() {
		cancel()
		L.RemoveContext()
	}
}

// NewSandboxedState creates an LState with only the safe libraries open and
// the stripped globals removed. No budget is armed; run code through
// DoBudgeted or a Manager.
//
// Postcondition: the caller owns the LState and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// DoBudgeted runs src in L under a budget of limit opcodes; 0 uses
// DefaultInstructionLimit.
func DoBudgeted(L *lua.LState, src string, limit int) error {
	release := withBudget(L, limit)
	defer release()
	return L.DoString(src)
}
