// Package scripting runs enemy AI scripts in sandboxed GopherLua VMs.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit bounds the Lua opcodes one hook call may execute.
const DefaultInstructionLimit = 100_000

// safeLibs are the only standard libraries an AI script can see.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// bannedGlobals are base functions that reach the filesystem, compile code at
// runtime or expose the collector.
var bannedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// NewSandboxedState returns an LState holding only safeLibs, with
// bannedGlobals cleared.
//
// Postcondition: The caller owns the LState and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range bannedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// opBudget is a context whose Done channel closes once it has been polled
// more than its allowance. GopherLua polls Done before every opcode.
type opBudget struct {
	context.Context
	left   atomic.Int64
	cancel context.CancelFunc
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) < 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// withBudget limits L to limit opcodes until the returned release func runs.
// A non-positive limit uses DefaultInstructionLimit.
func withBudget(L *lua.LState, limit int) (release func()) {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	b := &opBudget{}
	b.Context, b.cancel = context.WithCancel(context.Background())
	b.left.Store(int64(limit))
	L.SetContext(b)
	return func() {
		L.RemoveContext()
		b.cancel()
	}
}
