package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the arena table:
//
//	arena.roll(n)  -> random integer in [1, n] from the engine's dice source
//	arena.log(msg) -> debug log line tagged with the script name
func (m *Manager) registerModules(L *lua.LState, key string) {
	arena := L.NewTable()
	L.SetField(arena, "roll", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n < 1 {
			L.ArgError(1, "sides must be >= 1")
			return 0
		}
		L.Push(lua.LNumber(m.roller.Intn(n) + 1))
		return 1
	}))
	L.SetField(arena, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("script log", zap.String("script", key), zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("arena", arena)
}
