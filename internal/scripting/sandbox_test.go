package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile", "load", "loadstring", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_SafeLibsAvailable(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	err := L.DoString(`
		assert(math.sqrt(4) == 2.0)
		assert(string.upper("hello") == "HELLO")
		local t = {}
		table.insert(t, 1)
		assert(#t == 1)
	`)
	assert.NoError(t, err)
}

func TestWithBudget_StopsRunawayScript(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	release := withBudget(L, 50)
	err := L.DoString(`while true do end`)
	release()
	require.Error(t, err)

	// a fresh budget makes the state usable again
	release = withBudget(L, 0)
	defer release()
	assert.NoError(t, L.DoString(`local x = 1 + 1`))
}

func TestProperty_BudgetAlwaysStopsInfiniteLoop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 200).Draw(t, "limit")
		L := NewSandboxedState()
		defer L.Close()
		release := withBudget(L, limit)
		defer release()
		if err := L.DoString(`while true do end`); err == nil {
			t.Fatalf("expected error with limit=%d", limit)
		}
	})
}
