package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

// ChooseAbilityHook is the global function an AI script defines:
//
//	function choose_ability(enemy, hero, usable) ... end
//
// usable is an array of 1-based ability indices. The hook returns one of
// them, 0 to skip the turn, or nil to defer to the fallback policy.
const ChooseAbilityHook = "choose_ability"

// Policy is a combat.EnemyPolicy that asks the enemy's AI script, falling
// back to another policy when the enemy has no script or the script fails.
type Policy struct {
	mgr      *Manager
	fallback combat.EnemyPolicy
	logger   *zap.Logger
}

// NewPolicy returns a Policy over mgr.
//
// Precondition: mgr, fallback and logger must be non-nil.
func NewPolicy(mgr *Manager, fallback combat.EnemyPolicy, logger *zap.Logger) *Policy {
	return &Policy{mgr: mgr, fallback: fallback, logger: logger}
}

// ChooseAbility implements combat.EnemyPolicy.
func (p *Policy) ChooseAbility(enemy, hero combat.ParticipantState, usable []int) int {
	if enemy.AIScript == "" || !p.mgr.Has(enemy.AIScript) {
		return p.fallback.ChooseAbility(enemy, hero, usable)
	}

	ret, err := p.mgr.CallHook(enemy.AIScript, ChooseAbilityHook, func(L *lua.LState) []lua.LValue {
		list := L.NewTable()
		for _, i := range usable {
			list.Append(lua.LNumber(i + 1))
		}
		return []lua.LValue{participantTable(L, enemy), participantTable(L, hero), list}
	})
	if err != nil {
		p.logger.Warn("ai script failed; using fallback",
			zap.String("script", enemy.AIScript),
			zap.String("enemy", enemy.ID),
			zap.Error(err),
		)
		return p.fallback.ChooseAbility(enemy, hero, usable)
	}

	n, ok := ret.(lua.LNumber)
	if !ok {
		return p.fallback.ChooseAbility(enemy, hero, usable)
	}
	if n == 0 {
		return -1
	}
	if f := float64(n); f == math.Trunc(f) {
		choice := int(f) - 1
		for _, i := range usable {
			if i == choice {
				return choice
			}
		}
	}
	p.logger.Warn("ai script chose an unusable ability; using fallback",
		zap.String("script", enemy.AIScript),
		zap.String("enemy", enemy.ID),
		zap.Float64("choice", float64(n)),
	)
	return p.fallback.ChooseAbility(enemy, hero, usable)
}

func participantTable(L *lua.LState, p combat.ParticipantState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(p.ID))
	L.SetField(t, "name", lua.LString(p.Name))
	L.SetField(t, "class", lua.LString(p.Class))
	L.SetField(t, "health", lua.LNumber(p.Health))
	L.SetField(t, "max_health", lua.LNumber(p.MaxHealth))
	L.SetField(t, "mana", lua.LNumber(p.Mana))
	L.SetField(t, "max_mana", lua.LNumber(p.MaxMana))

	abilities := L.NewTable()
	for _, a := range p.Abilities {
		at := L.NewTable()
		L.SetField(at, "id", lua.LString(a.ID))
		L.SetField(at, "name", lua.LString(a.Name))
		L.SetField(at, "mana_cost", lua.LNumber(a.ManaCost))
		L.SetField(at, "damage", lua.LNumber(a.Damage))
		L.SetField(at, "healing", lua.LNumber(a.Healing))
		L.SetField(at, "ready", lua.LBool(a.Ready))
		abilities.Append(at)
	}
	L.SetField(t, "abilities", abilities)
	return t
}
