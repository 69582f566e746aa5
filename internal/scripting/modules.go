package scripting

import lua "github.com/yuin/gopher-lua"

// registerModules installs the engine table into v's state. Every function
// reads the host bound for the current call; outside a call they are no-ops.
//
//	engine.unit(iid)                         -> table or nil
//	engine.apply_status(iid, id, turns, pow) -> bool
//	engine.heal(iid, amount)                 -> healed
//	engine.damage(iid, amount)               -> dealt
//	engine.gain_fury(iid, amount)            -> gained
//	engine.shield(iid, amount)
//	engine.chance(p)                         -> bool
//	engine.log(msg)
func (m *Manager) registerModules(v *vm) {
	L := v.L
	engine := L.NewTable()

	L.SetField(engine, "unit", L.NewFunction(func(L *lua.LState) int {
		if v.host == nil {
			L.Push(lua.LNil)
			return 1
		}
		info, ok := v.host.Unit(L.CheckInt(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		t.RawSetString("iid", lua.LNumber(info.IID))
		t.RawSetString("id", lua.LString(info.ID))
		t.RawSetString("name", lua.LString(info.Name))
		t.RawSetString("side", lua.LString(info.Side))
		t.RawSetString("hp", lua.LNumber(info.HP))
		t.RawSetString("max_hp", lua.LNumber(info.MaxHP))
		t.RawSetString("fury", lua.LNumber(info.Fury))
		t.RawSetString("fury_max", lua.LNumber(info.FuryMax))
		sts := L.NewTable()
		for _, s := range info.Statuses {
			sts.Append(lua.LString(s))
		}
		t.RawSetString("statuses", sts)
		L.Push(t)
		return 1
	}))

	L.SetField(engine, "apply_status", L.NewFunction(func(L *lua.LState) int {
		ok := false
		if v.host != nil {
			ok = v.host.ApplyStatus(L.CheckInt(1), L.CheckString(2), L.OptInt(3, 0), float64(L.OptNumber(4, 0)))
		}
		L.Push(lua.LBool(ok))
		return 1
	}))

	intOp := func(op func(Host, int, int) int) *lua.LFunction {
		return L.NewFunction(func(L *lua.LState) int {
			n := 0
			if v.host != nil {
				n = op(v.host, L.CheckInt(1), L.CheckInt(2))
			}
			L.Push(lua.LNumber(n))
			return 1
		})
	}
	L.SetField(engine, "heal", intOp(func(h Host, iid, amt int) int { return h.Heal(iid, amt) }))
	L.SetField(engine, "damage", intOp(func(h Host, iid, amt int) int { return h.Damage(iid, amt) }))
	L.SetField(engine, "gain_fury", intOp(func(h Host, iid, amt int) int { return h.GainFury(iid, amt) }))

	L.SetField(engine, "shield", L.NewFunction(func(L *lua.LState) int {
		if v.host != nil {
			v.host.Shield(L.CheckInt(1), L.CheckInt(2))
		}
		return 0
	}))

	L.SetField(engine, "chance", L.NewFunction(func(L *lua.LState) int {
		p := float64(L.CheckNumber(1))
		L.Push(lua.LBool(m.roller.Chance("lua", p)))
		return 1
	}))

	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua: " + L.CheckString(1))
		return 0
	}))

	L.SetGlobal("engine", engine)
}
