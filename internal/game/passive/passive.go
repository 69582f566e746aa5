// Package passive dispatches kit passives at the activation events of a unit
// (spawn, turn start, basic hit, ultimate cast, action end). Each effect runs
// in isolation: a failing effect is logged and the remaining effects still run.
package passive

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/combat"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
	"github.com/cory-johannsen/gridbattle/internal/scripting"
)

// ScriptVM is the scripting VM name passive scripts are loaded under.
const ScriptVM = "passives"

// Context carries event details to effects.
type Context struct {
	Target *arena.Unit
	Dealt  int
}

// Dispatcher fires passives. A nil Scripts disables script effects.
type Dispatcher struct {
	Scripts *scripting.Manager
}

// Fire runs every passive of u's kit bound to ev.
func (d *Dispatcher) Fire(a *arena.Arena, u *arena.Unit, ev catalog.Event, ctx Context) {
	kit := kitOf(a, u)
	if kit == nil {
		return
	}
	for _, p := range kit.PassivesFor(ev) {
		if !d.procs(a, u, p) {
			continue
		}
		for _, eff := range p.Effects {
			d.run(a, u, p, eff, ctx)
		}
	}
}

// OnBasicHit collects onBasicHit modifiers for a basic attack from attacker on
// target. Scale and flat effects adjust the base; every other effect runs after
// the hit with the damage dealt.
func (d *Dispatcher) OnBasicHit(a *arena.Arena, attacker, target *arena.Unit) combat.BasicMod {
	mod := combat.BasicMod{Scale: 1}
	kit := kitOf(a, attacker)
	if kit == nil {
		return mod
	}
	for _, p := range kit.PassivesFor(catalog.OnBasicHit) {
		if !d.procs(a, attacker, p) {
			continue
		}
		for _, eff := range p.Effects {
			switch eff.Kind {
			case catalog.EffectBasicScale:
				if eff.Scale > 0 {
					mod.Scale *= eff.Scale
				}
			case catalog.EffectBasicFlat:
				mod.Flat += eff.Amount
			default:
				p, eff := p, eff
				mod.After = append(mod.After, func(res combat.Result) {
					d.run(a, attacker, p, eff, Context{Target: target, Dealt: res.Dealt})
				})
			}
		}
	}
	return mod
}

func (d *Dispatcher) procs(a *arena.Arena, u *arena.Unit, p catalog.Passive) bool {
	if p.Chance <= 0 {
		return true
	}
	return a.Dice.Chance(fmt.Sprintf("passive:%s:%d", p.ID, u.IID), p.Chance)
}

func (d *Dispatcher) run(a *arena.Arena, u *arena.Unit, p catalog.Passive, eff catalog.Effect, ctx Context) {
	defer func() {
		if r := recover(); r != nil {
			a.Log.Warn("passive effect panicked",
				zap.String("passive", p.ID),
				zap.String("effect", string(eff.Kind)),
				zap.Int("iid", u.IID),
				zap.Any("panic", r),
			)
		}
	}()
	if err := d.apply(a, u, eff, ctx); err != nil {
		a.Log.Warn("passive effect failed",
			zap.String("passive", p.ID),
			zap.String("effect", string(eff.Kind)),
			zap.Int("iid", u.IID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) apply(a *arena.Arena, self *arena.Unit, eff catalog.Effect, ctx Context) error {
	target := self
	if eff.Target == "target" {
		target = ctx.Target
	}
	if target == nil {
		return fmt.Errorf("effect %s has no target", eff.Kind)
	}
	switch eff.Kind {
	case catalog.EffectStatus:
		if !target.Alive {
			return nil
		}
		target.AddStatus(status.FromSpec(eff.Status))
	case catalog.EffectFury:
		if target.Alive {
			target.Fury.Set(target.Fury.Cur + eff.Amount)
		}
	case catalog.EffectHeal:
		combat.HealUnit(target, magnitude(eff, target))
	case catalog.EffectShield:
		combat.GrantShield(target, magnitude(eff, target))
	case catalog.EffectScript:
		if d.Scripts == nil {
			return fmt.Errorf("script %q: scripting disabled", eff.Script)
		}
		targetIID := 0
		if ctx.Target != nil {
			targetIID = ctx.Target.IID
		}
		_, err := d.Scripts.CallHook(ScriptVM, eff.Script, Host{A: a},
			lua.LNumber(self.IID), lua.LNumber(targetIID), lua.LNumber(ctx.Dealt))
		return err
	case catalog.EffectBasicScale, catalog.EffectBasicFlat:
		// Only meaningful inside OnBasicHit.
	default:
		return fmt.Errorf("unknown effect kind %q", eff.Kind)
	}
	return nil
}

// magnitude is Amount plus Ratio of the target's max HP.
func magnitude(eff catalog.Effect, target *arena.Unit) int {
	return eff.Amount + int(math.Floor(eff.Ratio*float64(target.HPMax())))
}

// PrepareUnit readies u for passive dispatch by deriving its stats from the
// current status table.
func PrepareUnit(u *arena.Unit) {
	u.Recompute()
}

// ApplyOnSpawn applies an on-spawn configuration to u.
func ApplyOnSpawn(a *arena.Arena, u *arena.Unit, cfg catalog.OnSpawnConfig) {
	for _, s := range cfg.Statuses {
		u.AddStatus(status.FromSpec(s))
	}
	if cfg.Fury > 0 {
		u.Fury.Set(u.Fury.Cur + cfg.Fury)
	}
	if len(cfg.Statuses) > 0 || cfg.Fury > 0 {
		a.Log.Debug("on-spawn applied", zap.Int("iid", u.IID), zap.Int("statuses", len(cfg.Statuses)))
	}
}

func kitOf(a *arena.Arena, u *arena.Unit) *catalog.Kit {
	if def := a.Def(u); def != nil {
		return &def.Kit
	}
	return nil
}
