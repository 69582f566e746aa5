package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/combat"
	"github.com/cory-johannsen/gridbattle/internal/game/fury"
	"github.com/cory-johannsen/gridbattle/internal/game/passive"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
	"github.com/cory-johannsen/gridbattle/internal/game/ult"
)

// Action names and the skip reason carried on action:end events.
const (
	ActionUlt    = "ult"
	ActionBasic  = "basic"
	ReasonStatus = "status"
)

// DoActionOrSkip resolves one activation of u: turn-start passives, fury and
// regeneration, then the ultimate when it is affordable and not silenced,
// otherwise a basic attack with follow-ups. A stunned or sleeping unit only
// runs its turn-end cleanup.
func (e *Engine) DoActionOrSkip(a *arena.Arena, u *arena.Unit) {
	if u == nil || !u.Alive {
		return
	}
	e.Passives.Fire(a, u, catalog.OnTurnStart, passive.Context{})
	u.Fury.StartTurn(fury.TurnOpts{Stamp: a.TurnCount, GrantStart: true}, a.FuryBonus(u), a.Cfg.Fury)
	ApplyTurnRegen(a, u)
	status.OnTurnStart(u.Statuses)
	a.Emit(arena.Event{Type: arena.EventActionStart, Unit: u})

	if !status.CanAct(u.Statuses) {
		e.turnEnd(a, u)
		a.Emit(arena.Event{Type: arena.EventActionEnd, Unit: u, Skipped: true, Reason: ReasonStatus})
		return
	}

	if a.Def(u) != nil && u.Fury.Cur >= a.UltCost(u) && !status.Blocks(u.Statuses, status.ActionUlt) {
		e.PerformUlt(a, u)
		e.Passives.Fire(a, u, catalog.OnUltCast, passive.Context{})
		e.turnEnd(a, u)
		a.Emit(arena.Event{Type: arena.EventActionEnd, Unit: u, Action: ActionUlt})
		return
	}

	e.Resolver.DoBasicWithFollowups(a, u, followups(a, u))
	e.Passives.Fire(a, u, catalog.OnActionEnd, passive.Context{})
	e.turnEnd(a, u)
	a.Emit(arena.Event{Type: arena.EventActionEnd, Unit: u, Action: ActionBasic})
}

// PerformUlt casts u's ultimate. A failed cast is logged and zeroes u's fury so
// it cannot be retried every activation.
func (e *Engine) PerformUlt(a *arena.Arena, u *arena.Unit) (ult.Outcome, error) {
	out, err := ult.Perform(a, u)
	if err != nil {
		a.Log.Warn("ultimate failed", zap.Error(err))
		if u != nil {
			u.Fury.Set(0)
		}
	}
	return out, err
}

func followups(a *arena.Arena, u *arena.Unit) int {
	if def := a.Def(u); def != nil && def.Kit.Basic.Followups > 0 {
		return def.Kit.Basic.Followups
	}
	return a.Cfg.FollowupCap(string(u.Class))
}

// turnEnd ticks u's statuses, applies bleed and ends the fresh-summon window.
func (e *Engine) turnEnd(a *arena.Arena, u *arena.Unit) {
	te := status.OnTurnEnd(u.Statuses, u.HPMax())
	if te.Bleed > 0 && u.Alive {
		combat.DealTrueDamage(a, u, te.Bleed)
	}
	if len(te.Expired) > 0 {
		u.Recompute()
	}
	u.Fury.ClearFreshSummon()
}

// ApplyTurnRegen restores HPRegen and AERegen, clamped to their maxima, and
// emits turn:regen. Negative regen counts as 0.
//
// Postcondition: 0 <= HP <= HPMax; 0 <= AE <= AEMax.
func ApplyTurnRegen(a *arena.Arena, u *arena.Unit) (hp, ae int) {
	if u == nil || !u.Alive {
		return 0, 0
	}
	before := u.HP
	u.HP = min(u.HPMax(), u.HP+max(0, u.Stats.HPRegen))
	hp = u.HP - before

	beforeAE := u.AE
	u.AE = max(0, min(u.Stats.AEMax, u.AE+max(0, u.Stats.AERegen)))
	ae = u.AE - beforeAE

	a.Emit(arena.Event{Type: arena.EventTurnRegen, Unit: u, HP: hp, AE: ae})
	if hp > 0 {
		a.ExtendBusy(a.VFX(arena.VFXHeal, u, u))
	}
	return hp, ae
}
