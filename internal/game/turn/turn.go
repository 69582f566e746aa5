// Package turn implements the two turn-order strategies. Both advance one
// activation per Step and implement arena.TurnOrder so the summon queue can
// predict when a spawn becomes due.
package turn

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
)

// Hooks are the engine callbacks a step drives.
type Hooks struct {
	DoActionOrSkip     func(a *arena.Arena, u *arena.Unit)
	ProcessActionChain func(a *arena.Arena, side board.Side, baseSlot int) int
	SpawnQueuedIfDue   func(a *arena.Arena, side board.Side, slot int) *arena.Unit
}

// Activation reports what a step did. Unit is the unit that acted; Spawned is
// a unit that entered the board during the step.
type Activation struct {
	Side    board.Side
	Slot    int
	Unit    *arena.Unit
	Spawned []*arena.Unit
}

// Scheduler is a turn-order strategy.
type Scheduler interface {
	arena.TurnOrder
	// Step resolves at most one activation. It reports false when the battle
	// is over or nothing could act.
	Step(a *arena.Arena, h Hooks) (Activation, bool)
}

// New builds the scheduler selected by cfg.Mode.
func New(cfg arena.TurnOrderConfig) (Scheduler, error) {
	n := cfg.SlotCount
	if n <= 0 {
		n = board.SlotCount
	}
	switch cfg.Mode {
	case arena.OrderSequential, "":
		return NewSequential(BuildOrder(cfg.PairScan, n)), nil
	case arena.OrderInterleaved:
		return NewInterleaved(n), nil
	default:
		return nil, fmt.Errorf("unknown turn order mode %q", cfg.Mode)
	}
}

// StepTurn advances a's scheduler by one step.
//
// Precondition: a.Turn was built by New.
func StepTurn(a *arena.Arena, h Hooks) (Activation, bool) {
	s, ok := a.Turn.(Scheduler)
	if !ok || a.Battle.Over {
		return Activation{}, false
	}
	return s.Step(a, h)
}

// activate runs one unit's full activation.
func activate(a *arena.Arena, side board.Side, slot int, u *arena.Unit, h Hooks) {
	a.TurnCount++
	a.Log.Debug("turn start",
		zap.Int("turn", a.TurnCount),
		zap.Int("cycle", a.Cycle()),
		zap.String("side", string(side)),
		zap.Int("slot", slot),
		zap.String("unit", u.Name),
	)
	a.Emit(arena.Event{Type: arena.EventTurnStart, Unit: u})
	if h.DoActionOrSkip != nil {
		h.DoActionOrSkip(a, u)
	}
	if h.ProcessActionChain != nil && !a.Battle.Over {
		h.ProcessActionChain(a, side, slot)
	}
	a.Emit(arena.Event{Type: arena.EventTurnEnd, Unit: u})
	a.TickMinions(side)
	a.CheckBattleEnd(arena.TriggerStep)
}

// spawnAt resolves a due spawn on (side, slot) and any chain it started.
func spawnAt(a *arena.Arena, side board.Side, slot int, h Hooks) *arena.Unit {
	if h.SpawnQueuedIfDue == nil {
		return nil
	}
	u := h.SpawnQueuedIfDue(a, side, slot)
	if u == nil {
		return nil
	}
	if h.ProcessActionChain != nil && !a.Battle.Over {
		h.ProcessActionChain(a, side, slot)
	}
	a.CheckBattleEnd(arena.TriggerStep)
	return u
}
