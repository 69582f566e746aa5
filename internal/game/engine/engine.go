// Package engine wires the battle core into a playable match: it owns the
// arena, builds the turn scheduler, places the leaders, resolves activations
// and drives everything from a periodic host tick.
package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/ai"
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/combat"
	"github.com/cory-johannsen/gridbattle/internal/game/passive"
	"github.com/cory-johannsen/gridbattle/internal/game/summon"
	"github.com/cory-johannsen/gridbattle/internal/game/turn"
	"github.com/cory-johannsen/gridbattle/internal/scripting"
)

var (
	// ErrNotLeader is returned when a leader id names a non-leader unit.
	ErrNotLeader = errors.New("unit is not a leader")
	// ErrBattleOver is returned by PlayCard after the battle has ended.
	ErrBattleOver = errors.New("battle is over")
	// ErrNotPlayable is returned when a card names a leader or minion.
	ErrNotPlayable = errors.New("unit cannot be played from a deck")
)

var sides = []board.Side{board.Ally, board.Enemy}

// Options configures New.
type Options struct {
	Arena arena.Options
	// Leaders maps a side to the catalog id of its leader. A side without an
	// entry fights without one.
	Leaders map[board.Side]string
	// AISides lists the sides the card AI plays for.
	AISides []board.Side
	AI      ai.Config
	// StartCost is each side's deck cost at the start of the match.
	StartCost int
	// Scripts backs script passives; nil disables them.
	Scripts *scripting.Manager
}

// Engine runs one match.
type Engine struct {
	A        *arena.Arena
	Resolver *combat.Resolver
	Passives *passive.Dispatcher
	AI       map[board.Side]*ai.Controller

	aiCfg    ai.Config
	hooks    turn.Hooks
	nextCost map[board.Side]time.Time
}

// New builds the arena and its scheduler and places the leaders.
//
// Precondition: opts.Arena.Meta is non-nil when Leaders or AISides are set.
// Postcondition: each configured leader stands on LeaderSlot with zero fury.
func New(opts Options) (*Engine, error) {
	a := arena.New(opts.Arena)
	sched, err := turn.New(a.Cfg.TurnOrder)
	if err != nil {
		return nil, fmt.Errorf("building turn scheduler: %w", err)
	}
	a.Turn = sched

	e := &Engine{
		A:        a,
		Resolver: &combat.Resolver{},
		Passives: &passive.Dispatcher{Scripts: opts.Scripts},
		AI:       make(map[board.Side]*ai.Controller),
		aiCfg:    opts.AI,
		nextCost: make(map[board.Side]time.Time),
	}
	e.Resolver.OnBasicHit = e.Passives.OnBasicHit
	e.hooks = e.turnHooks()

	for _, side := range sides {
		a.Decks[side].Cost = e.capCost(opts.StartCost)
		id, ok := opts.Leaders[side]
		if !ok {
			continue
		}
		if _, err := e.placeLeader(side, id); err != nil {
			return nil, err
		}
	}
	for _, side := range opts.AISides {
		e.AI[side] = ai.New(side, opts.AI)
	}
	return e, nil
}

func (e *Engine) placeLeader(side board.Side, id string) (*arena.Unit, error) {
	if e.A.Meta == nil {
		return nil, fmt.Errorf("placing %s leader %q: %w", side, id, catalog.ErrUnknownUnit)
	}
	def, ok := e.A.Meta.Get(id)
	if !ok {
		return nil, fmt.Errorf("placing %s leader %q: %w", side, id, catalog.ErrUnknownUnit)
	}
	if !def.IsLeader() {
		return nil, fmt.Errorf("placing %s leader %q: %w", side, id, ErrNotLeader)
	}
	u := arena.NewUnit(def.ID, def.Name, side, board.LeaderSlot, summon.InstanceStats(def))
	u.Class = def.Class
	u.Rank = def.Rank
	u.Color = def.Color
	u.Src = arena.SourceLeader
	u.Fury.Initialize(def.ID, 0, e.A.Cfg.Fury)
	e.A.Add(u)
	passive.PrepareUnit(u)
	passive.ApplyOnSpawn(e.A, u, def.Kit.OnSpawn)
	e.onSpawn(e.A, u)
	e.A.Log.Debug("leader placed", zap.String("side", string(side)), zap.String("unit", def.ID), zap.Int("iid", u.IID))
	return u, nil
}

func (e *Engine) summonHooks() summon.Hooks {
	return summon.Hooks{
		DoActionOrSkip: e.DoActionOrSkip,
		PerformUlt:     func(a *arena.Arena, u *arena.Unit) { e.PerformUlt(a, u) },
		OnSpawn:        e.onSpawn,
	}
}

func (e *Engine) turnHooks() turn.Hooks {
	sh := e.summonHooks()
	return turn.Hooks{
		DoActionOrSkip: e.DoActionOrSkip,
		ProcessActionChain: func(a *arena.Arena, side board.Side, baseSlot int) int {
			return summon.ProcessActionChain(a, side, baseSlot, sh)
		},
		SpawnQueuedIfDue: func(a *arena.Arena, side board.Side, slot int) *arena.Unit {
			return summon.SpawnQueuedIfDue(a, side, slot, sh)
		},
	}
}

func (e *Engine) onSpawn(a *arena.Arena, u *arena.Unit) {
	e.Passives.Fire(a, u, catalog.OnSpawn, passive.Context{})
}

// Step advances the scheduler by one activation, ignoring the busy window.
func (e *Engine) Step() (turn.Activation, bool) {
	return turn.StepTurn(e.A, e.hooks)
}

// Tick is the periodic host callback. It lets the AI sides think, regenerates
// deck cost, prunes lingering corpses, fires the timeout check and, once the
// busy window has passed, steps the scheduler. It reports whether a step ran.
//
// Postcondition: after a step BusyUntil >= now + TurnInterval.
func (e *Engine) Tick(now time.Time) bool {
	a := e.A
	if a.Battle.Over {
		return false
	}
	for _, side := range sides {
		if c := e.AI[side]; c != nil {
			c.MaybeAct(a, now)
		}
	}
	e.regenCost(now)
	a.PruneCorpses(a.Cfg.Combat.CorpseLinger)
	if a.Cfg.Duration > 0 && now.Sub(a.StartedAt) >= a.Cfg.Duration {
		a.CheckBattleEnd(arena.TriggerTimeout)
		return false
	}
	if now.Before(a.BusyUntil) {
		return false
	}
	a.BusyUntil = now.Add(a.Cfg.Timing.TurnInterval)
	_, ok := e.Step()
	return ok
}

func (e *Engine) regenCost(now time.Time) {
	period := e.aiCfg.CostTick
	if period <= 0 || e.aiCfg.CostPerTick <= 0 {
		return
	}
	for _, side := range sides {
		next, ok := e.nextCost[side]
		if !ok {
			e.nextCost[side] = now.Add(period)
			continue
		}
		deck := e.A.Decks[side]
		for !now.Before(next) {
			deck.Cost = e.capCost(deck.Cost + e.aiCfg.CostPerTick)
			next = next.Add(period)
		}
		e.nextCost[side] = next
	}
}

func (e *Engine) capCost(v int) int {
	v = max(0, v)
	if c := e.A.Cfg.CostCap; c > 0 {
		v = min(v, c)
	}
	return v
}

// PlayCard queues unitID from side's deck onto slot, paying its cost.
func (e *Engine) PlayCard(side board.Side, unitID string, slot int) (*arena.PendingSpawn, error) {
	if e.A.Battle.Over {
		return nil, ErrBattleOver
	}
	if e.A.Meta != nil {
		if def, ok := e.A.Meta.Get(unitID); ok && !def.Deckable() {
			return nil, fmt.Errorf("playing %q: %w", unitID, ErrNotPlayable)
		}
	}
	p, err := summon.QueueDeck(e.A, side, slot, unitID)
	if err != nil {
		return nil, fmt.Errorf("playing %q on %s slot %d: %w", unitID, side, slot, err)
	}
	return p, nil
}
