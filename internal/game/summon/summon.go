// Package summon implements the per-side deferred summon queue and the
// same-turn action chain.
//
// Queued spawns wait for a future cycle and are resolved by the turn
// scheduler. Chain entries resolve inside the activation that created them,
// so a Summoner's minions act right after being called.
package summon

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/passive"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
)

// CreepColor is the colour of chain spawns that do not name one.
const CreepColor = "#ffd27d"

var (
	// ErrInvalidSlot is returned for slots outside 1..9 or unknown sides.
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrReserved is returned when the target cell is already taken.
	ErrReserved = errors.New("slot reserved")
)

// Request asks for a same-turn spawn. By is the requesting unit and may be
// nil for engine-originated requests.
type Request struct {
	By   *arena.Unit
	Side board.Side
	Slot int
	Unit arena.ChainUnit
}

// EnqueueImmediate pushes req onto the action chain.
//
// Postcondition: returns false, leaving the chain unchanged, when By is not a
// Summoner with a summon kit or the slot is reserved.
func EnqueueImmediate(a *arena.Arena, req Request) bool {
	if req.By != nil {
		if a.Meta == nil || !a.Meta.IsSummoner(req.By.ID) {
			return false
		}
	}
	if !req.Side.Valid() || a.Reserved(req.Side, req.Slot) {
		return false
	}
	a.Chain = append(a.Chain, arena.ChainEntry{Side: req.Side, Slot: req.Slot, Unit: req.Unit})
	return true
}

// Hooks are the engine callbacks the summon paths need.
type Hooks struct {
	// DoActionOrSkip resolves one activation of u.
	DoActionOrSkip func(a *arena.Arena, u *arena.Unit)
	// PerformUlt casts u's ultimate.
	PerformUlt func(a *arena.Arena, u *arena.Unit)
	// OnSpawn fires u's onSpawn passives.
	OnSpawn func(a *arena.Arena, u *arena.Unit)
}

// ProcessActionChain spawns side's chain entries in ascending slot order and
// gives each new unit an immediate activation. Entries for side are removed
// from the chain whether or not they spawned.
//
// Postcondition: returns the highest slot filled, or baseSlot when it is higher.
func ProcessActionChain(a *arena.Arena, side board.Side, baseSlot int, hooks Hooks) int {
	var mine []arena.ChainEntry
	rest := a.Chain[:0:0]
	for _, e := range a.Chain {
		if e.Side == side {
			mine = append(mine, e)
		} else {
			rest = append(rest, e)
		}
	}
	a.Chain = rest
	if len(mine) == 0 {
		return baseSlot
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].Slot < mine[j].Slot })

	maxSlot := baseSlot
	for _, e := range mine {
		if a.Battle.Over {
			break
		}
		if a.Reserved(e.Side, e.Slot) {
			a.Log.Debug("chain entry skipped: reserved", zap.String("side", string(side)), zap.Int("slot", e.Slot))
			continue
		}
		u := spawnChainUnit(a, e, hooks)
		maxSlot = max(maxSlot, e.Slot)
		if hooks.DoActionOrSkip != nil && u.Alive {
			hooks.DoActionOrSkip(a, u)
		}
	}
	return maxSlot
}

func spawnChainUnit(a *arena.Arena, e arena.ChainEntry, hooks Hooks) *arena.Unit {
	cu := e.Unit
	id := cu.ID
	if id == "" {
		id = "creep"
	}
	name := cu.Name
	if name == "" {
		name = "Creep"
	}
	color := cu.Color
	if color == "" {
		color = CreepColor
	}
	stats := cu.Stats
	stats.HPMax = max(1, stats.HPMax)

	u := arena.NewUnit(id, name, e.Side, e.Slot, stats)
	u.Class = cu.Class
	u.Color = color
	u.Src = arena.SourceSummon
	u.IsMinion = cu.IsMinion
	u.OwnerIID = cu.OwnerIID
	u.TTLTurns = cu.TTL
	if u.IsMinion {
		u.Rank = catalog.RankMinion
		u.BornSerial = a.NextSerial()
	}
	u.Fury.Initialize(id, 0, a.Cfg.Fury)
	a.Add(u)
	enter(a, u, cu.OnSpawn, hooks)
	return u
}

// enter runs the common entry sequence for a freshly placed unit.
func enter(a *arena.Arena, u *arena.Unit, onSpawn catalog.OnSpawnConfig, hooks Hooks) {
	passive.PrepareUnit(u)
	passive.ApplyOnSpawn(a, u, onSpawn)
	if hooks.OnSpawn != nil {
		hooks.OnSpawn(a, u)
	}
	a.ExtendBusy(a.VFX(arena.VFXSpawn, nil, u))
	a.Emit(arena.Event{Type: arena.EventSpawn, Unit: u})
	a.Log.Debug("unit spawned",
		zap.String("unit", u.Name),
		zap.Int("iid", u.IID),
		zap.String("side", string(u.Side)),
		zap.Int("slot", u.Slot),
		zap.String("source", string(u.Src)),
	)
}

// PredictSpawnCycle returns the cycle a spawn queued now for (side, slot)
// becomes due in.
func PredictSpawnCycle(a *arena.Arena, side board.Side, slot int) int {
	if a.Turn == nil {
		return 0
	}
	return a.Turn.PredictSpawnCycle(side, slot)
}

// Queue adds a pending spawn of unitID at (side, slot).
//
// Precondition: a.Meta must be non-nil.
// Postcondition: on success a.Queued[side][slot] holds the returned entry.
func Queue(a *arena.Arena, side board.Side, slot int, unitID string, src arena.Source) (*arena.PendingSpawn, error) {
	if !side.Valid() || !board.ValidSlot(slot) {
		return nil, fmt.Errorf("%w: %s slot %d", ErrInvalidSlot, side, slot)
	}
	def, ok := a.Meta.Get(unitID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownUnit, unitID)
	}
	if a.Reserved(side, slot) {
		return nil, fmt.Errorf("%w: %s slot %d", ErrReserved, side, slot)
	}
	p := &arena.PendingSpawn{
		UnitID:     def.ID,
		Name:       def.Name,
		Side:       side,
		Cell:       board.SlotToCell(side, slot),
		Slot:       slot,
		SpawnCycle: PredictSpawnCycle(a, side, slot),
		Color:      def.Color,
		Src:        src,
	}
	a.Queued[side][slot] = p
	a.Log.Debug("spawn queued",
		zap.String("unit", def.ID),
		zap.String("side", string(side)),
		zap.Int("slot", slot),
		zap.Int("spawn_cycle", p.SpawnCycle),
	)
	return p, nil
}

// Due returns the pending spawn for (side, slot) when its cycle has come.
func Due(a *arena.Arena, side board.Side, slot int) *arena.PendingSpawn {
	p := a.Queued[side][slot]
	if p == nil {
		return nil
	}
	cycle := a.Cycle()
	if a.Turn != nil {
		cycle = a.Turn.DueCycle(side)
	}
	if p.SpawnCycle > cycle {
		return nil
	}
	return p
}

// InstanceStats returns the stat block a fresh instance of def starts with.
//
// Postcondition: HPMax >= 1.
func InstanceStats(def *catalog.Unit) catalog.Stats {
	s := def.Stats
	s.HPMax = max(1, s.HPMax)
	s.AEMax = max(0, s.AEMax)
	return s
}

// InitialFury returns the starting fury for a unit entering from src.
// Leaders always start empty.
func InitialFury(a *arena.Arena, def *catalog.Unit, src arena.Source) int {
	if def != nil && def.IsLeader() {
		return 0
	}
	switch src {
	case arena.SourceDeck:
		return a.Cfg.Fury.SpawnInitial
	case arena.SourceRevive:
		return a.Cfg.Fury.ReviveInitial
	default:
		return 0
	}
}

// SpawnQueuedIfDue resolves the due pending spawn on (side, slot). A deck
// unit that is not a leader casts its ultimate on arrival unless silenced.
//
// Postcondition: returns nil when nothing was due or the cell is occupied;
// otherwise the entry is removed from the queue and the new unit returned.
func SpawnQueuedIfDue(a *arena.Arena, side board.Side, slot int, hooks Hooks) *arena.Unit {
	p := Due(a, side, slot)
	if p == nil {
		return nil
	}
	if a.Occupied(p.Cell) {
		return nil
	}
	delete(a.Queued[side], slot)

	var def *catalog.Unit
	if a.Meta != nil {
		def, _ = a.Meta.Get(p.UnitID)
	}
	if def == nil {
		a.Log.Warn("queued spawn dropped: unknown unit", zap.String("unit", p.UnitID))
		return nil
	}
	name := p.Name
	if name == "" {
		name = def.Name
	}
	u := arena.NewUnit(def.ID, name, side, slot, InstanceStats(def))
	u.Class = def.Class
	u.Rank = def.Rank
	u.Color = p.Color
	u.Src = p.Src
	u.Fury.Initialize(def.ID, InitialFury(a, def, p.Src), a.Cfg.Fury)
	a.Add(u)
	enter(a, u, def.Kit.OnSpawn, hooks)

	if p.Src == arena.SourceDeck && !u.IsLeader() && u.Alive {
		if !status.Blocks(u.Statuses, status.ActionUlt) && hooks.PerformUlt != nil {
			hooks.PerformUlt(a, u)
		}
		u.Fury.ClearFreshSummon()
	}
	return u
}

// ErrInsufficientCost is returned when a deck cannot pay for a card.
var ErrInsufficientCost = errors.New("insufficient cost")

// QueueDeck plays unitID from side's deck onto slot: it checks and deducts the
// card cost, marks the id used, drops it from the hand and queues the spawn.
//
// Postcondition: on error the deck and queue are unchanged.
func QueueDeck(a *arena.Arena, side board.Side, slot int, unitID string) (*arena.PendingSpawn, error) {
	deck := a.Decks[side]
	if deck == nil {
		return nil, fmt.Errorf("%w: no deck for side %q", ErrInvalidSlot, side)
	}
	if a.Meta == nil {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownUnit, unitID)
	}
	def, ok := a.Meta.Get(unitID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownUnit, unitID)
	}
	if def.Cost > deck.Cost {
		return nil, fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientCost, unitID, def.Cost, deck.Cost)
	}
	p, err := Queue(a, side, slot, unitID, arena.SourceDeck)
	if err != nil {
		return nil, err
	}
	deck.Cost -= def.Cost
	deck.Used[unitID] = true
	for i, id := range deck.Hand {
		if id == unitID {
			deck.Hand = append(deck.Hand[:i], deck.Hand[i+1:]...)
			break
		}
	}
	return p, nil
}
