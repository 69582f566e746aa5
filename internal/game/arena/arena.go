// Package arena holds the mutable state of one match: the units on the board,
// the per-side summon queues, the same-turn action chain, the scheduler state,
// both decks and the battle result. Every other battle package operates on an
// *Arena passed explicitly; nothing is global, so many arenas may coexist.
//
// An Arena is not safe for concurrent use. The host serialises all calls.
package arena

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/dice"
)

// TurnOrder is the scheduler state the rest of the core reads.
type TurnOrder interface {
	// Mode returns OrderSequential or OrderInterleaved.
	Mode() string
	// Cycle returns the current cycle number.
	Cycle() int
	// PredictSpawnCycle returns the cycle in which a spawn queued now for
	// (side, slot) becomes due.
	PredictSpawnCycle(side board.Side, slot int) int
	// DueCycle returns the cycle number a pending spawn for side is compared
	// against.
	DueCycle(side board.Side) int
}

// PendingSpawn is a deferred spawn waiting in a side's summon queue.
type PendingSpawn struct {
	UnitID     string
	Name       string
	Side       board.Side
	Cell       board.Cell
	Slot       int
	SpawnCycle int
	Color      string
	Src        Source
}

// ChainUnit describes a unit spawned through the action chain.
type ChainUnit struct {
	ID       string
	Name     string
	Color    string
	Class    catalog.Class
	Stats    catalog.Stats
	OwnerIID int
	TTL      int
	IsMinion bool
	OnSpawn  catalog.OnSpawnConfig
}

// ChainEntry is a same-turn spawn request.
type ChainEntry struct {
	Side board.Side
	Slot int
	Unit ChainUnit
}

// Deck is one side's hand and cost pool.
type Deck struct {
	Hand []string
	Used map[string]bool
	Cost int
}

// Options configures New.
type Options struct {
	ID     uuid.UUID
	Config Config
	Meta   catalog.Meta
	Logger *zap.Logger
	Clock  Clock
	VFX    VFXSink
	Rand   dice.Source
}

// Arena is one match.
type Arena struct {
	ID   uuid.UUID
	Cfg  Config
	Meta catalog.Meta
	Log  *zap.Logger
	Bus  *Bus
	Dice *dice.Roller

	Units     []*Unit
	Graveyard []*Unit
	Queued    map[board.Side]map[int]*PendingSpawn
	Chain     []ChainEntry
	Decks     map[board.Side]*Deck

	Turn      TurnOrder
	BusyUntil time.Time
	// TurnCount is the number of activations resolved so far.
	TurnCount int
	StartedAt time.Time

	Battle Battle

	clock      Clock
	vfx        VFXSink
	nextIID    int
	nextSerial int
	leaders    map[board.Side]*Unit
	onStop     []func()
}

// New creates an empty arena.
//
// Postcondition: no units, empty queues, Battle.Over == false.
func New(opts Options) *Arena {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	src := opts.Rand
	if src == nil {
		src = dice.NewSeededSource(uint64(clock.Now().UnixNano()))
	}
	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	vfx := opts.VFX
	if vfx == nil {
		vfx = EstimateSink{Durations: opts.Config.Timing.Anim}
	}
	a := &Arena{
		ID:   id,
		Cfg:  opts.Config,
		Meta: opts.Meta,
		Log:  logger.With(zap.String("arena", id.String())),
		Queued: map[board.Side]map[int]*PendingSpawn{
			board.Ally:  {},
			board.Enemy: {},
		},
		Decks: map[board.Side]*Deck{
			board.Ally:  {Used: map[string]bool{}},
			board.Enemy: {Used: map[string]bool{}},
		},
		clock:   clock,
		vfx:     vfx,
		leaders: map[board.Side]*Unit{},
	}
	a.Bus = NewBus(a.Log)
	a.Dice = dice.NewRoller(src, a.Log)
	a.StartedAt = clock.Now()
	return a
}

// Now returns the arena clock's time.
func (a *Arena) Now() time.Time { return a.clock.Now() }

// Cycle returns the scheduler's cycle, or 0 before a scheduler is attached.
func (a *Arena) Cycle() int {
	if a.Turn == nil {
		return 0
	}
	return a.Turn.Cycle()
}

// AllocIID returns the next instance id.
//
// Postcondition: strictly greater than every previously returned id.
func (a *Arena) AllocIID() int {
	a.nextIID++
	return a.nextIID
}

// NextSerial returns the next creation serial for minions.
func (a *Arena) NextSerial() int {
	a.nextSerial++
	return a.nextSerial
}

// OnStop registers fn to run when the battle is finalized.
func (a *Arena) OnStop(fn func()) { a.onStop = append(a.onStop, fn) }

// Add places u on the board, assigning an iid when it has none.
func (a *Arena) Add(u *Unit) {
	if u.IID == 0 {
		u.IID = a.AllocIID()
	}
	a.Units = append(a.Units, u)
	if u.IsLeader() {
		a.leaders[u.Side] = u
	}
}

// Remove takes u off the board without moving it to the graveyard.
func (a *Arena) Remove(u *Unit) {
	for i, v := range a.Units {
		if v == u {
			a.Units = append(a.Units[:i], a.Units[i+1:]...)
			return
		}
	}
}

// Leader returns side's leader, or nil when none was placed.
func (a *Arena) Leader(side board.Side) *Unit { return a.leaders[side] }

// ByIID returns the on-board unit with iid.
func (a *Arena) ByIID(iid int) *Unit {
	for _, u := range a.Units {
		if u.IID == iid {
			return u
		}
	}
	return nil
}

// Living returns side's living units ordered by slot.
func (a *Arena) Living(side board.Side) []*Unit {
	var out []*Unit
	for _, u := range a.Units {
		if u.Alive && u.Side == side {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Foes returns the living units opposing u.
func (a *Arena) Foes(u *Unit) []*Unit { return a.Living(u.Side.Opponent()) }

// Allies returns u's living teammates, excluding u.
func (a *Arena) Allies(u *Unit) []*Unit {
	var out []*Unit
	for _, v := range a.Living(u.Side) {
		if v != u {
			out = append(out, v)
		}
	}
	return out
}

// UnitAt returns the living unit on (side, slot), or nil.
func (a *Arena) UnitAt(side board.Side, slot int) *Unit {
	for _, u := range a.Units {
		if u.Alive && u.Side == side && u.Slot == slot {
			return u
		}
	}
	return nil
}

// Occupied reports whether a living unit stands on cell.
func (a *Arena) Occupied(cell board.Cell) bool {
	for _, u := range a.Units {
		if u.Alive && u.Cell == cell {
			return true
		}
	}
	return false
}

// Reserved reports whether (side, slot) is taken by a living unit, a queued
// spawn on either side targeting the same cell, or a pending chain entry.
func (a *Arena) Reserved(side board.Side, slot int) bool {
	if !board.ValidSlot(slot) {
		return true
	}
	cell := board.SlotToCell(side, slot)
	if a.Occupied(cell) {
		return true
	}
	for _, q := range a.Queued {
		for _, p := range q {
			if p.Cell == cell {
				return true
			}
		}
	}
	for _, e := range a.Chain {
		if board.SlotToCell(e.Side, e.Slot) == cell {
			return true
		}
	}
	return false
}

// Minions returns the living minions owned by iid ordered by BornSerial.
func (a *Arena) Minions(ownerIID int) []*Unit {
	var out []*Unit
	for _, u := range a.Units {
		if u.Alive && u.IsMinion && u.OwnerIID == ownerIID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BornSerial < out[j].BornSerial })
	return out
}

// Fallen returns side's dead non-minion units, most recently dead first. Both
// lingering corpses and the graveyard are searched.
func (a *Arena) Fallen(side board.Side) []*Unit {
	var out []*Unit
	for _, u := range a.Units {
		if !u.Alive && !u.IsMinion && u.Side == side {
			out = append(out, u)
		}
	}
	for _, u := range a.Graveyard {
		if u.Side == side {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeadAt.After(out[j].DeadAt) })
	return out
}

// Exhume moves u from the graveyard back onto the board. It is a no-op when u
// is already on the board.
func (a *Arena) Exhume(u *Unit) {
	for i, v := range a.Graveyard {
		if v == u {
			a.Graveyard = append(a.Graveyard[:i], a.Graveyard[i+1:]...)
			a.Units = append(a.Units, u)
			return
		}
	}
}

// PruneCorpses removes units dead for at least linger. Non-minion corpses
// move to the graveyard. It returns the number removed.
func (a *Arena) PruneCorpses(linger time.Duration) int {
	now := a.Now()
	kept := a.Units[:0]
	removed := 0
	for _, u := range a.Units {
		if !u.Alive && !u.DeadAt.IsZero() && now.Sub(u.DeadAt) >= linger {
			removed++
			if !u.IsMinion {
				a.Graveyard = append(a.Graveyard, u)
			}
			continue
		}
		kept = append(kept, u)
	}
	for i := len(kept); i < len(a.Units); i++ {
		a.Units[i] = nil
	}
	a.Units = kept
	return removed
}

// Emit publishes e on the arena bus.
func (a *Arena) Emit(e Event) {
	if e.Cycle == 0 {
		e.Cycle = a.Cycle()
	}
	a.Bus.Emit(e)
}

// TickMinions decrements the TTL of side's living minions and removes those
// that reach 0. Expired minions leave no corpse.
//
// Postcondition: no living minion of side has TTLTurns <= 0.
func (a *Arena) TickMinions(side board.Side) []*Unit {
	var expired []*Unit
	for _, u := range a.Units {
		if !u.Alive || !u.IsMinion || u.Side != side {
			continue
		}
		u.TTLTurns--
		if u.TTLTurns <= 0 {
			expired = append(expired, u)
		}
	}
	for _, u := range expired {
		a.Remove(u)
		a.Log.Debug("minion expired", zap.String("unit", u.Name), zap.Int("iid", u.IID))
	}
	return expired
}
