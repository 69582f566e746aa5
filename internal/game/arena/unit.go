package arena

import (
	"time"

	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/fury"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
)

// Source records how a unit entered the board.
type Source string

const (
	SourceDeck   Source = "deck"
	SourceLeader Source = "leader"
	SourceSummon Source = "summon"
	SourceRevive Source = "revive"
)

// Unit is one combatant instance on the board.
//
// Invariant: 0 <= HP <= Stats.HPMax; Alive == (HP > 0) except between a lethal
// hit and the undying check inside the combat resolver; 0 <= Fury.Cur <= Fury.Max.
type Unit struct {
	ID    string
	IID   int
	Name  string
	Side  board.Side
	Cell  board.Cell
	Slot  int
	Class catalog.Class
	Rank  catalog.Rank
	Color string
	Src   Source

	HP    int
	AE    int
	Stats catalog.Stats
	// Base is the pre-status stat snapshot Stats is derived from.
	Base catalog.Stats
	Fury fury.Meter

	Alive bool
	// DeadAt is set once on death and cleared only by revive.
	DeadAt time.Time

	Statuses *status.Set

	IsMinion   bool
	OwnerIID   int
	BornSerial int
	TTLTurns   int
}

// NewUnit builds a living unit at full HP from stats.
//
// Postcondition: HP == stats.HPMax; AE == stats.AEMax; Alive; Statuses is empty.
func NewUnit(id, name string, side board.Side, slot int, stats catalog.Stats) *Unit {
	return &Unit{
		ID:       id,
		Name:     name,
		Side:     side,
		Slot:     slot,
		Cell:     board.SlotToCell(side, slot),
		HP:       stats.HPMax,
		AE:       stats.AEMax,
		Stats:    stats,
		Base:     stats,
		Alive:    true,
		Statuses: status.NewSet(),
	}
}

// StatusSet returns the unit's status table.
func (u *Unit) StatusSet() *status.Set { return u.Statuses }

// Position returns the unit's grid cell.
func (u *Unit) Position() board.Cell { return u.Cell }

// HPMax returns the unit's maximum HP.
func (u *Unit) HPMax() int { return u.Stats.HPMax }

// HPRatio returns HP / HPMax, or 0 for a unit without HP.
func (u *Unit) HPRatio() float64 {
	if u.Stats.HPMax <= 0 {
		return 0
	}
	return float64(u.HP) / float64(u.Stats.HPMax)
}

// IsLeader reports whether the unit is its side's leader.
func (u *Unit) IsLeader() bool { return u.Rank == catalog.RankLeader }

// IsBoss reports whether the unit is boss rank.
func (u *Unit) IsBoss() bool { return u.Rank == catalog.RankBoss }

// Recompute rederives Stats from Base and the current statuses. HPMax is
// never changed by statuses.
func (u *Unit) Recompute() {
	hpMax := u.Stats.HPMax
	u.Stats = status.ModifyStats(u.Statuses, u.Base)
	u.Stats.HPMax = hpMax
}

// AddStatus attaches st and rederives stats.
func (u *Unit) AddStatus(st status.Status) {
	u.Statuses.Add(st)
	u.Recompute()
}

// RemoveStatus detaches id and rederives stats.
func (u *Unit) RemoveStatus(id string) {
	u.Statuses.Remove(id)
	u.Recompute()
}
