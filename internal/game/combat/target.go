package combat

import (
	"sort"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
)

// PickTarget chooses a living foe for attacker: the foe slots on attacker's row
// front to back, then the nearest foe by Manhattan distance (lowest slot on ties).
//
// Postcondition: returns nil only when attacker has no living foe.
func PickTarget(a *arena.Arena, attacker *arena.Unit) *arena.Unit {
	foeSide := attacker.Side.Opponent()
	primary := board.PrimarySlotForRow(attacker.Cell.CY)
	for _, slot := range []int{primary, primary + board.Rows, primary + 2*board.Rows} {
		if u := a.UnitAt(foeSide, slot); u != nil {
			return u
		}
	}
	return Nearest(attacker.Cell, a.Living(foeSide))
}

// Nearest returns the unit in candidates closest to from, keeping the earliest
// candidate on ties.
func Nearest(from board.Cell, candidates []*arena.Unit) *arena.Unit {
	var best *arena.Unit
	bestD := -1
	for _, u := range candidates {
		d := board.Manhattan(from, u.Cell)
		if bestD < 0 || d < bestD {
			best, bestD = u, d
		}
	}
	return best
}

// ByDistance returns candidates ordered by Manhattan distance from from,
// stable on ties.
func ByDistance(from board.Cell, candidates []*arena.Unit) []*arena.Unit {
	out := append([]*arena.Unit(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		return board.Manhattan(from, out[i].Cell) < board.Manhattan(from, out[j].Cell)
	})
	return out
}
