package turn

import (
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
)

// maxIterations bounds the spawn-then-rescan loop of one interleaved step.
const maxIterations = 12

// Interleaved alternates sides, each side walking its own slots in order.
//
// Invariant: Cycle() == max(wrapCount[Ally], wrapCount[Enemy]).
type Interleaved struct {
	slotCount int
	nextSide  board.Side
	lastPos   map[board.Side]int
	wrapCount map[board.Side]int
	turnCount int
}

// NewInterleaved creates a scheduler over slotCount slots per side, starting
// with the ally side.
func NewInterleaved(slotCount int) *Interleaved {
	return &Interleaved{
		slotCount: max(1, slotCount),
		nextSide:  board.Ally,
		lastPos:   map[board.Side]int{board.Ally: 0, board.Enemy: 0},
		wrapCount: map[board.Side]int{board.Ally: 0, board.Enemy: 0},
	}
}

// Mode returns arena.OrderInterleaved.
func (s *Interleaved) Mode() string { return arena.OrderInterleaved }

// Cycle returns the larger of the two sides' wrap counts.
func (s *Interleaved) Cycle() int {
	return max(s.wrapCount[board.Ally], s.wrapCount[board.Enemy])
}

// NextSide returns the side that acts next.
func (s *Interleaved) NextSide() board.Side { return s.nextSide }

// LastPos returns the slot side last acted from, 0 before its first action.
func (s *Interleaved) LastPos(side board.Side) int { return s.lastPos[side] }

// WrapCount returns how many times side has wrapped past its last slot.
func (s *Interleaved) WrapCount(side board.Side) int { return s.wrapCount[side] }

// TurnCount returns the number of activations this scheduler resolved.
func (s *Interleaved) TurnCount() int { return s.turnCount }

// DueCycle returns side's own wrap count.
func (s *Interleaved) DueCycle(side board.Side) int { return s.wrapCount[side] }

// PredictSpawnCycle returns side's wrap count when slot lies ahead of the
// side's last position, else the following wrap.
func (s *Interleaved) PredictSpawnCycle(side board.Side, slot int) int {
	if slot > s.lastPos[side] {
		return s.wrapCount[side]
	}
	return s.wrapCount[side] + 1
}

// Step activates the next unit of the side to move. Due spawns found on the
// way are resolved without consuming the side's turn. A side with nothing to
// do passes to the other side.
func (s *Interleaved) Step(a *arena.Arena, h Hooks) (Activation, bool) {
	var spawned []*arena.Unit
	idle := 0
	for iter := 0; iter < maxIterations && !a.Battle.Over; iter++ {
		side := s.nextSide
		pos, u, sp := s.scan(a, side, h)
		if sp != nil {
			spawned = append(spawned, sp)
			idle = 0
			continue
		}
		if u == nil {
			idle++
			if idle >= 2 {
				break
			}
			s.nextSide = side.Opponent()
			continue
		}
		if pos <= s.lastPos[side] {
			s.wrapCount[side]++
		}
		s.lastPos[side] = pos
		s.nextSide = side.Opponent()
		s.turnCount++
		activate(a, side, pos, u, h)
		return Activation{Side: side, Slot: pos, Unit: u, Spawned: spawned}, true
	}
	return Activation{Spawned: spawned}, len(spawned) > 0
}

// scan walks side's slots from lastPos+1, wrapping once. It returns the first
// slot with a living unit, or resolves and returns the first due spawn.
func (s *Interleaved) scan(a *arena.Arena, side board.Side, h Hooks) (int, *arena.Unit, *arena.Unit) {
	last := s.lastPos[side]
	for k := 1; k <= s.slotCount; k++ {
		pos := (last+k-1)%s.slotCount + 1
		wrapped := pos <= last
		if u := a.UnitAt(side, pos); u != nil {
			return pos, u, nil
		}
		// Spawn due checks see the wrap count the side would have here.
		if wrapped {
			s.wrapCount[side]++
		}
		sp := spawnAt(a, side, pos, h)
		if wrapped {
			s.wrapCount[side]--
		}
		if sp != nil {
			return pos, nil, sp
		}
	}
	return 0, nil, nil
}
