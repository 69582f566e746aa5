package turn

import (
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
)

// Slot is one (side, slot) position in the activation order.
type Slot struct {
	Side board.Side
	Slot int
}

// BuildOrder returns the fixed round-robin order over n slots per side. With
// pairScan the sides alternate slot by slot (ally 1, enemy 1, ally 2, ...);
// otherwise every ally slot precedes every enemy slot.
//
// Postcondition: len == 2*n and every (side, slot) appears exactly once.
func BuildOrder(pairScan bool, n int) []Slot {
	out := make([]Slot, 0, 2*n)
	if pairScan {
		for s := 1; s <= n; s++ {
			out = append(out, Slot{board.Ally, s}, Slot{board.Enemy, s})
		}
		return out
	}
	for _, side := range []board.Side{board.Ally, board.Enemy} {
		for s := 1; s <= n; s++ {
			out = append(out, Slot{side, s})
		}
	}
	return out
}

// Sequential visits a fixed order cyclically.
//
// Invariant: 0 <= cursor < len(order); cycle increments exactly when the
// cursor wraps to 0.
type Sequential struct {
	order  []Slot
	index  map[Slot]int
	cursor int
	cycle  int
}

// NewSequential creates a scheduler over order.
//
// Precondition: order is non-empty with no duplicates.
func NewSequential(order []Slot) *Sequential {
	idx := make(map[Slot]int, len(order))
	for i, s := range order {
		idx[s] = i
	}
	return &Sequential{order: order, index: idx}
}

// Mode returns arena.OrderSequential.
func (s *Sequential) Mode() string { return arena.OrderSequential }

// Cycle returns the number of completed passes.
func (s *Sequential) Cycle() int { return s.cycle }

// Cursor returns the order index visited next.
func (s *Sequential) Cursor() int { return s.cursor }

// Order returns a copy of the activation order.
func (s *Sequential) Order() []Slot { return append([]Slot(nil), s.order...) }

// DueCycle returns the current cycle for either side.
func (s *Sequential) DueCycle(board.Side) int { return s.cycle }

// PredictSpawnCycle returns the current cycle when (side, slot) has not been
// visited yet this pass, else the next one.
func (s *Sequential) PredictSpawnCycle(side board.Side, slot int) int {
	idx, ok := s.index[Slot{side, slot}]
	if !ok || idx >= s.cursor {
		return s.cycle
	}
	return s.cycle + 1
}

// Step scans at most one full pass from the cursor for a living unit or a due
// spawn. A spawn consumes the activation; the new unit acts on its next visit.
// The cursor moves past the visited slot only after it resolves, so events
// emitted during the activation carry the pass it belongs to.
func (s *Sequential) Step(a *arena.Arena, h Hooks) (Activation, bool) {
	if a.Battle.Over || len(s.order) == 0 {
		return Activation{}, false
	}
	startCursor, startCycle := s.cursor, s.cycle
	for k := 0; k < len(s.order); k++ {
		e := s.order[s.cursor]
		if u := a.UnitAt(e.Side, e.Slot); u != nil {
			activate(a, e.Side, e.Slot, u, h)
			s.advance()
			return Activation{Side: e.Side, Slot: e.Slot, Unit: u}, true
		}
		if u := spawnAt(a, e.Side, e.Slot, h); u != nil {
			s.advance()
			return Activation{Side: e.Side, Slot: e.Slot, Spawned: []*arena.Unit{u}}, true
		}
		s.advance()
	}
	s.cursor, s.cycle = startCursor, startCycle
	return Activation{}, false
}

func (s *Sequential) advance() {
	s.cursor++
	if s.cursor >= len(s.order) {
		s.cursor = 0
		s.cycle++
	}
}
