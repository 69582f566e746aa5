package ai

import (
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/summon"
	"github.com/cory-johannsen/gridbattle/internal/game/ult"
)

// nearestFront is the smallest possible distance from a deployment cell to the
// opposing front column.
const nearestFront = board.Cols - 2*board.SideCols + 1

func (c *Controller) parts(a *arena.Arena, def *catalog.Unit, slot int) Parts {
	cell := board.SlotToCell(c.Side, slot)
	p := Parts{
		Pressure: pressure(c.Side, cell),
		Safety:   c.safety(a, cell),
		ETA:      eta(a, c.Side, slot),
		Crowd:    c.crowd(a, slot),
		Role:     c.role(def.Class, slot),
	}
	if s, ok := def.Kit.Ult.Effect.(*catalog.Summon); ok && def.IsSummoner() {
		p.Summon = summonRoom(a, c.Side, slot, s)
	}
	t := def.Kit.Traits()
	if t.Instant {
		p.KitInstant = p.ETA
	}
	if t.Defense {
		p.KitDefense = 1 - p.Safety
	}
	if t.Revive && len(a.Fallen(c.Side)) > 0 {
		p.KitRevive = p.ETA
	}
	return p
}

func (c *Controller) combine(p Parts) float64 {
	w := c.Cfg.Weights
	sum := w.Pressure*p.Pressure +
		w.Safety*p.Safety +
		w.ETA*p.ETA +
		w.Summon*p.Summon +
		w.KitInstant*p.KitInstant +
		w.KitDefense*p.KitDefense +
		w.KitRevive*p.KitRevive
	return sum * p.Crowd * p.Role
}

// pressure is 1 on the front column and falls off with distance to the
// opposing front.
func pressure(side board.Side, cell board.Cell) float64 {
	d := board.FrontlineDistance(side, cell)
	return 1 / (1 + 0.5*float64(max(0, d-nearestFront)))
}

// safety is 1/(1+n) where n counts foes within the threat range of cell.
func (c *Controller) safety(a *arena.Arena, cell board.Cell) float64 {
	n := 0
	for _, f := range a.Living(c.Side.Opponent()) {
		if board.Manhattan(cell, f.Cell) <= c.Cfg.ThreatRange {
			n++
		}
	}
	return 1 / (1 + float64(n))
}

// eta is 1 when a spawn queued now resolves this cycle, else 0.5.
func eta(a *arena.Arena, side board.Side, slot int) float64 {
	due := a.Cycle()
	if a.Turn != nil {
		due = a.Turn.DueCycle(side)
	}
	if summon.PredictSpawnCycle(a, side, slot) <= due {
		return 1
	}
	return 0.5
}

// summonRoom is the fraction of a Summoner's minions that would fit around slot.
func summonRoom(a *arena.Arena, side board.Side, slot int, s *catalog.Summon) float64 {
	want := max(1, s.Count)
	free := 0
	for _, cand := range ult.FreeSlots(a, s.Pattern, side, slot) {
		if cand != slot {
			free++
		}
	}
	return min(1, float64(free)/float64(want))
}

// crowd penalises rows that already hold two or more friendly units.
func (c *Controller) crowd(a *arena.Arena, slot int) float64 {
	row := board.Row(slot)
	n := 0
	for _, u := range a.Living(c.Side) {
		if board.Row(u.Slot) == row {
			n++
		}
	}
	for s := range a.Queued[c.Side] {
		if board.Row(s) == row {
			n++
		}
	}
	if n >= 2 {
		return c.Cfg.RowPenalty
	}
	return 1
}

// role biases front classes toward column 0 and back classes toward column 2.
func (c *Controller) role(class catalog.Class, slot int) float64 {
	col := float64(board.Column(slot))
	switch c.Cfg.RoleOf(class) {
	case RoleFront:
		return 1 + c.Cfg.RoleBias*(1-col)
	case RoleBack:
		return 1 + c.Cfg.RoleBias*(col-1)
	default:
		return 1
	}
}
