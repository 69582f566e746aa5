package ult

import (
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/summon"
)

// PatternSlots returns the candidate slots of pattern around slot, nearest
// first. Occupancy is not considered.
func PatternSlots(pattern catalog.SummonPattern, side board.Side, slot int) []int {
	col, row := board.Column(slot), board.Row(slot)
	var out []int
	switch pattern {
	case catalog.PatternRowNeighbors:
		for _, c := range []int{col - 1, col + 1} {
			if s := board.SlotAt(c, row); s != 0 {
				out = append(out, s)
			}
		}
	case catalog.PatternAnyFree:
		origin := board.SlotToCell(side, slot)
		for s := board.MinSlot; s <= board.MaxSlot; s++ {
			if s != slot {
				out = append(out, s)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return board.Manhattan(origin, board.SlotToCell(side, out[i])) <
				board.Manhattan(origin, board.SlotToCell(side, out[j]))
		})
	default:
		for _, r := range []int{row - 1, row + 1} {
			if s := board.SlotAt(col, r); s != 0 {
				out = append(out, s)
			}
		}
	}
	return out
}

// FreeSlots filters PatternSlots to cells that are not reserved.
func FreeSlots(a *arena.Arena, pattern catalog.SummonPattern, side board.Side, slot int) []int {
	var out []int
	for _, s := range PatternSlots(pattern, side, slot) {
		if !a.Reserved(side, s) {
			out = append(out, s)
		}
	}
	return out
}

// minionStats derives a minion's stats from the caster's.
func minionStats(caster catalog.Stats, inh catalog.Inherit) catalog.Stats {
	return catalog.Stats{
		HPMax: max(1, floor(float64(caster.HPMax)*inh.HP)),
		ATK:   floor(float64(caster.ATK) * inh.ATK),
		WIL:   floor(float64(caster.WIL) * inh.WIL),
		ARM:   caster.ARM * inh.ARM,
		RES:   caster.RES * inh.RES,
		SPD:   caster.SPD,
	}
}

func (c *cast) summon(u *catalog.Summon) {
	limit := u.Limit
	if limit <= 0 {
		limit = c.a.Cfg.SummonLimit
	}
	n := min(max(0, u.Count), max(0, limit))
	existing := c.a.Minions(c.caster.IID)
	if over := len(existing) + n - limit; over > 0 {
		if u.Replace == "oldest" {
			for _, old := range existing[:min(over, len(existing))] {
				c.a.Remove(old)
				c.a.Log.Debug("minion replaced", zap.Int("iid", old.IID), zap.Int("serial", old.BornSerial))
			}
		} else {
			n = max(0, limit-len(existing))
		}
	}

	slots := FreeSlots(c.a, u.Pattern, c.caster.Side, c.caster.Slot)
	n = min(n, len(slots))

	cu := arena.ChainUnit{
		ID:       u.Creep.ID,
		Name:     u.Creep.Name,
		Color:    u.Creep.Color,
		Stats:    minionStats(c.caster.Stats, u.Inherit),
		OwnerIID: c.caster.IID,
		TTL:      u.TTL,
		IsMinion: true,
	}
	if cu.ID == "" {
		cu.ID = c.caster.ID + "_minion"
	}
	if cu.Name == "" {
		cu.Name = c.caster.Name + " Minion"
	}
	if kit := c.kitOf(cu.ID); kit != nil {
		cu.OnSpawn = kit.OnSpawn
	}
	for _, s := range slots[:n] {
		if summon.EnqueueImmediate(c.a, summon.Request{By: c.caster, Side: c.caster.Side, Slot: s, Unit: cu}) {
			c.out.Summoned++
		}
	}
	c.vfx(arena.VFXCast, c.caster)
}

func (c *cast) kitOf(id string) *catalog.Kit {
	if c.a.Meta == nil {
		return nil
	}
	return c.a.Meta.KitOf(id)
}
