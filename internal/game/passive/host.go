package passive

import (
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/combat"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
	"github.com/cory-johannsen/gridbattle/internal/scripting"
)

// Host exposes an arena to passive scripts.
type Host struct {
	A *arena.Arena
}

var _ scripting.Host = Host{}

func (h Host) unit(iid int) *arena.Unit {
	if iid <= 0 {
		return nil
	}
	return h.A.ByIID(iid)
}

// Unit snapshots the unit with iid.
func (h Host) Unit(iid int) (scripting.UnitInfo, bool) {
	u := h.unit(iid)
	if u == nil {
		return scripting.UnitInfo{}, false
	}
	return scripting.UnitInfo{
		IID:      u.IID,
		ID:       u.ID,
		Name:     u.Name,
		Side:     string(u.Side),
		HP:       u.HP,
		MaxHP:    u.HPMax(),
		Fury:     u.Fury.Cur,
		FuryMax:  u.Fury.Max,
		Statuses: u.Statuses.IDs(),
	}, true
}

// ApplyStatus attaches statusID with optional turn and power overrides.
func (h Host) ApplyStatus(iid int, statusID string, turns int, power float64) bool {
	u := h.unit(iid)
	if u == nil || !u.Alive || statusID == "" {
		return false
	}
	u.AddStatus(status.FromSpec(catalog.StatusSpec{ID: statusID, Turns: turns, Power: power}))
	return true
}

// Heal restores HP and returns the amount healed.
func (h Host) Heal(iid, amount int) int {
	return combat.HealUnit(h.unit(iid), amount).Healed
}

// Damage applies raw damage, bypassing mitigation and shields.
func (h Host) Damage(iid, amount int) int {
	u := h.unit(iid)
	if u == nil {
		return 0
	}
	return combat.ApplyDamage(h.A, u, amount)
}

// GainFury adds fury directly, clamped to the meter.
func (h Host) GainFury(iid, amount int) int {
	u := h.unit(iid)
	if u == nil || !u.Alive {
		return 0
	}
	before := u.Fury.Cur
	u.Fury.Set(before + amount)
	return u.Fury.Cur - before
}

// Shield grants a damage-absorbing shield.
func (h Host) Shield(iid, amount int) {
	combat.GrantShield(h.unit(iid), amount)
}
