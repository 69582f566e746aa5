package arena

import (
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/fury"
)

// Def returns u's catalog definition, or nil for units unknown to the catalog
// such as generated creeps.
func (a *Arena) Def(u *Unit) *catalog.Unit {
	if a.Meta == nil || u == nil {
		return nil
	}
	def, ok := a.Meta.Get(u.ID)
	if !ok {
		return nil
	}
	return def
}

// FuryBonus returns u's unit-level fury gain bonus.
func (a *Arena) FuryBonus(u *Unit) float64 {
	if def := a.Def(u); def != nil {
		return def.Mods.FuryGainBonus
	}
	return 0
}

// GainFury awards fury to u under the arena's tuning table.
//
// Postcondition: returns the amount gained; 0 <= u.Fury.Cur <= u.Fury.Max.
func (a *Arena) GainFury(u *Unit, s fury.Spec) int {
	if u == nil || !u.Alive {
		return 0
	}
	return u.Fury.Gain(s, a.FuryBonus(u), a.Cfg.Fury)
}

// UltCost returns the fury u's ultimate costs.
func (a *Arena) UltCost(u *Unit) int {
	return fury.ResolveUltCost(u.ID, &u.Fury, a.Cfg.Fury)
}
