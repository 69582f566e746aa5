// Package ult dispatches ultimate abilities. Each catalog.Ult variant has one
// resolver; Perform picks it by type, accumulates the presentation time of the
// cast into the arena busy window and settles the caster's fury.
package ult

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
)

var (
	// ErrCasterDown is returned when the caster is missing or dead.
	ErrCasterDown = errors.New("caster is not alive")
	// ErrNoKit is returned when the caster has no catalog entry.
	ErrNoKit = errors.New("caster has no kit")
)

// CastError wraps a failed or panicking ultimate.
type CastError struct {
	UnitID string
	IID    int
	Type   catalog.UltType
	Err    error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("ultimate %q of %s#%d: %v", e.Type, e.UnitID, e.IID, e.Err)
}

func (e *CastError) Unwrap() error { return e.Err }

// Outcome summarises a resolved ultimate.
type Outcome struct {
	Type     catalog.UltType
	Targets  []*arena.Unit
	Dealt    int
	Healed   int
	Shielded int
	Summoned int
	Revived  int
	Spent    int
	Busy     time.Duration
}

// cast carries the state of one resolution.
type cast struct {
	a      *arena.Arena
	caster *arena.Unit
	out    Outcome
}

func (c *cast) vfx(kind arena.VFXKind, to *arena.Unit) {
	c.out.Busy += c.a.VFX(kind, c.caster, to)
}

func (c *cast) hit(u *arena.Unit) {
	for _, t := range c.out.Targets {
		if t == u {
			return
		}
	}
	c.out.Targets = append(c.out.Targets, u)
}

// Perform resolves caster's ultimate.
//
// Precondition: caster is on a's board.
// Postcondition: on success the busy window is extended by Outcome.Busy and the
// caster's fury is reduced by its ultimate cost (zeroed for summons). A non-nil
// error is always a *CastError; fury is left for the caller to settle.
func Perform(a *arena.Arena, caster *arena.Unit) (out Outcome, err error) {
	var t catalog.UltType
	defer func() {
		if r := recover(); r != nil {
			err = castErr(caster, t, fmt.Errorf("panic: %v", r))
		}
	}()
	if caster == nil || !caster.Alive {
		return Outcome{}, castErr(caster, t, ErrCasterDown)
	}
	def := a.Def(caster)
	if def == nil {
		return Outcome{}, castErr(caster, t, ErrNoKit)
	}
	t = def.Kit.Ult.Type()
	c := &cast{a: a, caster: caster, out: Outcome{Type: t}}
	caster.Fury.StartSkill("ult", true)

	zero := false
	switch u := def.Kit.Ult.Effect.(type) {
	case *catalog.Summon:
		c.summon(u)
		zero = true
	case *catalog.Drain:
		c.drain(u)
	case *catalog.HPTradeBurst:
		c.hpTradeBurst(u)
	case *catalog.StrikeLaneMid:
		c.strikeLaneMid(u)
	case *catalog.SelfBuff:
		c.selfBuff(u)
	case *catalog.Sleep:
		c.sleep(u)
	case *catalog.Revive:
		c.revive(u)
	case *catalog.EqualizeHP:
		c.equalize(u)
	case *catalog.Haste:
		c.haste(u)
	default:
		// No special effect; only the cost is paid.
	}

	a.ExtendBusy(c.out.Busy)
	if zero {
		c.out.Spent = caster.Fury.Cur
		caster.Fury.Set(0)
	} else {
		c.out.Spent = caster.Fury.Spend(a.UltCost(caster))
	}
	a.Log.Debug("ultimate cast",
		zap.String("unit", caster.Name),
		zap.Int("iid", caster.IID),
		zap.String("type", string(t)),
		zap.Int("targets", len(c.out.Targets)),
		zap.Int("dealt", c.out.Dealt),
		zap.Int("spent", c.out.Spent),
	)
	return c.out, nil
}

func castErr(u *arena.Unit, t catalog.UltType, err error) *CastError {
	ce := &CastError{Type: t, Err: err}
	if u != nil {
		ce.UnitID = u.ID
		ce.IID = u.IID
	}
	return ce
}
