package ult

import (
	"math"
	"sort"
	"time"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/combat"
	"github.com/cory-johannsen/gridbattle/internal/game/fury"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
)

// IDSlow and IDSwift are the statuses applied by hpTradeBurst and haste.
const (
	IDSlow  = "slow"
	IDSwift = "swiftStrike"
)

func floor(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(math.Floor(v))
}

// payHP removes pct of the caster's max HP, never taking the last point.
func (c *cast) payHP(pct float64) int {
	cost := floor(pct * float64(c.caster.HPMax()))
	paid := max(0, min(cost, c.caster.HP-1))
	c.caster.HP -= paid
	return paid
}

func (c *cast) drain(u *catalog.Drain) {
	foes := c.a.Foes(c.caster)
	base := floor(float64(c.caster.Stats.WIL) * u.Power)
	for _, f := range foes {
		res := combat.DealAbilityDamage(c.a, c.caster, f, combat.AbilityOpts{
			DType:      status.Arcane,
			Base:       base,
			IsAoE:      len(foes) > 1,
			TargetsHit: len(foes),
		})
		c.out.Dealt += res.Dealt
		c.hit(f)
		c.vfx(arena.VFXArc, f)
		if u.FuryDrain {
			fury.Drain(&c.caster.Fury, &f.Fury, fury.DrainOpts{SkillTotalCap: c.a.Cfg.Fury.Caps.Skill}, c.a.Cfg.Fury)
		}
	}
	if c.out.Dealt == 0 || !c.caster.Alive {
		return
	}
	h := combat.HealUnit(c.caster, c.out.Dealt)
	c.out.Healed += h.Healed
	c.vfx(arena.VFXHeal, c.caster)
	if h.Overheal > 0 {
		combat.GrantShield(c.caster, h.Overheal)
		c.out.Shielded += h.Overheal
		c.vfx(arena.VFXShield, c.caster)
	}
}

// burstTargets returns up to n foes: the priority target first, then the rest
// by distance.
func (c *cast) burstTargets(n int) []*arena.Unit {
	primary := combat.PickTarget(c.a, c.caster)
	if primary == nil || n <= 0 {
		return nil
	}
	out := []*arena.Unit{primary}
	for _, f := range combat.ByDistance(c.caster.Cell, c.a.Foes(c.caster)) {
		if len(out) >= n {
			break
		}
		if f != primary {
			out = append(out, f)
		}
	}
	return out
}

func (c *cast) hpTradeBurst(u *catalog.HPTradeBurst) {
	c.payHP(u.HPTradePercent)
	c.vfx(arena.VFXCast, c.caster)
	targets := c.burstTargets(u.Hits)
	for _, t := range targets {
		pct := u.PercentTargetMaxHP
		if t.IsBoss() {
			pct = u.BossPercent
		}
		base := floor(pct*float64(t.HPMax())) + floor(u.ScaleWIL*float64(c.caster.Stats.WIL)) + u.Flat
		res := combat.DealAbilityDamage(c.a, c.caster, t, combat.AbilityOpts{
			DType:      status.Arcane,
			Base:       base,
			IsAoE:      len(targets) > 1,
			TargetsHit: len(targets),
		})
		c.out.Dealt += res.Dealt
		c.hit(t)
		c.vfx(arena.VFXArc, t)
		if t.Alive {
			t.AddStatus(status.FromSpec(catalog.StatusSpec{
				ID: IDSlow, Kind: string(status.Debuff), Tag: string(status.TagStat),
				Attr: "spd", Mode: string(status.Percent),
				Power: u.SlowPower, Turns: u.SlowTurns, Stacks: 1, MaxStacks: u.SlowMaxStacks,
			}))
		}
	}
	if c.caster.Alive {
		c.caster.AddStatus(status.DamageCut(status.Spec{Turns: u.Turns, Power: u.ReduceDmg}))
		c.vfx(arena.VFXBuff, c.caster)
	}
}

func (c *cast) strikeLaneMid(u *catalog.StrikeLaneMid) {
	primary := combat.PickTarget(c.a, c.caster)
	if primary == nil {
		return
	}
	var lane []*arena.Unit
	for _, f := range c.a.Foes(c.caster) {
		if f.Cell.CX == primary.Cell.CX {
			lane = append(lane, f)
		}
	}
	base := floor(float64(c.caster.Stats.ATK)*u.ScaleATK + float64(c.caster.Stats.WIL)*u.ScaleWIL)
	for i := 0; i < max(1, u.Hits); i++ {
		for _, t := range lane {
			if !t.Alive {
				continue
			}
			b := base
			if t.IsLeader() && u.LeaderBonus > 0 {
				b = floor(float64(b) * u.LeaderBonus)
			}
			res := combat.DealAbilityDamage(c.a, c.caster, t, combat.AbilityOpts{
				DType:      status.Arcane,
				Base:       b,
				DefPen:     u.PenRES,
				IsAoE:      len(lane) > 1,
				TargetsHit: len(lane),
			})
			c.out.Dealt += res.Dealt
			c.hit(t)
			c.vfx(arena.VFXArc, t)
		}
		if !c.caster.Alive {
			return
		}
	}
}

func (c *cast) selfBuff(u *catalog.SelfBuff) {
	c.payHP(u.HPTradePercent)
	c.caster.AddStatus(status.DamageCut(status.Spec{Turns: u.Turns, Power: u.ReduceDmg}))
	c.hit(c.caster)
	c.vfx(arena.VFXBuff, c.caster)
}

func (c *cast) sleep(u *catalog.Sleep) {
	for i, f := range combat.ByDistance(c.caster.Cell, c.a.Foes(c.caster)) {
		if i >= u.Targets {
			break
		}
		f.AddStatus(status.Sleep(status.Spec{Turns: u.Turns}))
		c.hit(f)
		c.vfx(arena.VFXCast, f)
	}
}

func (c *cast) revive(u *catalog.Revive) {
	initial := u.Fury
	if initial < 0 {
		initial = c.a.Cfg.Fury.ReviveInitial
	}
	n := 0
	for _, dead := range c.a.Fallen(c.caster.Side) {
		if n >= u.Targets {
			break
		}
		if c.a.Reserved(dead.Side, board.CellToSlot(dead.Side, dead.Cell)) {
			continue
		}
		c.a.Exhume(dead)
		dead.Statuses.Purge()
		dead.Recompute()
		dead.Alive = true
		dead.DeadAt = time.Time{}
		dead.HP = max(1, floor(u.HPPercent*float64(dead.HPMax())))
		dead.Fury.Initialize(dead.ID, initial, c.a.Cfg.Fury)
		if u.LockTurns > 0 {
			dead.AddStatus(status.Silence(status.Spec{Turns: u.LockTurns}))
		}
		n++
		c.hit(dead)
		c.vfx(arena.VFXHeal, dead)
		c.a.Emit(arena.Event{Type: arena.EventSpawn, Unit: dead})
	}
	c.out.Revived = n
}

func (c *cast) equalize(u *catalog.EqualizeHP) {
	var pool []*arena.Unit
	for _, ally := range c.a.Living(c.caster.Side) {
		if ally.IsLeader() && !u.IncludeLeader {
			continue
		}
		pool = append(pool, ally)
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].HPRatio() < pool[j].HPRatio() })
	if len(pool) > u.Allies {
		pool = pool[:max(0, u.Allies)]
	}
	top := 0.0
	for _, ally := range pool {
		top = math.Max(top, ally.HPRatio())
	}
	for _, ally := range pool {
		want := floor(top * float64(ally.HPMax()))
		if want > ally.HP {
			c.out.Healed += combat.HealUnit(ally, want-ally.HP).Healed
			c.hit(ally)
			c.vfx(arena.VFXHeal, ally)
		}
	}
}

func (c *cast) haste(u *catalog.Haste) {
	group := []*arena.Unit{c.caster}
	allies := c.a.Allies(c.caster)
	sort.SliceStable(allies, func(i, j int) bool { return allies[i].Stats.SPD < allies[j].Stats.SPD })
	for i, ally := range allies {
		if i >= u.Targets {
			break
		}
		group = append(group, ally)
	}
	for _, g := range group {
		g.AddStatus(status.Haste(status.Spec{Turns: u.Turns, Power: u.Power}))
		c.hit(g)
		c.vfx(arena.VFXBuff, g)
	}
	if u.BasicBonus > 0 {
		c.caster.AddStatus(status.FromSpec(catalog.StatusSpec{
			ID: IDSwift, Kind: string(status.Buff), Tag: string(status.TagBasicBoost),
			Power: u.BasicBonus, Turns: u.Turns,
		}))
	}
}
