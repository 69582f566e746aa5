// Package combat resolves basic attacks and ability damage: target selection,
// the status damage hooks, armor/resist mitigation, shields, lethal-damage
// checks and the fury awarded for dealing and taking damage.
//
// Every damage value is floored to a non-negative integer at each step.
package combat

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/fury"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
)

// Result summarises one resolved hit.
//
// Postcondition: Total == Dealt + Absorbed.
type Result struct {
	Target   *arena.Unit
	Dealt    int
	Absorbed int
	Total    int
	Killed   bool
}

// HealResult summarises one heal.
type HealResult struct {
	Healed   int
	Overheal int
}

// ApplyDamage removes up to amount HP from target. It is the only place HP is
// decremented and the only place a unit dies.
//
// Postcondition: 0 <= target.HP <= HPMax; returns the HP actually removed. A
// unit that reaches 0 HP is marked dead and DeadAt is set once; later calls on a
// dead unit change nothing.
func ApplyDamage(a *arena.Arena, target *arena.Unit, amount int) int {
	if target == nil || !target.Alive || amount <= 0 {
		return 0
	}
	before := target.HP
	target.HP = clamp(target.HP-amount, 0, target.HPMax())
	lost := before - target.HP
	if target.HP == 0 {
		target.Alive = false
		if target.DeadAt.IsZero() {
			target.DeadAt = a.Now()
		}
		a.Log.Debug("unit died",
			zap.String("unit", target.Name),
			zap.Int("iid", target.IID),
			zap.String("side", string(target.Side)),
		)
		a.Emit(arena.Event{Type: arena.EventDeath, Unit: target})
	}
	return lost
}

// HealUnit restores up to amount HP to a living target.
//
// Postcondition: Healed in [0, HPMax-HP before]; Healed + Overheal == max(0, amount)
// for living targets.
func HealUnit(target *arena.Unit, amount int) HealResult {
	if target == nil || !target.Alive || amount <= 0 {
		return HealResult{}
	}
	healed := min(amount, target.HPMax()-target.HP)
	healed = max(0, healed)
	target.HP += healed
	return HealResult{Healed: healed, Overheal: amount - healed}
}

// GrantShield adds amount to target's shield, creating one if needed.
func GrantShield(target *arena.Unit, amount int) {
	if target == nil || amount <= 0 {
		return
	}
	target.Statuses.Add(status.Shield(status.Spec{Amount: amount}))
}

// DealTrueDamage applies amount to u through the undying check, bypassing
// mitigation and shields. Damage over time uses it.
func DealTrueDamage(a *arena.Arena, u *arena.Unit, amount int) int {
	return lethal(a, u, amount)
}

// lethal applies amount after giving undying a chance to leave the unit at 1 HP.
func lethal(a *arena.Arena, u *arena.Unit, amount int) int {
	if u == nil || !u.Alive || amount <= 0 {
		return 0
	}
	if amount >= u.HP && status.CheatDeath(u.Statuses) {
		amount = u.HP - 1
		a.Log.Debug("undying consumed", zap.String("unit", u.Name), zap.Int("iid", u.IID))
	}
	return ApplyDamage(a, u, amount)
}

// hitOpts parameterises the shared hit pipeline.
type hitOpts struct {
	attackType status.AttackType
	dtype      status.DamageType
	base       int
	defPen     float64
	crit       bool
	aoe        bool
	targetsHit int
}

// hit runs beforeDamage, mitigation, shield, lethal check, afterDamage and
// fury gain for one attacker/target pair.
func hit(a *arena.Arena, attacker, target *arena.Unit, o hitOpts) Result {
	if target == nil || !target.Alive {
		return Result{}
	}
	pre := status.BeforeDamage(attacker.Statuses, target.Statuses, status.DamageContext{
		AttackType: o.attackType,
		DType:      o.dtype,
		Base:       max(0, o.base),
	})
	if pre.IgnoreAll {
		return Result{Target: target}
	}
	dmg := floor(float64(pre.Base) * pre.OutMul)
	defPen := math.Max(pre.DefPen, clamp01(o.defPen))
	def := target.Stats.ARM
	if o.dtype == status.Arcane {
		def = target.Stats.RES
	}
	dmg = floor(float64(dmg) * (1 - clamp01(def)*(1-defPen)))
	dmg = floor(float64(dmg) * pre.InMul)
	dmg = max(0, dmg)

	sh := status.AbsorbShield(target.Statuses, dmg)
	dealt := lethal(a, target, sh.Remain)
	res := Result{Target: target, Dealt: dealt, Absorbed: sh.Absorbed, Total: dealt + sh.Absorbed}

	am := status.AfterDamage(attacker.Statuses, target.Statuses, status.Hit{
		Dealt: dealt, TargetHP: target.HP, TargetHPMax: target.HPMax(),
	})
	if am.Venom > 0 && target.Alive {
		extra := lethal(a, target, am.Venom)
		res.Dealt += extra
		res.Total += extra
	}
	if am.Execute && target.Alive {
		if status.CheatDeath(target.Statuses) {
			a.Log.Debug("execute resisted by undying", zap.Int("iid", target.IID))
		} else {
			res.Dealt += ApplyDamage(a, target, target.HP)
			res.Total = res.Dealt + res.Absorbed
		}
	}
	res.Killed = !target.Alive

	gain := fury.GainAbility
	if o.attackType == status.AttackBasic {
		gain = fury.GainBasic
	}
	a.GainFury(attacker, fury.Spec{
		Type: gain, Dealt: res.Dealt, TargetMaxHP: target.HPMax(),
		Crit: o.crit, Kill: res.Killed, IsAoE: o.aoe, TargetsHit: o.targetsHit,
	})
	if target.Alive {
		a.GainFury(target, fury.Spec{Type: fury.GainDamageTaken, Dealt: res.Dealt, TargetMaxHP: target.HPMax()})
	}
	if am.Reflect > 0 && attacker.Alive {
		back := lethal(a, attacker, am.Reflect)
		a.GainFury(attacker, fury.Spec{Type: fury.GainDamageTaken, Dealt: back, TargetMaxHP: attacker.HPMax()})
	}
	attacker.Fury.FinishHit()
	target.Fury.FinishHit()
	return res
}

// AbilityOpts parameterises DealAbilityDamage.
type AbilityOpts struct {
	DType status.DamageType
	// Base overrides the default base (ATK for physical, WIL for arcane) when > 0.
	Base int
	// DefPen is ability penetration, combined with status penetration by max.
	DefPen     float64
	IsAoE      bool
	IsCrit     bool
	TargetsHit int
}

// DealAbilityDamage resolves ability damage from attacker to target.
//
// Postcondition: a dead or nil target yields a zero Result with no side effects.
func DealAbilityDamage(a *arena.Arena, attacker, target *arena.Unit, opts AbilityOpts) Result {
	if attacker == nil || target == nil || !target.Alive {
		return Result{}
	}
	dtype := opts.DType
	if dtype == "" {
		dtype = status.Physical
	}
	base := opts.Base
	if base <= 0 {
		if dtype == status.Arcane {
			base = attacker.Stats.WIL
		} else {
			base = attacker.Stats.ATK
		}
	}
	return hit(a, attacker, target, hitOpts{
		attackType: status.AttackAbility,
		dtype:      dtype,
		base:       base,
		defPen:     opts.DefPen,
		crit:       opts.IsCrit,
		aoe:        opts.IsAoE,
		targetsHit: opts.TargetsHit,
	})
}

// BasicMod adjusts a basic attack before mitigation. After callbacks run once
// the hit has resolved.
type BasicMod struct {
	Scale float64
	Flat  int
	After []func(Result)
}

// BasicHitFunc produces the modifier for a basic attack from attacker on target.
type BasicHitFunc func(a *arena.Arena, attacker, target *arena.Unit) BasicMod

// Resolver resolves basic attacks with kit passives applied.
type Resolver struct {
	// OnBasicHit is consulted before each basic attack; nil means no modifier.
	OnBasicHit BasicHitFunc
}

// BasicBase returns floor(max(0,ATK) + max(0,WIL)).
func BasicBase(u *arena.Unit) int {
	return max(0, u.Stats.ATK) + max(0, u.Stats.WIL)
}

// BasicAttack makes one basic attack from u. Taunt and allure redirect the
// target first; otherwise PickTarget chooses.
//
// Postcondition: returns a zero Result when u has no living foe.
func (r *Resolver) BasicAttack(a *arena.Arena, u *arena.Unit) Result {
	if u == nil || !u.Alive {
		return Result{}
	}
	target, ok := status.ResolveTarget(u, a.Foes(u), status.AttackBasic)
	if !ok {
		target = PickTarget(a, u)
	}
	if target == nil {
		return Result{}
	}
	base := BasicBase(u)
	var mod BasicMod
	if r != nil && r.OnBasicHit != nil {
		mod = r.OnBasicHit(a, u, target)
	}
	if mod.Scale > 0 {
		base = floor(float64(base) * mod.Scale)
	}
	base = max(0, base+mod.Flat)

	res := hit(a, u, target, hitOpts{attackType: status.AttackBasic, dtype: status.Physical, base: base})
	a.ExtendBusy(a.VFX(arena.VFXMelee, u, target))
	for _, fn := range mod.After {
		runAfter(a, u, fn, res)
	}
	return res
}

func runAfter(a *arena.Arena, u *arena.Unit, fn func(Result), res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			a.Log.Warn("after-hit callback panicked", zap.Int("iid", u.IID), zap.Any("panic", rec))
		}
	}()
	fn(res)
}

// DoBasicWithFollowups attacks once and then up to followups more times while
// u stays alive and has a foe. It returns the number of attacks made.
//
// Postcondition: 0 <= returned <= 1+followups.
func (r *Resolver) DoBasicWithFollowups(a *arena.Arena, u *arena.Unit, followups int) int {
	u.Fury.StartSkill("basic", true)
	n := 0
	for i := 0; i <= max(0, followups); i++ {
		if !u.Alive || len(a.Foes(u)) == 0 {
			break
		}
		r.BasicAttack(a, u)
		n++
	}
	return n
}

// Busy extends the arena busy window by the sum of ds.
func Busy(a *arena.Arena, ds ...time.Duration) {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	a.ExtendBusy(total)
}

func floor(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(math.Floor(v))
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
