package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/combat"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
)

func newArena(t *testing.T) (*arena.Arena, *arena.ManualClock) {
	t.Helper()
	clock := arena.NewManualClock(time.Unix(1_700_000_000, 0))
	return arena.New(arena.Options{Config: arena.DefaultConfig(), Clock: clock, Logger: zaptest.NewLogger(t)}), clock
}

func quietArena() *arena.Arena {
	clock := arena.NewManualClock(time.Unix(1_700_000_000, 0))
	return arena.New(arena.Options{Config: arena.DefaultConfig(), Clock: clock})
}

func spawn(a *arena.Arena, side board.Side, slot int, stats catalog.Stats) *arena.Unit {
	u := arena.NewUnit("u", "u", side, slot, stats)
	u.Fury.Initialize(u.ID, 0, a.Cfg.Fury)
	a.Add(u)
	return u
}

func TestBasicAttack_ArmorMitigation(t *testing.T) {
	a, _ := newArena(t)
	attacker := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 30, WIL: 10})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100, ARM: 0.2})

	var r combat.Resolver
	res := r.BasicAttack(a, attacker)
	require.Same(t, target, res.Target)
	assert.Equal(t, 32, res.Dealt)
	assert.Equal(t, 68, target.HP)
}

func TestBasicAttack_PassiveModifierAndAfter(t *testing.T) {
	a, _ := newArena(t)
	attacker := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 20})
	spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	var after []int
	r := combat.Resolver{OnBasicHit: func(*arena.Arena, *arena.Unit, *arena.Unit) combat.BasicMod {
		return combat.BasicMod{Scale: 1.5, Flat: 5, After: []func(combat.Result){
			func(res combat.Result) { after = append(after, res.Dealt) },
			func(combat.Result) { panic("after failed") },
		}}
	}}
	res := r.BasicAttack(a, attacker)
	assert.Equal(t, 35, res.Dealt)
	assert.Equal(t, []int{35}, after)
}

func TestBasicAttack_TauntOverridesRowTarget(t *testing.T) {
	a, _ := newArena(t)
	attacker := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 10})
	front := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	taunter := spawn(a, board.Enemy, 6, catalog.Stats{HPMax: 100})
	taunter.AddStatus(status.Taunt(status.Spec{}))

	var r combat.Resolver
	res := r.BasicAttack(a, attacker)
	assert.Same(t, taunter, res.Target)
	assert.Equal(t, 100, front.HP)
}

func TestBasicAttack_StealthTakesNothing(t *testing.T) {
	a, _ := newArena(t)
	attacker := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 50})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	target.AddStatus(status.Stealth(status.Spec{}))

	var r combat.Resolver
	res := r.BasicAttack(a, attacker)
	assert.Equal(t, 0, res.Dealt)
	assert.Equal(t, 100, target.HP)
}

func TestPickTarget_RowThenNearest(t *testing.T) {
	a, _ := newArena(t)
	attacker := spawn(a, board.Ally, 2, catalog.Stats{HPMax: 10})
	back := spawn(a, board.Enemy, 8, catalog.Stats{HPMax: 10})
	spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 10})
	assert.Same(t, back, combat.PickTarget(a, attacker))

	b, _ := newArena(t)
	attacker = spawn(b, board.Ally, 2, catalog.Stats{HPMax: 10})
	near := spawn(b, board.Enemy, 1, catalog.Stats{HPMax: 10})
	spawn(b, board.Enemy, 9, catalog.Stats{HPMax: 10})
	assert.Same(t, near, combat.PickTarget(b, attacker))
}

func TestProperty_ByDistanceSortedAndStable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		from := board.SlotToCell(board.Ally, rapid.IntRange(board.MinSlot, board.MaxSlot).Draw(rt, "from"))
		n := rapid.IntRange(0, 9).Draw(rt, "n")
		in := make([]*arena.Unit, n)
		pos := make(map[*arena.Unit]int, n)
		for i := range n {
			slot := rapid.IntRange(board.MinSlot, board.MaxSlot).Draw(rt, "slot")
			in[i] = arena.NewUnit("u", "u", board.Enemy, slot, catalog.Stats{HPMax: 10})
			pos[in[i]] = i
		}
		out := combat.ByDistance(from, in)
		if len(out) != n {
			rt.Fatalf("len %d, want %d", len(out), n)
		}
		for i := 1; i < len(out); i++ {
			prev, cur := board.Manhattan(from, out[i-1].Cell), board.Manhattan(from, out[i].Cell)
			if prev > cur {
				rt.Fatalf("distance %d before %d", prev, cur)
			}
			if prev == cur && pos[out[i-1]] > pos[out[i]] {
				rt.Fatalf("tie at distance %d reordered", cur)
			}
		}
	})
}

func TestDoBasicWithFollowups_StopsOnDeath(t *testing.T) {
	a, _ := newArena(t)
	attacker := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 10})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	target.AddStatus(status.Reflect(status.Spec{Power: 10}))
	attacker.HP = 5

	var r combat.Resolver
	n := r.DoBasicWithFollowups(a, attacker, 2)
	assert.Equal(t, 1, n)
	assert.False(t, attacker.Alive)
}

func TestDoBasicWithFollowups_TotalIsOnePlusCap(t *testing.T) {
	a, _ := newArena(t)
	attacker := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 10})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 1000})

	var r combat.Resolver
	assert.Equal(t, 3, r.DoBasicWithFollowups(a, attacker, 2))
	assert.Equal(t, 970, target.HP)
}

func TestDealAbilityDamage_ArcaneUsesResistAndPenetration(t *testing.T) {
	a, _ := newArena(t)
	caster := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, WIL: 100})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 500, ARM: 0.9, RES: 0.5})

	res := combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{DType: status.Arcane})
	assert.Equal(t, 50, res.Dealt)

	res = combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{DType: status.Arcane, DefPen: 0.5})
	assert.Equal(t, 75, res.Dealt)
}

func TestDealAbilityDamage_DeadTargetIsNoop(t *testing.T) {
	a, _ := newArena(t)
	caster := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 100})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 10})
	combat.ApplyDamage(a, target, 10)
	before := caster.Fury.Cur
	assert.Equal(t, combat.Result{}, combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{}))
	assert.Equal(t, before, caster.Fury.Cur)
	assert.Equal(t, combat.Result{}, combat.DealAbilityDamage(a, caster, nil, combat.AbilityOpts{}))
}

func TestShieldAbsorbsBeforeHP(t *testing.T) {
	a, _ := newArena(t)
	caster := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 30})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	combat.GrantShield(target, 10)
	combat.GrantShield(target, 10)

	res := combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{})
	assert.Equal(t, 20, res.Absorbed)
	assert.Equal(t, 10, res.Dealt)
	assert.Equal(t, 30, res.Total)
	assert.False(t, target.Statuses.Has(status.IDShield))
}

func TestUndyingLeavesOneHP(t *testing.T) {
	a, _ := newArena(t)
	caster := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 500})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	target.AddStatus(status.Undying(status.Spec{}))

	combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{})
	assert.Equal(t, 1, target.HP)
	assert.True(t, target.Alive)
	assert.False(t, target.Statuses.Has(status.IDUndying))

	combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{})
	assert.False(t, target.Alive)
}

func TestExecuteFinishesLowTargets(t *testing.T) {
	a, _ := newArena(t)
	caster := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 92})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	caster.AddStatus(status.Execute(status.Spec{}))

	res := combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{})
	assert.True(t, res.Killed)
	assert.Equal(t, 100, res.Dealt)
}

func TestVenomAddsDamage(t *testing.T) {
	a, _ := newArena(t)
	caster := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 40})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	caster.AddStatus(status.Venom(status.Spec{Power: 0.25}))

	res := combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{})
	assert.Equal(t, 50, res.Dealt)
	assert.Equal(t, 50, target.HP)
}

func TestHitsGrantFuryToBothSides(t *testing.T) {
	a, _ := newArena(t)
	caster := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: 40})
	target := spawn(a, board.Enemy, 1, catalog.Stats{HPMax: 100})
	combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{})
	assert.Positive(t, caster.Fury.Cur)
	assert.Positive(t, target.Fury.Cur)
	assert.Zero(t, caster.Fury.Track.HitGain, "hit window closes after the hit")
}

func TestApplyDamage_DeathIsIdempotent(t *testing.T) {
	a, clock := newArena(t)
	u := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 10})
	var deaths int
	a.Bus.Subscribe(func(e arena.Event) {
		if e.Type == arena.EventDeath {
			deaths++
		}
	})
	assert.Equal(t, 10, combat.ApplyDamage(a, u, 25))
	deadAt := u.DeadAt
	require.False(t, deadAt.IsZero())
	clock.Advance(time.Second)
	assert.Equal(t, 0, combat.ApplyDamage(a, u, 5))
	assert.Equal(t, deadAt, u.DeadAt)
	assert.Equal(t, 1, deaths)
}

func TestHealUnit(t *testing.T) {
	a, _ := newArena(t)
	u := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 50})
	u.HP = 40
	assert.Equal(t, combat.HealResult{Healed: 10, Overheal: 15}, combat.HealUnit(u, 25))
	assert.Equal(t, combat.HealResult{}, combat.HealUnit(u, -3))
}

func TestProperty_HPBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := quietArena()
		hpMax := rapid.IntRange(1, 500).Draw(rt, "hpMax")
		u := spawn(a, board.Ally, 1, catalog.Stats{HPMax: hpMax})
		ops := rapid.SliceOfN(rapid.IntRange(-200, 200), 1, 30).Draw(rt, "ops")
		for _, v := range ops {
			if v < 0 {
				combat.HealUnit(u, -v)
			} else {
				combat.ApplyDamage(a, u, v)
			}
			if u.HP < 0 || u.HP > hpMax {
				rt.Fatalf("hp %d out of [0,%d]", u.HP, hpMax)
			}
			if u.Alive != (u.HP > 0) {
				rt.Fatalf("alive=%v with hp=%d", u.Alive, u.HP)
			}
		}
	})
}

func TestProperty_AbilityDamageNonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := quietArena()
		caster := spawn(a, board.Ally, 1, catalog.Stats{HPMax: 100, ATK: rapid.IntRange(-50, 500).Draw(rt, "atk")})
		target := spawn(a, board.Enemy, 1, catalog.Stats{
			HPMax: 1000,
			ARM:   rapid.Float64Range(0, 1).Draw(rt, "arm"),
		})
		res := combat.DealAbilityDamage(a, caster, target, combat.AbilityOpts{DefPen: rapid.Float64Range(-1, 2).Draw(rt, "pen")})
		if res.Dealt < 0 || res.Absorbed < 0 || res.Total != res.Dealt+res.Absorbed {
			rt.Fatalf("bad result %+v", res)
		}
		if 1000-target.HP != res.Dealt {
			rt.Fatalf("hp lost %d != dealt %d", 1000-target.HP, res.Dealt)
		}
	})
}
