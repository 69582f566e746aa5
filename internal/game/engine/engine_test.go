package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gridbattle/internal/game/ai"
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/dice"
	"github.com/cory-johannsen/gridbattle/internal/game/engine"
	"github.com/cory-johannsen/gridbattle/internal/game/status"
	"github.com/cory-johannsen/gridbattle/internal/game/summon"
)

var epoch = time.Unix(1_700_000_000, 0)

func testCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Register(&catalog.Unit{ID: "sun_king", Name: "Sun King", Rank: catalog.RankLeader, Class: catalog.ClassWarrior,
		Stats: catalog.Stats{HPMax: 500, ATK: 12}})
	cat.Register(&catalog.Unit{ID: "moon_queen", Name: "Moon Queen", Rank: catalog.RankLeader, Class: catalog.ClassMage,
		Stats: catalog.Stats{HPMax: 500, WIL: 12}})
	cat.Register(&catalog.Unit{ID: "brute", Name: "Brute", Class: catalog.ClassWarrior, Rank: catalog.RankCommon, Cost: 2,
		Stats: catalog.Stats{HPMax: 100, ATK: 30}})
	cat.Register(&catalog.Unit{ID: "leech", Name: "Leech", Class: catalog.ClassMage, Rank: catalog.RankCommon, Cost: 3,
		Stats: catalog.Stats{HPMax: 100, WIL: 20},
		Kit:   catalog.Kit{Ult: catalog.UltSpec{Effect: &catalog.Drain{Power: 1}}}})
	cat.Register(&catalog.Unit{ID: "medic", Name: "Medic", Class: catalog.ClassSupport, Rank: catalog.RankCommon, Cost: 3,
		Stats: catalog.Stats{HPMax: 100, WIL: 10},
		Kit:   catalog.Kit{Ult: catalog.UltSpec{Effect: &catalog.Revive{Targets: 1, HPPercent: 0.5}}}})
	cat.Register(&catalog.Unit{ID: "caller", Name: "Caller", Class: catalog.ClassSummoner, Rank: catalog.RankElite, Cost: 4,
		Stats: catalog.Stats{HPMax: 90, ATK: 8, WIL: 14},
		Kit:   catalog.Kit{Ult: catalog.UltSpec{Effect: &catalog.Summon{Count: 2, Limit: 2, TTL: 3, Inherit: catalog.Inherit{HP: 0.5, ATK: 0.5}}}}})
	return cat
}

type harness struct {
	e      *engine.Engine
	clock  *arena.ManualClock
	events []arena.Event
}

func newHarness(t *testing.T, mutate func(*engine.Options)) *harness {
	t.Helper()
	h := &harness{clock: arena.NewManualClock(epoch)}
	opts := engine.Options{
		Arena: arena.Options{
			Config: arena.DefaultConfig(),
			Meta:   testCatalog(),
			Logger: zaptest.NewLogger(t),
			Clock:  h.clock,
			Rand:   dice.NewSeededSource(7),
		},
		AI: ai.DefaultConfig(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := engine.New(opts)
	require.NoError(t, err)
	h.e = e
	e.A.Bus.Subscribe(func(ev arena.Event) { h.events = append(h.events, ev) })
	return h
}

func (h *harness) place(id string, side board.Side, slot int) *arena.Unit {
	def, _ := h.e.A.Meta.Get(id)
	stats := catalog.Stats{HPMax: 1000}
	if def != nil {
		stats = def.Stats
	}
	u := arena.NewUnit(id, id, side, slot, stats)
	if def != nil {
		u.Class = def.Class
	}
	u.Fury.Initialize(id, 0, h.e.A.Cfg.Fury)
	h.e.A.Add(u)
	return u
}

func (h *harness) last(t arena.EventType) (arena.Event, bool) {
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].Type == t {
			return h.events[i], true
		}
	}
	return arena.Event{}, false
}

func TestNew_PlacesLeaders(t *testing.T) {
	h := newHarness(t, func(o *engine.Options) {
		o.Leaders = map[board.Side]string{board.Ally: "sun_king", board.Enemy: "moon_queen"}
		o.StartCost = 25
	})
	a := h.e.A
	for _, side := range []board.Side{board.Ally, board.Enemy} {
		l := a.Leader(side)
		require.NotNil(t, l, side)
		assert.Equal(t, board.LeaderSlot, l.Slot)
		assert.Equal(t, arena.SourceLeader, l.Src)
		assert.Zero(t, l.Fury.Cur)
		assert.Equal(t, a.Cfg.CostCap, a.Decks[side].Cost, "start cost is capped")
	}
	assert.Equal(t, arena.OrderSequential, a.Turn.Mode())
}

func TestNew_Errors(t *testing.T) {
	cases := []struct {
		name string
		opts func(*engine.Options)
		want error
	}{
		{"unknown leader", func(o *engine.Options) { o.Leaders = map[board.Side]string{board.Ally: "nobody"} }, catalog.ErrUnknownUnit},
		{"not a leader", func(o *engine.Options) { o.Leaders = map[board.Side]string{board.Enemy: "brute"} }, engine.ErrNotLeader},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := engine.Options{Arena: arena.Options{Config: arena.DefaultConfig(), Meta: testCatalog()}}
			tc.opts(&opts)
			_, err := engine.New(opts)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	cfg := arena.DefaultConfig()
	cfg.TurnOrder.Mode = "zigzag"
	_, err := engine.New(engine.Options{Arena: arena.Options{Config: cfg}})
	assert.ErrorContains(t, err, "zigzag")
}

func TestDoActionOrSkip_BasicWithFollowups(t *testing.T) {
	h := newHarness(t, nil)
	brute := h.place("brute", board.Ally, 1)
	foe := h.place("dummy", board.Enemy, 1)

	h.e.DoActionOrSkip(h.e.A, brute)

	assert.Equal(t, 1000-3*30, foe.HP, "one attack plus two follow-ups")
	assert.Positive(t, brute.Fury.Cur)
	end, ok := h.last(arena.EventActionEnd)
	require.True(t, ok)
	assert.Equal(t, engine.ActionBasic, end.Action)
	assert.False(t, end.Skipped)
	_, ok = h.last(arena.EventActionStart)
	assert.True(t, ok)
}

func TestDoActionOrSkip_StunnedSkips(t *testing.T) {
	h := newHarness(t, nil)
	brute := h.place("brute", board.Ally, 1)
	foe := h.place("dummy", board.Enemy, 1)
	brute.AddStatus(status.Stun(status.Spec{Turns: 1}))

	h.e.DoActionOrSkip(h.e.A, brute)

	assert.Equal(t, 1000, foe.HP)
	end, _ := h.last(arena.EventActionEnd)
	assert.True(t, end.Skipped)
	assert.Equal(t, engine.ReasonStatus, end.Reason)
	assert.False(t, brute.Statuses.Has(status.IDStun), "stun expires at turn end")
}

func TestDoActionOrSkip_CastsUltWhenFull(t *testing.T) {
	h := newHarness(t, nil)
	leech := h.place("leech", board.Ally, 1)
	foe := h.place("dummy", board.Enemy, 1)
	leech.Fury.Set(leech.Fury.Max)

	h.e.DoActionOrSkip(h.e.A, leech)

	end, _ := h.last(arena.EventActionEnd)
	assert.Equal(t, engine.ActionUlt, end.Action)
	assert.Equal(t, 980, foe.HP)
	assert.Zero(t, leech.Fury.Cur)
}

func TestDoActionOrSkip_SilencedFallsBackToBasic(t *testing.T) {
	h := newHarness(t, nil)
	leech := h.place("leech", board.Ally, 1)
	h.place("dummy", board.Enemy, 1)
	leech.Fury.Set(leech.Fury.Max)
	leech.AddStatus(status.Silence(status.Spec{Turns: 2}))

	h.e.DoActionOrSkip(h.e.A, leech)

	end, _ := h.last(arena.EventActionEnd)
	assert.Equal(t, engine.ActionBasic, end.Action)
	assert.Equal(t, leech.Fury.Max, leech.Fury.Cur)
}

func TestDoActionOrSkip_FailedUltZeroesFury(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := newHarness(t, func(o *engine.Options) { o.Arena.Logger = zap.New(core) })
	medic := h.place("medic", board.Ally, 1)
	h.place("dummy", board.Enemy, 1)
	corpse := arena.NewUnit("brute", "brute", board.Ally, 2, catalog.Stats{HPMax: 100})
	corpse.Alive = false
	corpse.HP = 0
	corpse.DeadAt = epoch
	corpse.Statuses = nil
	h.e.A.Graveyard = append(h.e.A.Graveyard, corpse)
	medic.Fury.Set(medic.Fury.Max)

	h.e.DoActionOrSkip(h.e.A, medic)

	assert.Zero(t, medic.Fury.Cur)
	assert.Equal(t, 1, logs.FilterMessage("ultimate failed").Len())
	end, _ := h.last(arena.EventActionEnd)
	assert.Equal(t, engine.ActionUlt, end.Action)
}

func TestDoActionOrSkip_BleedAtTurnEnd(t *testing.T) {
	h := newHarness(t, nil)
	brute := h.place("brute", board.Ally, 1)
	brute.AddStatus(status.Bleed(status.Spec{Turns: 2}))

	h.e.DoActionOrSkip(h.e.A, brute)

	assert.Equal(t, 95, brute.HP)
	assert.True(t, brute.Statuses.Has(status.IDBleed))
}

func TestDoActionOrSkip_ClearsFreshSummon(t *testing.T) {
	h := newHarness(t, nil)
	brute := h.place("brute", board.Ally, 1)
	require.True(t, brute.Fury.Track.FreshSummon)
	h.e.DoActionOrSkip(h.e.A, brute)
	assert.False(t, brute.Fury.Track.FreshSummon)
}

func TestApplyTurnRegen(t *testing.T) {
	h := newHarness(t, nil)
	u := arena.NewUnit("u", "u", board.Ally, 1, catalog.Stats{HPMax: 100, HPRegen: 10, AEMax: 20, AERegen: 30})
	h.e.A.Add(u)
	u.HP = 50
	u.AE = 0

	hp, ae := engine.ApplyTurnRegen(h.e.A, u)
	assert.Equal(t, 10, hp)
	assert.Equal(t, 20, ae)
	assert.Equal(t, 60, u.HP)
	assert.Equal(t, 20, u.AE)
	ev, ok := h.last(arena.EventTurnRegen)
	require.True(t, ok)
	assert.Equal(t, 10, ev.HP)
	assert.True(t, h.e.A.BusyUntil.After(epoch), "heal vfx extends the busy window")

	u.Stats.HPRegen = -5
	hp, _ = engine.ApplyTurnRegen(h.e.A, u)
	assert.Zero(t, hp)
	assert.Equal(t, 60, u.HP)
}

func TestTick_BusyWindowGatesSteps(t *testing.T) {
	h := newHarness(t, func(o *engine.Options) {
		o.Leaders = map[board.Side]string{board.Ally: "sun_king", board.Enemy: "moon_queen"}
	})
	a := h.e.A

	require.True(t, h.e.Tick(h.clock.Now()))
	assert.Equal(t, 1, a.TurnCount)
	assert.False(t, a.BusyUntil.Before(h.clock.Now().Add(a.Cfg.Timing.TurnInterval)))

	h.clock.Advance(time.Millisecond)
	assert.False(t, h.e.Tick(h.clock.Now()))
	assert.Equal(t, 1, a.TurnCount)

	h.clock.Advance(10 * time.Second)
	assert.True(t, h.e.Tick(h.clock.Now()))
	assert.Equal(t, 2, a.TurnCount)
}

func TestTick_TimeoutEndsBattle(t *testing.T) {
	h := newHarness(t, func(o *engine.Options) {
		o.Arena.Config.Duration = time.Second
		o.Leaders = map[board.Side]string{board.Ally: "sun_king", board.Enemy: "moon_queen"}
	})
	h.clock.Advance(2 * time.Second)

	assert.False(t, h.e.Tick(h.clock.Now()))
	b := h.e.A.Battle
	assert.True(t, b.Over)
	assert.Equal(t, arena.ReasonTimeout, b.Reason)
	assert.Equal(t, arena.WinnerAlly, b.Winner)
	ev, ok := h.last(arena.EventBattleEnd)
	require.True(t, ok)
	assert.Equal(t, arena.TriggerTimeout, ev.Trigger)
}

func TestTick_RegeneratesCostUpToCap(t *testing.T) {
	h := newHarness(t, func(o *engine.Options) {
		o.Leaders = map[board.Side]string{board.Ally: "sun_king", board.Enemy: "moon_queen"}
	})
	a := h.e.A
	h.e.Tick(h.clock.Now())
	assert.Zero(t, a.Decks[board.Ally].Cost)

	h.clock.Advance(3 * time.Second)
	h.e.Tick(h.clock.Now())
	assert.Equal(t, 3, a.Decks[board.Ally].Cost)
	assert.Equal(t, 3, a.Decks[board.Enemy].Cost)

	h.clock.Advance(time.Minute)
	h.e.Tick(h.clock.Now())
	assert.Equal(t, a.Cfg.CostCap, a.Decks[board.Ally].Cost)
}

func TestTick_PrunesCorpsesToGraveyard(t *testing.T) {
	h := newHarness(t, func(o *engine.Options) {
		o.Leaders = map[board.Side]string{board.Ally: "sun_king", board.Enemy: "moon_queen"}
	})
	a := h.e.A
	dead := h.place("brute", board.Ally, 1)
	dead.Alive = false
	dead.HP = 0
	dead.DeadAt = h.clock.Now()

	h.clock.Advance(a.Cfg.Combat.CorpseLinger)
	h.e.Tick(h.clock.Now())

	assert.NotContains(t, a.Units, dead)
	assert.Contains(t, a.Graveyard, dead)
}

func TestPlayCard(t *testing.T) {
	h := newHarness(t, func(o *engine.Options) { o.StartCost = 5 })
	a := h.e.A

	p, err := h.e.PlayCard(board.Ally, "brute", 2)
	require.NoError(t, err)
	assert.Equal(t, arena.SourceDeck, p.Src)
	assert.Equal(t, 3, a.Decks[board.Ally].Cost)
	assert.True(t, a.Decks[board.Ally].Used["brute"])

	_, err = h.e.PlayCard(board.Ally, "caller", 3)
	assert.True(t, errors.Is(err, summon.ErrInsufficientCost))
	_, err = h.e.PlayCard(board.Ally, "leech", 2)
	assert.True(t, errors.Is(err, summon.ErrReserved))
	_, err = h.e.PlayCard(board.Ally, "sun_king", 4)
	assert.True(t, errors.Is(err, engine.ErrNotPlayable))

	a.FinalizeBattle(arena.WinnerDraw, arena.ReasonTimeout, "", arena.TriggerTimeout)
	_, err = h.e.PlayCard(board.Ally, "leech", 4)
	assert.True(t, errors.Is(err, engine.ErrBattleOver))
}

func TestPlayCard_SpawnsAndCastsOnArrival(t *testing.T) {
	h := newHarness(t, func(o *engine.Options) {
		o.StartCost = 10
		o.Leaders = map[board.Side]string{board.Ally: "sun_king", board.Enemy: "moon_queen"}
	})
	_, err := h.e.PlayCard(board.Ally, "caller", 5)
	require.NoError(t, err)

	for i := 0; i < 4 && h.e.A.UnitAt(board.Ally, 5) == nil; i++ {
		h.e.Step()
	}
	caller := h.e.A.UnitAt(board.Ally, 5)
	require.NotNil(t, caller)
	assert.Len(t, h.e.A.Minions(caller.IID), 2, "summon ultimate fires on arrival")
	assert.Zero(t, caller.Fury.Cur)
	assert.False(t, caller.Fury.Track.FreshSummon)
}

func TestProperty_AIMatchEndsWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		interleaved := rapid.Bool().Draw(rt, "interleaved")
		clock := arena.NewManualClock(epoch)
		cfg := arena.DefaultConfig()
		cfg.Duration = 20 * time.Second
		if interleaved {
			cfg.TurnOrder.Mode = arena.OrderInterleaved
		}
		e, err := engine.New(engine.Options{
			Arena:     arena.Options{Config: cfg, Meta: testCatalog(), Clock: clock, Rand: dice.NewSeededSource(seed)},
			Leaders:   map[board.Side]string{board.Ally: "sun_king", board.Enemy: "moon_queen"},
			AISides:   []board.Side{board.Ally, board.Enemy},
			AI:        ai.DefaultConfig(),
			StartCost: 5,
		})
		if err != nil {
			rt.Fatal(err)
		}
		for i := 0; i < 400 && !e.A.Battle.Over; i++ {
			clock.Advance(100 * time.Millisecond)
			e.Tick(clock.Now())
			for _, u := range e.A.Units {
				if u.HP < 0 || u.HP > u.HPMax() {
					rt.Fatalf("%s hp %d outside [0,%d]", u.Name, u.HP, u.HPMax())
				}
				if u.Fury.Cur < 0 || u.Fury.Cur > u.Fury.Max {
					rt.Fatalf("%s fury %d outside [0,%d]", u.Name, u.Fury.Cur, u.Fury.Max)
				}
			}
		}
		if !e.A.Battle.Over {
			rt.Fatalf("battle still running after timeout")
		}
	})
}
