package turn_test

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
	"github.com/cory-johannsen/gridbattle/internal/game/turn"
)

func newArena(t *testing.T, s turn.Scheduler) *arena.Arena {
	t.Helper()
	a := arena.New(arena.Options{
		Config: arena.DefaultConfig(),
		Logger: zaptest.NewLogger(t),
		Clock:  arena.NewManualClock(time.Unix(1_700_000_000, 0)),
	})
	a.Turn = s
	return a
}

func quietArena(s turn.Scheduler) *arena.Arena {
	a := arena.New(arena.Options{
		Config: arena.DefaultConfig(),
		Clock:  arena.NewManualClock(time.Unix(1_700_000_000, 0)),
	})
	a.Turn = s
	return a
}

func place(a *arena.Arena, side board.Side, slot int) *arena.Unit {
	u := arena.NewUnit("u", "u", side, slot, catalog.Stats{HPMax: 100})
	a.Add(u)
	return u
}

// recorder is a Hooks set that logs activations and can stage spawns.
type recorder struct {
	acted   []turn.Slot
	chains  []turn.Slot
	pending map[turn.Slot]bool
}

func (r *recorder) hooks() turn.Hooks {
	return turn.Hooks{
		DoActionOrSkip: func(_ *arena.Arena, u *arena.Unit) {
			r.acted = append(r.acted, turn.Slot{Side: u.Side, Slot: u.Slot})
		},
		ProcessActionChain: func(_ *arena.Arena, side board.Side, slot int) int {
			r.chains = append(r.chains, turn.Slot{Side: side, Slot: slot})
			return slot
		},
		SpawnQueuedIfDue: func(a *arena.Arena, side board.Side, slot int) *arena.Unit {
			key := turn.Slot{Side: side, Slot: slot}
			if !r.pending[key] {
				return nil
			}
			delete(r.pending, key)
			return place(a, side, slot)
		},
	}
}

func TestBuildOrder(t *testing.T) {
	pair := turn.BuildOrder(true, 2)
	assert.Equal(t, []turn.Slot{
		{Side: board.Ally, Slot: 1}, {Side: board.Enemy, Slot: 1},
		{Side: board.Ally, Slot: 2}, {Side: board.Enemy, Slot: 2},
	}, pair)
	block := turn.BuildOrder(false, 2)
	assert.Equal(t, []turn.Slot{
		{Side: board.Ally, Slot: 1}, {Side: board.Ally, Slot: 2},
		{Side: board.Enemy, Slot: 1}, {Side: board.Enemy, Slot: 2},
	}, block)
}

func TestNew_Modes(t *testing.T) {
	s, err := turn.New(arena.TurnOrderConfig{Mode: arena.OrderSequential, PairScan: true})
	require.NoError(t, err)
	assert.Equal(t, arena.OrderSequential, s.Mode())
	s, err = turn.New(arena.TurnOrderConfig{Mode: arena.OrderInterleaved})
	require.NoError(t, err)
	assert.Equal(t, arena.OrderInterleaved, s.Mode())
	_, err = turn.New(arena.TurnOrderConfig{Mode: "chaotic"})
	assert.Error(t, err)
}

func TestSequential_PredictSpawnCycle(t *testing.T) {
	var order []turn.Slot
	for i := 1; i <= 9; i++ {
		order = append(order, turn.Slot{Side: board.Ally, Slot: i})
	}
	s := turn.NewSequential(order)
	a := newArena(t, s)
	for slot := 1; slot <= 3; slot++ {
		place(a, board.Ally, slot)
	}
	rec := &recorder{}
	for i := 0; i < 3; i++ {
		_, ok := turn.StepTurn(a, rec.hooks())
		require.True(t, ok)
	}
	require.Equal(t, 3, s.Cursor())
	require.Equal(t, 0, s.Cycle())

	assert.Equal(t, 0, s.PredictSpawnCycle(board.Ally, 6), "order index 5 is still ahead")
	assert.Equal(t, 1, s.PredictSpawnCycle(board.Ally, 2), "order index 1 already passed")
	assert.Equal(t, 0, s.PredictSpawnCycle(board.Ally, 4), "the cursor itself is still ahead")
}

func TestSequential_VisitsOrderAndCountsCycles(t *testing.T) {
	s := turn.NewSequential(turn.BuildOrder(true, 9))
	a := newArena(t, s)
	place(a, board.Ally, 2)
	place(a, board.Enemy, 1)
	place(a, board.Enemy, 5)
	rec := &recorder{}

	for i := 0; i < 6; i++ {
		act, ok := turn.StepTurn(a, rec.hooks())
		require.True(t, ok)
		require.NotNil(t, act.Unit)
	}
	want := []turn.Slot{
		{Side: board.Enemy, Slot: 1}, {Side: board.Ally, Slot: 2}, {Side: board.Enemy, Slot: 5},
		{Side: board.Enemy, Slot: 1}, {Side: board.Ally, Slot: 2}, {Side: board.Enemy, Slot: 5},
	}
	assert.Equal(t, want, rec.acted)
	assert.Equal(t, want, rec.chains, "the chain is processed after every activation")
	assert.Equal(t, 1, s.Cycle())
	assert.Equal(t, 6, a.TurnCount)
}

func TestSequential_SpawnConsumesActivation(t *testing.T) {
	s := turn.NewSequential(turn.BuildOrder(true, 9))
	a := newArena(t, s)
	place(a, board.Enemy, 3)
	rec := &recorder{pending: map[turn.Slot]bool{{Side: board.Ally, Slot: 1}: true}}

	act, ok := turn.StepTurn(a, rec.hooks())
	require.True(t, ok)
	assert.Nil(t, act.Unit)
	require.Len(t, act.Spawned, 1)
	assert.Empty(t, rec.acted, "the new unit waits for its next visit")

	act, ok = turn.StepTurn(a, rec.hooks())
	require.True(t, ok)
	assert.Equal(t, turn.Slot{Side: board.Enemy, Slot: 3}, turn.Slot{Side: act.Side, Slot: act.Slot})

	act, ok = turn.StepTurn(a, rec.hooks())
	require.True(t, ok)
	assert.Equal(t, turn.Slot{Side: board.Ally, Slot: 1}, turn.Slot{Side: act.Side, Slot: act.Slot})
}

func TestSequential_EmptyBoardIsNoop(t *testing.T) {
	s := turn.NewSequential(turn.BuildOrder(true, 9))
	a := newArena(t, s)
	_, ok := turn.StepTurn(a, (&recorder{}).hooks())
	assert.False(t, ok)
	assert.Equal(t, 0, s.Cursor())
	assert.Equal(t, 0, s.Cycle())
}

func TestStepTurn_StopsWhenBattleOver(t *testing.T) {
	s := turn.NewSequential(turn.BuildOrder(true, 9))
	a := newArena(t, s)
	place(a, board.Ally, 1)
	a.FinalizeBattle(arena.WinnerDraw, arena.ReasonTimeout, "", arena.TriggerTimeout)
	rec := &recorder{}
	_, ok := turn.StepTurn(a, rec.hooks())
	assert.False(t, ok)
	assert.Empty(t, rec.acted)
}

func TestStep_EmitsTurnEventsAndTicksMinions(t *testing.T) {
	s := turn.NewSequential(turn.BuildOrder(true, 9))
	a := newArena(t, s)
	owner := place(a, board.Ally, 1)
	m := place(a, board.Ally, 4)
	m.IsMinion, m.OwnerIID, m.TTLTurns = true, owner.IID, 1
	var events []arena.EventType
	a.Bus.Subscribe(func(e arena.Event) { events = append(events, e.Type) })

	_, ok := turn.StepTurn(a, (&recorder{}).hooks())
	require.True(t, ok)
	assert.Equal(t, []arena.EventType{arena.EventTurnStart, arena.EventTurnEnd}, events)
	assert.Nil(t, a.ByIID(m.IID), "minion expired after its side's activation")
}

func TestSequential_LastSlotEventsKeepCurrentCycle(t *testing.T) {
	s := turn.NewSequential(turn.BuildOrder(true, 9))
	a := newArena(t, s)
	place(a, board.Enemy, 9)
	var cycles []int
	a.Bus.Subscribe(func(e arena.Event) {
		if e.Type == arena.EventTurnStart || e.Type == arena.EventTurnEnd {
			cycles = append(cycles, a.Cycle())
		}
	})

	_, ok := turn.StepTurn(a, (&recorder{}).hooks())
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, cycles)
	assert.Equal(t, 1, s.Cycle(), "the pass completes once the last slot resolves")
	assert.Equal(t, 0, s.Cursor())
}

func TestInterleaved_AlternatesSides(t *testing.T) {
	s := turn.NewInterleaved(9)
	a := newArena(t, s)
	place(a, board.Ally, 1)
	place(a, board.Ally, 3)
	place(a, board.Enemy, 2)
	rec := &recorder{}

	for i := 0; i < 5; i++ {
		_, ok := turn.StepTurn(a, rec.hooks())
		require.True(t, ok)
	}
	assert.Equal(t, []turn.Slot{
		{Side: board.Ally, Slot: 1}, {Side: board.Enemy, Slot: 2},
		{Side: board.Ally, Slot: 3}, {Side: board.Enemy, Slot: 2},
		{Side: board.Ally, Slot: 1},
	}, rec.acted)
	assert.Equal(t, 1, s.WrapCount(board.Ally))
	assert.Equal(t, 1, s.WrapCount(board.Enemy))
	assert.Equal(t, 1, s.Cycle())
	assert.Equal(t, board.Enemy, s.NextSide())
}

func TestInterleaved_SpawnIsFree(t *testing.T) {
	s := turn.NewInterleaved(9)
	a := newArena(t, s)
	place(a, board.Enemy, 1)
	rec := &recorder{pending: map[turn.Slot]bool{{Side: board.Ally, Slot: 2}: true}}

	act, ok := turn.StepTurn(a, rec.hooks())
	require.True(t, ok)
	require.Len(t, act.Spawned, 1)
	require.NotNil(t, act.Unit)
	assert.Same(t, act.Spawned[0], act.Unit, "the spawned unit acts in the same step")
	assert.Equal(t, []turn.Slot{{Side: board.Ally, Slot: 2}}, rec.acted)
}

func TestInterleaved_EmptySidePasses(t *testing.T) {
	s := turn.NewInterleaved(9)
	a := newArena(t, s)
	place(a, board.Enemy, 4)
	rec := &recorder{}

	for i := 0; i < 2; i++ {
		_, ok := turn.StepTurn(a, rec.hooks())
		require.True(t, ok)
	}
	assert.Equal(t, []turn.Slot{{Side: board.Enemy, Slot: 4}, {Side: board.Enemy, Slot: 4}}, rec.acted)

	empty := turn.NewInterleaved(9)
	_, ok := turn.StepTurn(newArena(t, empty), rec.hooks())
	assert.False(t, ok)
}

func TestInterleaved_PredictSpawnCycle(t *testing.T) {
	s := turn.NewInterleaved(9)
	a := newArena(t, s)
	place(a, board.Ally, 5)
	_, ok := turn.StepTurn(a, (&recorder{}).hooks())
	require.True(t, ok)
	require.Equal(t, 5, s.LastPos(board.Ally))

	assert.Equal(t, 0, s.PredictSpawnCycle(board.Ally, 7))
	assert.Equal(t, 1, s.PredictSpawnCycle(board.Ally, 2))
	assert.Equal(t, 0, s.PredictSpawnCycle(board.Enemy, 2))
}

func TestProperty_SequentialVisitsOrderCyclically(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pairScan := rapid.Bool().Draw(t, "pairScan")
		order := turn.BuildOrder(pairScan, board.SlotCount)
		occupied := rapid.SliceOfNDistinct(rapid.IntRange(0, len(order)-1), 1, len(order), rapid.ID[int]).Draw(t, "occupied")

		s := turn.NewSequential(order)
		a := quietArena(s)
		live := map[turn.Slot]bool{}
		for _, i := range occupied {
			place(a, order[i].Side, order[i].Slot)
			live[order[i]] = true
		}
		var expected []turn.Slot
		for _, o := range order {
			if live[o] {
				expected = append(expected, o)
			}
		}

		rec := &recorder{}
		passes := rapid.IntRange(1, 3).Draw(t, "passes")
		for i := 0; i < passes*len(expected); i++ {
			if _, ok := turn.StepTurn(a, rec.hooks()); !ok {
				t.Fatalf("step %d did nothing", i)
			}
		}
		for i, got := range rec.acted {
			if got != expected[i%len(expected)] {
				t.Fatalf("activation %d: got %v want %v", i, got, expected[i%len(expected)])
			}
		}
		// The last live entry may sit at the end of the order, in which case
		// the final step already wrapped the cursor.
		wantCycle := passes - 1
		if s.Cursor() == 0 {
			wantCycle = passes
		}
		if s.Cycle() != wantCycle {
			t.Fatalf("cycle %d after %d passes, want %d", s.Cycle(), passes, wantCycle)
		}
	})
}
