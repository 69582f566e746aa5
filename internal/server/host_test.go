package server_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/gridbattle/internal/game/ai"
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/engine"
	"github.com/cory-johannsen/gridbattle/internal/server"
	"github.com/cory-johannsen/gridbattle/internal/storage/postgres"
)

type fakeStore struct {
	mu      sync.Mutex
	matches []postgres.Match
	err     error
}

func (s *fakeStore) Record(_ context.Context, m postgres.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.matches = append(s.matches, m)
	return nil
}

func (s *fakeStore) recorded() []postgres.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]postgres.Match(nil), s.matches...)
}

func hostCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Register(&catalog.Unit{ID: "sun_king", Name: "Sun King", Rank: catalog.RankLeader, Class: catalog.ClassWarrior,
		Stats: catalog.Stats{HPMax: 400, ATK: 12}})
	cat.Register(&catalog.Unit{ID: "moon_queen", Name: "Moon Queen", Rank: catalog.RankLeader, Class: catalog.ClassMage,
		Stats: catalog.Stats{HPMax: 400, WIL: 12}})
	cat.Register(&catalog.Unit{ID: "brute", Name: "Brute", Class: catalog.ClassWarrior, Rank: catalog.RankCommon, Cost: 2,
		Stats: catalog.Stats{HPMax: 100, ATK: 20}})
	return cat
}

func factory(duration time.Duration) server.MatchFactory {
	meta := hostCatalog()
	return func(id uuid.UUID, clock arena.Clock) (*engine.Engine, error) {
		cfg := arena.DefaultConfig()
		cfg.Duration = duration
		cfg.Timing.TurnInterval = 10 * time.Millisecond
		return engine.New(engine.Options{
			Arena:     arena.Options{ID: id, Config: cfg, Meta: meta, Clock: clock},
			Leaders:   map[board.Side]string{board.Ally: "sun_king", board.Enemy: "moon_queen"},
			AISides:   []board.Side{board.Ally, board.Enemy},
			AI:        ai.DefaultConfig(),
			StartCost: 4,
		})
	}
}

func TestNewHost_Validates(t *testing.T) {
	_, err := server.NewHost(server.HostOptions{})
	require.Error(t, err)
	for _, want := range []string{"slots", "interval", "factory"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestHost_TickAllReplacesFinishedMatches(t *testing.T) {
	clock := arena.NewManualClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	h, err := server.NewHost(server.HostOptions{
		Slots:    3,
		Interval: 50 * time.Millisecond,
		New:      factory(time.Second),
		Clock:    clock,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	h.Fill()
	first := h.Running()
	require.Len(t, first, 3)

	for range 15 {
		clock.Advance(100 * time.Millisecond)
		h.TickAll()
		assert.Len(t, h.Running(), 3)
	}
	finished, dropped := h.Finished()
	assert.GreaterOrEqual(t, finished, 3)
	assert.Zero(t, dropped)
	for _, m := range h.Running() {
		for _, old := range first {
			assert.NotEqual(t, old.ID, m.ID, "finished match still running")
		}
	}
}

func TestHost_FactoryFailureLeavesSlotEmpty(t *testing.T) {
	h, err := server.NewHost(server.HostOptions{
		Slots:    2,
		Interval: time.Second,
		New: func(uuid.UUID, arena.Clock) (*engine.Engine, error) {
			return nil, errors.New("no catalog")
		},
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	h.Fill()
	h.TickAll()
	assert.Empty(t, h.Running())
}

func TestHost_RunRecordsResults(t *testing.T) {
	store := &fakeStore{}
	h, err := server.NewHost(server.HostOptions{
		Slots:    2,
		Interval: 5 * time.Millisecond,
		Label:    "test",
		New:      factory(100 * time.Millisecond),
		Store:    store,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool { return len(store.recorded()) >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("host did not stop")
	}

	for _, m := range store.recorded() {
		assert.Equal(t, "test", m.Label)
		assert.NotEqual(t, uuid.Nil, m.ID)
		assert.NotEmpty(t, m.Winner)
		assert.Equal(t, string(arena.ModePvE), m.Mode)
		assert.Equal(t, arena.OrderSequential, m.TurnOrder)
		assert.False(t, m.FinishedAt.Before(m.StartedAt))
	}
}

func TestHost_StoreErrorIsLogged(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	h, err := server.NewHost(server.HostOptions{
		Slots:    1,
		Interval: 5 * time.Millisecond,
		New:      factory(50 * time.Millisecond),
		Store:    store,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Run(ctx), context.DeadlineExceeded)
	finished, _ := h.Finished()
	assert.Positive(t, finished)
	assert.Empty(t, store.recorded())
}

func TestMatchRecord(t *testing.T) {
	clock := arena.NewManualClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	e, err := factory(time.Minute)(uuid.New(), clock)
	require.NoError(t, err)
	clock.Advance(90 * time.Second)
	e.A.CheckBattleEnd(arena.TriggerTimeout)

	m := server.MatchRecord(e.A, "lbl")
	assert.Equal(t, e.A.ID, m.ID)
	assert.Equal(t, "lbl", m.Label)
	assert.Equal(t, string(arena.WinnerAlly), m.Winner)
	assert.Equal(t, string(arena.ReasonTimeout), m.Reason)
	assert.Equal(t, 90*time.Second, m.Duration)
}
