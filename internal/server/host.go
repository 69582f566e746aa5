package server

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/engine"
	"github.com/cory-johannsen/gridbattle/internal/storage/postgres"
)

// MatchStore persists finished matches.
type MatchStore interface {
	Record(ctx context.Context, m postgres.Match) error
}

// MatchFactory builds a fresh match. The engine must read time from clock.
type MatchFactory func(id uuid.UUID, clock arena.Clock) (*engine.Engine, error)

// HostOptions configures NewHost.
type HostOptions struct {
	// Slots is how many matches run at once.
	Slots int
	// Interval is the host tick period.
	Interval time.Duration
	Label    string
	New      MatchFactory
	// Store records finished matches; nil disables recording.
	Store         MatchStore
	RecordTimeout time.Duration
	Clock         arena.Clock
	Logger        *zap.Logger
}

// MatchStatus is a point-in-time view of a running match.
type MatchStatus struct {
	ID        uuid.UUID
	Turns     int
	Cycle     int
	StartedAt time.Time
}

// Host keeps Slots matches running, ticking all of them on one ticker and
// replacing each as it finishes.
//
// Invariant: every running match is ticked at most once per interval.
type Host struct {
	opts    HostOptions
	log     *zap.Logger
	results chan postgres.Match
	dropped atomic.Int64

	mu       sync.Mutex
	matches  map[uuid.UUID]*engine.Engine
	finished int
}

// NewHost validates opts and returns an idle host.
//
// Precondition: opts.Slots > 0, opts.Interval > 0, opts.New non-nil.
func NewHost(opts HostOptions) (*Host, error) {
	var errs []error
	if opts.Slots <= 0 {
		errs = append(errs, errors.New("host: slots must be > 0"))
	}
	if opts.Interval <= 0 {
		errs = append(errs, errors.New("host: interval must be > 0"))
	}
	if opts.New == nil {
		errs = append(errs, errors.New("host: a match factory is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = arena.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = 5 * time.Second
	}
	return &Host{
		opts:    opts,
		log:     opts.Logger.Named("host"),
		results: make(chan postgres.Match, opts.Slots*4),
		matches: make(map[uuid.UUID]*engine.Engine),
	}, nil
}

// Run fills every slot, then ticks until ctx is cancelled. Results still
// queued at shutdown are recorded before Run returns.
func (h *Host) Run(ctx context.Context) error {
	h.Fill()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(h.results)
		ticker := time.NewTicker(h.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				h.TickAll()
			}
		}
	})
	g.Go(func() error {
		for m := range h.results {
			h.record(context.WithoutCancel(gctx), m)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Fill starts matches until every slot is taken. A factory failure is
// logged and leaves the slot empty until the next call.
func (h *Host) Fill() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for len(h.matches) < h.opts.Slots {
		id := uuid.New()
		e, err := h.opts.New(id, h.opts.Clock)
		if err != nil {
			h.log.Error("starting match", zap.Error(err))
			return
		}
		e.A.Bus.Subscribe(h.onBattleEnd(e))
		h.matches[e.A.ID] = e
		h.log.Debug("match started", zap.Stringer("match", e.A.ID))
	}
}

// TickAll ticks every running match once, then replaces the finished ones.
// Battle-end subscribers run while the host lock is held and must not call
// back into the host.
func (h *Host) TickAll() {
	now := h.opts.Clock.Now()
	h.mu.Lock()
	for id, e := range h.matches {
		e.Tick(now)
		if e.A.Battle.Over {
			delete(h.matches, id)
			h.finished++
		}
	}
	h.mu.Unlock()
	h.Fill()
}

func (h *Host) onBattleEnd(e *engine.Engine) arena.Handler {
	return func(ev arena.Event) {
		if ev.Type != arena.EventBattleEnd {
			return
		}
		m := MatchRecord(e.A, h.opts.Label)
		select {
		case h.results <- m:
		default:
			h.dropped.Add(1)
			h.log.Warn("result queue full, dropping match", zap.Stringer("match", m.ID))
		}
	}
}

func (h *Host) record(ctx context.Context, m postgres.Match) {
	if h.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.opts.RecordTimeout)
	defer cancel()
	start := time.Now()
	if err := h.opts.Store.Record(ctx, m); err != nil {
		h.log.Error("recording match", zap.Stringer("match", m.ID), zap.Error(err))
		return
	}
	h.log.Info("match recorded",
		zap.Stringer("match", m.ID),
		zap.String("winner", m.Winner),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Running lists the live matches ordered by start time.
func (h *Host) Running() []MatchStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]MatchStatus, 0, len(h.matches))
	for id, e := range h.matches {
		out = append(out, MatchStatus{ID: id, Turns: e.A.TurnCount, Cycle: e.A.Cycle(), StartedAt: e.A.StartedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Finished returns how many matches have ended and how many results were
// dropped because the queue was full.
func (h *Host) Finished() (finished, dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finished, int(h.dropped.Load())
}

// MatchRecord converts a finished arena into its history row.
//
// Precondition: a.Battle.Over.
func MatchRecord(a *arena.Arena, label string) postgres.Match {
	order := a.Cfg.TurnOrder.Mode
	if a.Turn != nil {
		order = a.Turn.Mode()
	}
	return postgres.Match{
		ID:         a.ID,
		Label:      label,
		Mode:       string(a.Cfg.Mode),
		TurnOrder:  order,
		Winner:     string(a.Battle.Winner),
		Reason:     string(a.Battle.Reason),
		Detail:     a.Battle.Detail,
		Turns:      a.TurnCount,
		Cycles:     a.Cycle(),
		Duration:   a.Battle.FinishedAt.Sub(a.StartedAt),
		StartedAt:  a.StartedAt,
		FinishedAt: a.Battle.FinishedAt,
	}
}
