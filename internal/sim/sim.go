// Package sim plays many AI-vs-AI matches headlessly. Every match gets its
// own arena, seeded PRNG and manual clock, so a batch with a fixed seed
// always produces the same report regardless of how many workers run it.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/gridbattle/internal/game/ai"
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/dice"
	"github.com/cory-johannsen/gridbattle/internal/game/engine"
	"github.com/cory-johannsen/gridbattle/internal/game/passive"
	"github.com/cory-johannsen/gridbattle/internal/observability"
	"github.com/cory-johannsen/gridbattle/internal/scripting"
)

// scriptSalt separates the script PRNG stream from the arena's.
const scriptSalt = 0x9e3779b97f4a7c15

// Epoch is the manual-clock start of every simulated match.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Options configures Run.
type Options struct {
	Battle    arena.Config
	AI        ai.Config
	StartCost int
	Leaders   map[board.Side]string
	Meta      catalog.Meta
	// ScriptDir holds passive scripts; empty disables script passives.
	ScriptDir   string
	ScriptLimit int

	Matches int
	// Seed of match i is Seed+i.
	Seed uint64
	// Workers bounds concurrency; 0 uses GOMAXPROCS.
	Workers int
	// Tick is how far the manual clock advances between host ticks.
	Tick time.Duration
	// MaxTicks forces a timeout decision on matches still running.
	MaxTicks int
	Logger   *zap.Logger
}

// Validate reports every invalid option.
func (o Options) Validate() error {
	var errs []error
	if o.Matches <= 0 {
		errs = append(errs, errors.New("sim: matches must be > 0"))
	}
	if o.Meta == nil {
		errs = append(errs, errors.New("sim: a unit catalog is required"))
	}
	if o.Tick <= 0 {
		errs = append(errs, errors.New("sim: tick must be > 0"))
	}
	if o.MaxTicks <= 0 {
		errs = append(errs, errors.New("sim: max ticks must be > 0"))
	}
	if o.Workers < 0 {
		errs = append(errs, errors.New("sim: workers must be >= 0"))
	}
	return errors.Join(errs...)
}

// Result is one finished match.
type Result struct {
	Index  int
	Seed   uint64
	ID     uuid.UUID
	Battle arena.Battle
	Turns  int
	Cycles int
	Ticks  int
	// Elapsed is simulated time from start to finish.
	Elapsed time.Duration
}

// Report aggregates a batch.
type Report struct {
	Matches   int
	AllyWins  int
	EnemyWins int
	Draws     int
	ByReason  map[arena.Reason]int
	AvgTurns  float64
	AvgCycles float64
	Results   []Result
}

// Add folds r into the report.
func (r *Report) Add(res Result) {
	if r.ByReason == nil {
		r.ByReason = make(map[arena.Reason]int)
	}
	switch res.Battle.Winner {
	case arena.WinnerAlly:
		r.AllyWins++
	case arena.WinnerEnemy:
		r.EnemyWins++
	default:
		r.Draws++
	}
	r.ByReason[res.Battle.Reason]++
	n := float64(r.Matches)
	r.AvgTurns = (r.AvgTurns*n + float64(res.Turns)) / (n + 1)
	r.AvgCycles = (r.AvgCycles*n + float64(res.Cycles)) / (n + 1)
	r.Matches++
	r.Results = append(r.Results, res)
}

// Run plays opts.Matches matches concurrently and aggregates them in match
// order. The first failing match cancels the rest.
//
// Postcondition: on success Report.Matches == opts.Matches.
func Run(ctx context.Context, opts Options) (Report, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	results := make([]Result, opts.Matches)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range opts.Matches {
		g.Go(func() error {
			res, err := Play(gctx, opts, i)
			if err != nil {
				return fmt.Errorf("match %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var rep Report
	for _, res := range results {
		rep.Add(res)
	}
	opts.Logger.Info("simulation finished",
		zap.Int("matches", rep.Matches),
		zap.Int("ally_wins", rep.AllyWins),
		zap.Int("enemy_wins", rep.EnemyWins),
		zap.Int("draws", rep.Draws),
		zap.Float64("avg_turns", rep.AvgTurns),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}

// MatchID derives the stable id of a seeded match.
func MatchID(seed uint64) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "gridbattle-sim-%d", seed))
}

// Play runs match index of the batch to completion.
func Play(ctx context.Context, opts Options, index int) (Result, error) {
	seed := opts.Seed + uint64(index)
	id := MatchID(seed)
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = observability.MatchLogger(logger, id, "sim")

	var scripts *scripting.Manager
	if opts.ScriptDir != "" {
		scripts = scripting.NewManager(dice.NewRoller(dice.NewSeededSource(seed^scriptSalt), logger), logger)
		defer scripts.Close()
		if err := scripts.Load(passive.ScriptVM, opts.ScriptDir, opts.ScriptLimit); err != nil {
			return Result{}, err
		}
	}

	clock := arena.NewManualClock(Epoch)
	e, err := engine.New(engine.Options{
		Arena: arena.Options{
			ID:     id,
			Config: opts.Battle,
			Meta:   opts.Meta,
			Logger: logger,
			Clock:  clock,
			Rand:   dice.NewSeededSource(seed),
		},
		Leaders:   opts.Leaders,
		AISides:   []board.Side{board.Ally, board.Enemy},
		AI:        opts.AI,
		StartCost: opts.StartCost,
		Scripts:   scripts,
	})
	if err != nil {
		return Result{}, err
	}
	a := e.A

	ticks := 0
	for ; ticks < opts.MaxTicks && !a.Battle.Over; ticks++ {
		if ticks%256 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		clock.Advance(opts.Tick)
		e.Tick(clock.Now())
	}
	if !a.Battle.Over {
		logger.Debug("tick budget spent, forcing timeout", zap.Int("ticks", ticks))
		a.CheckBattleEnd(arena.TriggerTimeout)
	}

	return Result{
		Index:   index,
		Seed:    seed,
		ID:      id,
		Battle:  a.Battle,
		Turns:   a.TurnCount,
		Cycles:  a.Cycle(),
		Ticks:   ticks,
		Elapsed: a.Battle.FinishedAt.Sub(a.StartedAt),
	}, nil
}
