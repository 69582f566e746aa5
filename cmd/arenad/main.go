// Package main runs AI-vs-AI matches in real time and records every result
// to the match-history database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/config"
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/game/dice"
	"github.com/cory-johannsen/gridbattle/internal/game/engine"
	"github.com/cory-johannsen/gridbattle/internal/game/passive"
	"github.com/cory-johannsen/gridbattle/internal/observability"
	"github.com/cory-johannsen/gridbattle/internal/scripting"
	"github.com/cory-johannsen/gridbattle/internal/server"
	"github.com/cory-johannsen/gridbattle/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	label := flag.String("label", "arenad", "label stored with every recorded match")
	trace := flag.Bool("trace", false, "log every battle event at debug level")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting arena host",
		zap.Int("matches", cfg.Host.Matches),
		zap.Duration("tick", cfg.Host.TickInterval),
		zap.String("mode", string(cfg.Battle.Mode)),
		zap.String("turn_order", cfg.Battle.TurnOrder.Mode),
	)

	cat, err := catalog.LoadDirectory(cfg.Content.UnitsDir)
	if err != nil {
		logger.Fatal("loading unit catalog", zap.Error(err))
	}
	logger.Info("unit catalog loaded", zap.Int("units", cat.Len()))

	// Every match is ticked from the host goroutine, so one manager serves all.
	var scripts *scripting.Manager
	if dir := filepath.Join(cfg.Content.ScriptsDir, "passives"); cfg.Content.ScriptsDir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			roller := dice.NewRoller(dice.NewSeededSource(uint64(time.Now().UnixNano())), logger)
			scripts = scripting.NewManager(roller, logger)
			if err := scripts.Load(passive.ScriptVM, dir, 100000); err != nil {
				logger.Fatal("loading passive scripts", zap.Error(err))
			}
			defer scripts.Close()
			logger.Info("passive scripts loaded", zap.String("dir", dir))
		}
	}

	var store server.MatchStore
	if cfg.Host.Record {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		repo := postgres.NewMatchRepository(pool.DB())
		if tally, err := repo.Tally(ctx, *label); err == nil {
			logger.Info("recorded so far", zap.String("label", *label), zap.Any("tally", tally))
		}
		store = repo
	}

	battle := cfg.Battle
	newMatch := func(id uuid.UUID, clock arena.Clock) (*engine.Engine, error) {
		mlog := observability.MatchLogger(logger, id, *label)
		e, err := engine.New(engine.Options{
			Arena: arena.Options{
				ID:     id,
				Config: battle.Config,
				Meta:   cat,
				Logger: mlog,
				Clock:  clock,
			},
			Leaders:   battle.LeaderSides(),
			AISides:   []board.Side{board.Ally, board.Enemy},
			AI:        battle.AI,
			StartCost: battle.StartCost,
			Scripts:   scripts,
		})
		if err != nil {
			return nil, err
		}
		if *trace {
			e.A.Bus.Subscribe(observability.EventTracer(mlog))
		}
		return e, nil
	}

	host, err := server.NewHost(server.HostOptions{
		Slots:    cfg.Host.Matches,
		Interval: cfg.Host.TickInterval,
		Label:    *label,
		New:      newMatch,
		Store:    store,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("creating match host", zap.Error(err))
	}

	lc := server.NewLifecycle(logger)
	lc.Add("match-host", host)

	logger.Info("arena host initialized", zap.Duration("startup", time.Since(start)))
	if err := lc.Run(ctx); err != nil {
		logger.Error("arena host stopped with error", zap.Error(err))
	}
	finished, dropped := host.Finished()
	logger.Info("arena host stopped", zap.Int("finished", finished), zap.Int("dropped", dropped))
}
