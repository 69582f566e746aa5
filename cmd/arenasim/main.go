// Package main plays a batch of AI-vs-AI matches headlessly and prints the
// aggregate results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gridbattle/internal/config"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
	"github.com/cory-johannsen/gridbattle/internal/observability"
	"github.com/cory-johannsen/gridbattle/internal/sim"
)

type summary struct {
	Matches   int            `yaml:"matches"`
	AllyWins  int            `yaml:"ally_wins"`
	EnemyWins int            `yaml:"enemy_wins"`
	Draws     int            `yaml:"draws"`
	ByReason  map[string]int `yaml:"by_reason"`
	AvgTurns  float64        `yaml:"avg_turns"`
	AvgCycles float64        `yaml:"avg_cycles"`
	Elapsed   string         `yaml:"elapsed"`
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	matches := flag.Int("matches", 100, "number of matches to play")
	seed := flag.Uint64("seed", 1, "seed of the first match")
	workers := flag.Int("workers", 0, "concurrent matches (0 = GOMAXPROCS)")
	tick := flag.Duration("tick", 50*time.Millisecond, "simulated time between host ticks")
	maxTicks := flag.Int("max-ticks", 20000, "tick budget per match before a timeout is forced")
	verbose := flag.Bool("v", false, "print one line per match")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	cat, err := catalog.LoadDirectory(cfg.Content.UnitsDir)
	if err != nil {
		logger.Fatal("loading unit catalog", zap.Error(err))
	}
	logger.Info("unit catalog loaded", zap.Int("units", cat.Len()), zap.String("dir", cfg.Content.UnitsDir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := sim.Run(ctx, sim.Options{
		Battle:      cfg.Battle.Config,
		AI:          cfg.Battle.AI,
		StartCost:   cfg.Battle.StartCost,
		Leaders:     cfg.Battle.LeaderSides(),
		Meta:        cat,
		ScriptDir:   passiveScriptDir(cfg.Content.ScriptsDir),
		ScriptLimit: 100000,
		Matches:     *matches,
		Seed:        *seed,
		Workers:     *workers,
		Tick:        *tick,
		MaxTicks:    *maxTicks,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	if *verbose {
		for _, r := range rep.Results {
			fmt.Fprintf(os.Stdout, "%4d seed=%d winner=%-5s reason=%-11s turns=%d cycles=%d sim=%s\n",
				r.Index, r.Seed, r.Battle.Winner, r.Battle.Reason, r.Turns, r.Cycles, r.Elapsed)
		}
	}

	out := summary{
		Matches:   rep.Matches,
		AllyWins:  rep.AllyWins,
		EnemyWins: rep.EnemyWins,
		Draws:     rep.Draws,
		ByReason:  make(map[string]int, len(rep.ByReason)),
		AvgTurns:  rep.AvgTurns,
		AvgCycles: rep.AvgCycles,
		Elapsed:   time.Since(start).Round(time.Millisecond).String(),
	}
	for r, n := range rep.ByReason {
		out.ByReason[string(r)] = n
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		logger.Fatal("writing summary", zap.Error(err))
	}
	_ = enc.Close()
}

// passiveScriptDir returns the passive script directory under root, or ""
// when scripting is disabled or the directory is missing.
func passiveScriptDir(root string) string {
	if root == "" {
		return ""
	}
	dir := filepath.Join(root, "passives")
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return ""
	}
	return dir
}
