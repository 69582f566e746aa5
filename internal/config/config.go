// Package config provides Viper-based configuration loading for the arena services.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/gridbattle/internal/game/ai"
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ContentConfig locates the data files a match is built from.
type ContentConfig struct {
	// UnitsDir holds the unit catalog YAML files.
	UnitsDir string `mapstructure:"units_dir"`
	// ScriptsDir holds the Lua passive scripts; empty disables script passives.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// BattleConfig is the battle tuning table plus the AI and deck settings.
type BattleConfig struct {
	arena.Config `mapstructure:",squash"`
	AI           ai.Config `mapstructure:"ai"`
	// StartCost is each side's deck cost when a match starts.
	StartCost int `mapstructure:"start_cost"`
	// Leaders maps "ally"/"enemy" to leader unit ids.
	Leaders map[string]string `mapstructure:"leaders"`
}

// LeaderSides returns Leaders keyed by board side.
func (b BattleConfig) LeaderSides() map[board.Side]string {
	out := make(map[board.Side]string, len(b.Leaders))
	for k, id := range b.Leaders {
		if side := board.Side(k); side.Valid() && id != "" {
			out[side] = id
		}
	}
	return out
}

// HostConfig tunes the long-running match host.
type HostConfig struct {
	// Matches is the number of matches kept running concurrently.
	Matches int `mapstructure:"matches"`
	// TickInterval is the period of the host tick.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Record enables persisting finished matches.
	Record bool `mapstructure:"record"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Content  ContentConfig  `mapstructure:"content"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Host     HostConfig     `mapstructure:"host"`
}

// Default returns a Config seeded with the stock battle and AI tuning.
func Default() Config {
	return Config{
		Battle: BattleConfig{
			Config:    arena.DefaultConfig(),
			AI:        ai.DefaultConfig(),
			StartCost: 4,
		},
	}
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHost(c.Host); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Content.UnitsDir == "" {
		errs = append(errs, "content.units_dir must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.Mode != arena.ModePvE && b.Mode != arena.ModePvP {
		errs = append(errs, fmt.Sprintf("battle.mode must be one of [pve, pvp], got %q", b.Mode))
	}
	if b.Duration < 0 {
		errs = append(errs, "battle.duration must not be negative")
	}
	switch b.TurnOrder.Mode {
	case arena.OrderSequential, arena.OrderInterleaved:
	default:
		errs = append(errs, fmt.Sprintf("battle.turn_order.mode must be one of [%s, %s], got %q",
			arena.OrderSequential, arena.OrderInterleaved, b.TurnOrder.Mode))
	}
	if b.TurnOrder.SlotCount < 0 || b.TurnOrder.SlotCount > 9 {
		errs = append(errs, fmt.Sprintf("battle.turn_order.slot_count must be 0-9, got %d", b.TurnOrder.SlotCount))
	}
	if b.Fury.Max < 0 || b.Fury.UltCost < 0 {
		errs = append(errs, "battle.fury.max and battle.fury.ult_cost must not be negative")
	}
	if b.Combat.FollowupCap < 0 {
		errs = append(errs, "battle.combat.followup_cap must not be negative")
	}
	if b.Timing.TurnInterval <= 0 {
		errs = append(errs, "battle.timing.turn_interval must be > 0")
	}
	if b.SummonLimit < 0 || b.CostCap < 0 || b.StartCost < 0 {
		errs = append(errs, "battle.summon_limit, battle.cost_cap and battle.start_cost must not be negative")
	}
	for side := range b.Leaders {
		if side != "ally" && side != "enemy" {
			errs = append(errs, fmt.Sprintf("battle.leaders key must be ally or enemy, got %q", side))
		}
	}
	if err := b.AI.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateHost(h HostConfig) error {
	var errs []string
	if h.Matches < 1 {
		errs = append(errs, fmt.Sprintf("host.matches must be >= 1, got %d", h.Matches))
	}
	if h.TickInterval <= 0 {
		errs = append(errs, "host.tick_interval must be > 0")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with GRIDBATTLE_ prefix
	v.SetEnvPrefix("GRIDBATTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
// Battle and AI fields absent from v keep their stock values.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gridbattle")
	v.SetDefault("database.password", "gridbattle")
	v.SetDefault("database.name", "gridbattle")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("content.units_dir", "content/units")
	v.SetDefault("content.scripts_dir", "content/scripts")

	v.SetDefault("host.matches", 4)
	v.SetDefault("host.tick_interval", "50ms")
	v.SetDefault("host.record", true)

	v.SetDefault("battle.mode", string(arena.ModePvE))
	v.SetDefault("battle.duration", "3m")
	v.SetDefault("battle.turn_order.mode", arena.OrderSequential)
	v.SetDefault("battle.turn_order.pair_scan", true)
	v.SetDefault("battle.turn_order.slot_count", 9)
	v.SetDefault("battle.timing.turn_interval", "450ms")
	v.SetDefault("battle.leaders.ally", "sun_king")
	v.SetDefault("battle.leaders.enemy", "moon_queen")
}
