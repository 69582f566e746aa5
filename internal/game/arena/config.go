package arena

import (
	"strings"
	"time"

	"github.com/cory-johannsen/gridbattle/internal/game/fury"
)

// Mode is the match type, which decides how a timeout is scored.
type Mode string

const (
	ModePvE Mode = "pve"
	ModePvP Mode = "pvp"
)

// Turn order modes.
const (
	OrderSequential  = "sequential"
	OrderInterleaved = "interleaved_by_position"
)

// TurnOrderConfig selects and shapes the turn scheduler.
type TurnOrderConfig struct {
	Mode string `mapstructure:"mode"`
	// PairScan builds the sequential order as (ally,s),(enemy,s) for each slot;
	// otherwise all ally slots precede all enemy slots.
	PairScan  bool `mapstructure:"pair_scan"`
	SlotCount int  `mapstructure:"slot_count"`
}

// CombatConfig tunes action resolution.
type CombatConfig struct {
	FollowupCap    int            `mapstructure:"followup_cap"`
	ClassFollowups map[string]int `mapstructure:"class_followups"`
	CorpseLinger   time.Duration  `mapstructure:"corpse_linger"`
}

// TimingConfig holds the host cadence and animation-duration estimates.
type TimingConfig struct {
	TurnInterval time.Duration            `mapstructure:"turn_interval"`
	Anim         map[string]time.Duration `mapstructure:"anim"`
}

// Config is the battle tuning table, read-only once a match starts.
type Config struct {
	Mode        Mode            `mapstructure:"mode"`
	Duration    time.Duration   `mapstructure:"duration"`
	TurnOrder   TurnOrderConfig `mapstructure:"turn_order"`
	Fury        fury.Config     `mapstructure:"fury"`
	Combat      CombatConfig    `mapstructure:"combat"`
	Timing      TimingConfig    `mapstructure:"timing"`
	SummonLimit int             `mapstructure:"summon_limit"`
	CostCap     int             `mapstructure:"cost_cap"`
}

// DefaultConfig returns the stock battle tuning.
func DefaultConfig() Config {
	return Config{
		Mode:     ModePvE,
		Duration: 3 * time.Minute,
		TurnOrder: TurnOrderConfig{
			Mode:      OrderSequential,
			PairScan:  true,
			SlotCount: 9,
		},
		Fury: fury.DefaultConfig(),
		Combat: CombatConfig{
			FollowupCap:  2,
			CorpseLinger: 900 * time.Millisecond,
		},
		Timing: TimingConfig{
			TurnInterval: 450 * time.Millisecond,
			Anim: map[string]time.Duration{
				string(VFXMelee):  220 * time.Millisecond,
				string(VFXArc):    320 * time.Millisecond,
				string(VFXSpawn):  260 * time.Millisecond,
				string(VFXHeal):   180 * time.Millisecond,
				string(VFXCast):   380 * time.Millisecond,
				string(VFXBuff):   200 * time.Millisecond,
				string(VFXShield): 200 * time.Millisecond,
			},
		},
		SummonLimit: 2,
		CostCap:     10,
	}
}

// FollowupCap returns the follow-up cap for class, falling back to the default.
// Class keys match case-insensitively.
func (c Config) FollowupCap(class string) int {
	if v, ok := c.Combat.ClassFollowups[class]; ok {
		return max(0, v)
	}
	if v, ok := c.Combat.ClassFollowups[strings.ToLower(class)]; ok {
		return max(0, v)
	}
	return max(0, c.Combat.FollowupCap)
}
