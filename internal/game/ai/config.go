package ai

import (
	"errors"
	"strings"
	"time"

	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
)

// Weights are the sub-score weights of the placement heuristic.
type Weights struct {
	Pressure   float64 `mapstructure:"pressure"`
	Safety     float64 `mapstructure:"safety"`
	ETA        float64 `mapstructure:"eta"`
	Summon     float64 `mapstructure:"summon"`
	KitInstant float64 `mapstructure:"kit_instant"`
	KitDefense float64 `mapstructure:"kit_defense"`
	KitRevive  float64 `mapstructure:"kit_revive"`
}

// Role is a class's preferred column.
type Role string

const (
	RoleFront Role = "front"
	RoleBack  Role = "back"
	RoleFlex  Role = "flex"
)

// Config tunes the card-playing AI.
type Config struct {
	HandSize int           `mapstructure:"hand_size"`
	Throttle time.Duration `mapstructure:"throttle"`
	Weights  Weights       `mapstructure:"weights"`
	// TopN is how many scored candidates the last decision keeps.
	TopN int `mapstructure:"top_n"`
	// ThreatRange is the Manhattan radius within which a foe threatens a cell.
	ThreatRange int `mapstructure:"threat_range"`
	// RowPenalty multiplies the score of a cell whose row already holds two
	// or more friendly units.
	RowPenalty float64 `mapstructure:"row_penalty"`
	// RoleBias scales the column preference of Roles.
	RoleBias float64         `mapstructure:"role_bias"`
	Roles    map[string]Role `mapstructure:"roles"`
	// CostTick is the deck cost regeneration period; CostPerTick the amount.
	CostTick    time.Duration `mapstructure:"cost_tick"`
	CostPerTick int           `mapstructure:"cost_per_tick"`
}

// DefaultConfig returns the stock AI tuning.
func DefaultConfig() Config {
	return Config{
		HandSize: 4,
		Throttle: 120 * time.Millisecond,
		Weights: Weights{
			Pressure: 0.42, Safety: 0.20, ETA: 0.16, Summon: 0.08,
			KitInstant: 0.06, KitDefense: 0.04, KitRevive: 0.04,
		},
		TopN:        5,
		ThreatRange: 3,
		RowPenalty:  0.85,
		RoleBias:    0.15,
		Roles: map[string]Role{
			string(catalog.ClassWarrior):  RoleFront,
			string(catalog.ClassTanker):   RoleFront,
			string(catalog.ClassAssassin): RoleFlex,
			string(catalog.ClassRanger):   RoleBack,
			string(catalog.ClassMage):     RoleBack,
			string(catalog.ClassSupport):  RoleBack,
			string(catalog.ClassSummoner): RoleBack,
		},
		CostTick:    time.Second,
		CostPerTick: 1,
	}
}

// RoleOf returns class's role. Keys are matched case-insensitively since
// viper lowercases map keys read from files.
func (c Config) RoleOf(class catalog.Class) Role {
	if r, ok := c.Roles[string(class)]; ok {
		return r
	}
	return c.Roles[strings.ToLower(string(class))]
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.HandSize <= 0 {
		errs = append(errs, errors.New("ai.hand_size must be > 0"))
	}
	if c.Throttle < 0 {
		errs = append(errs, errors.New("ai.throttle must be >= 0"))
	}
	if c.RowPenalty < 0 || c.RowPenalty > 1 {
		errs = append(errs, errors.New("ai.row_penalty must be within [0,1]"))
	}
	if c.CostTick <= 0 {
		errs = append(errs, errors.New("ai.cost_tick must be > 0"))
	}
	return errors.Join(errs...)
}
