package fury

// GainRule computes a raw gain: Base + crit/kill bonuses + round(TargetRatio *
// dealt / targetMaxHP), clamped to [Min, Max] when those are positive.
type GainRule struct {
	Base        int     `mapstructure:"base"`
	CritBonus   int     `mapstructure:"crit_bonus"`
	KillBonus   int     `mapstructure:"kill_bonus"`
	TargetRatio float64 `mapstructure:"target_ratio"`
	Min         int     `mapstructure:"min"`
	Max         int     `mapstructure:"max"`
}

// GainTable holds one rule per gain source.
type GainTable struct {
	TurnStart   GainRule `mapstructure:"turn_start"`
	Basic       GainRule `mapstructure:"basic"`
	Single      GainRule `mapstructure:"single"`
	AoE         GainRule `mapstructure:"aoe"`
	DamageTaken GainRule `mapstructure:"damage_taken"`
}

// Caps bound cumulative gain per scope. A value <= 0 disables that cap.
type Caps struct {
	Turn      int `mapstructure:"turn"`
	Skill     int `mapstructure:"skill"`
	Hit       int `mapstructure:"hit"`
	PerTarget int `mapstructure:"per_target"`
}

// Special overrides the meter size or ultimate cost for one unit id.
type Special struct {
	Max     int `mapstructure:"max"`
	UltCost int `mapstructure:"ult_cost"`
}

// DrainDefaults are used when a drain call leaves a field unset.
type DrainDefaults struct {
	Base    int     `mapstructure:"base"`
	Percent float64 `mapstructure:"percent"`
}

// Config is the fury tuning table.
type Config struct {
	Max        int                `mapstructure:"max"`
	UltCost    int                `mapstructure:"ult_cost"`
	SpecialMax map[string]Special `mapstructure:"special_max"`
	Caps       Caps               `mapstructure:"caps"`
	Gain       GainTable          `mapstructure:"gain"`
	Drain      DrainDefaults      `mapstructure:"drain"`
	// SpawnInitial is the starting fury of deck units.
	SpawnInitial int `mapstructure:"spawn_initial"`
	// ReviveInitial is the starting fury of revived units.
	ReviveInitial int `mapstructure:"revive_initial"`
}

// DefaultMax is used when Config.Max is unset.
const DefaultMax = 100

// DefaultTurnStart is the turn-start grant used when the table leaves it unset.
const DefaultTurnStart = 3

// DefaultConfig returns the stock tuning table.
func DefaultConfig() Config {
	return Config{
		Max:  DefaultMax,
		Caps: Caps{Turn: 40, Skill: 30, Hit: 20, PerTarget: 24},
		Gain: GainTable{
			TurnStart:   GainRule{Base: DefaultTurnStart},
			Basic:       GainRule{Base: 8, KillBonus: 4, TargetRatio: 20, Max: 20},
			Single:      GainRule{Base: 6, CritBonus: 2, KillBonus: 4, TargetRatio: 20, Max: 20},
			AoE:         GainRule{Base: 3, KillBonus: 2, TargetRatio: 10, Max: 10},
			DamageTaken: GainRule{Base: 2, TargetRatio: 40, Max: 20},
		},
		Drain: DrainDefaults{Base: 5, Percent: 0.1},
	}
}

// MaxFor returns the meter size for unitID.
//
// Postcondition: Returns > 0.
func (c Config) MaxFor(unitID string) int {
	if s, ok := c.SpecialMax[unitID]; ok && s.Max > 0 {
		return s.Max
	}
	if c.Max > 0 {
		return c.Max
	}
	return DefaultMax
}
