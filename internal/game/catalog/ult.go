package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UltType names an ultimate archetype.
type UltType string

const (
	UltNone          UltType = ""
	UltDrain         UltType = "drain"
	UltHPTradeBurst  UltType = "hpTradeBurst"
	UltStrikeLaneMid UltType = "strikeLaneMid"
	UltSelfBuff      UltType = "selfBuff"
	UltSleep         UltType = "sleep"
	UltRevive        UltType = "revive"
	UltEqualizeHP    UltType = "equalizeHP"
	UltHaste         UltType = "haste"
	UltSummon        UltType = "summon"
)

// Ult is one ultimate archetype with its typed parameters.
type Ult interface {
	Type() UltType
}

// Drain deals arcane damage to every living foe scaled by WIL*Power and heals
// the caster for the total; overflow becomes a shield. With FuryDrain set each
// foe hit also loses fury.
type Drain struct {
	Power     float64 `yaml:"power"`
	FuryDrain bool    `yaml:"fury_drain"`
}

// HPTradeBurst pays HP to strike up to Hits foes for a share of each target's
// max HP, slows each target and then reduces incoming damage for Turns.
type HPTradeBurst struct {
	HPTradePercent     float64 `yaml:"hp_trade_percent"`
	Hits               int     `yaml:"hits"`
	PercentTargetMaxHP float64 `yaml:"percent_target_max_hp"`
	BossPercent        float64 `yaml:"boss_percent"`
	ScaleWIL           float64 `yaml:"scale_wil"`
	Flat               int     `yaml:"flat"`
	SlowPower          float64 `yaml:"slow_power"`
	SlowTurns          int     `yaml:"slow_turns"`
	SlowMaxStacks      int     `yaml:"slow_max_stacks"`
	ReduceDmg          float64 `yaml:"reduce_dmg"`
	Turns              int     `yaml:"turns"`
}

// StrikeLaneMid hits every foe in the primary target's column Hits times.
type StrikeLaneMid struct {
	Hits        int     `yaml:"hits"`
	ScaleATK    float64 `yaml:"scale_atk"`
	ScaleWIL    float64 `yaml:"scale_wil"`
	LeaderBonus float64 `yaml:"leader_bonus"`
	PenRES      float64 `yaml:"pen_res"`
}

// SelfBuff pays HP and grants the caster damage reduction.
type SelfBuff struct {
	HPTradePercent float64 `yaml:"hp_trade_percent"`
	ReduceDmg      float64 `yaml:"reduce_dmg"`
	Turns          int     `yaml:"turns"`
}

// Sleep puts up to Targets nearest foes to sleep.
type Sleep struct {
	Targets int `yaml:"targets"`
	Turns   int `yaml:"turns"`
}

// Revive raises up to Targets most recently fallen allies.
type Revive struct {
	Targets   int     `yaml:"targets"`
	HPPercent float64 `yaml:"hp_percent"`
	// Fury is the revived unit's starting fury; negative uses the configured default.
	Fury      int `yaml:"fury"`
	LockTurns int `yaml:"lock_turns"`
}

// EqualizeHP lifts the lowest allies to the highest HP ratio among them.
type EqualizeHP struct {
	Allies        int  `yaml:"allies"`
	IncludeLeader bool `yaml:"include_leader"`
}

// Haste speeds the caster and up to Targets allies.
type Haste struct {
	Targets    int     `yaml:"targets"`
	Power      float64 `yaml:"power"`
	Turns      int     `yaml:"turns"`
	BasicBonus float64 `yaml:"basic_bonus"`
}

// Inherit lists the fractions of the caster's stats a minion receives.
type Inherit struct {
	HP  float64 `yaml:"hp"`
	ATK float64 `yaml:"atk"`
	WIL float64 `yaml:"wil"`
	ARM float64 `yaml:"arm"`
	RES float64 `yaml:"res"`
}

// Creep names the minion a Summoner produces.
type Creep struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// SummonPattern selects candidate slots around the caster.
type SummonPattern string

const (
	PatternVerticalNeighbors SummonPattern = "verticalNeighbors"
	PatternRowNeighbors      SummonPattern = "rowNeighbors"
	PatternAnyFree           SummonPattern = "anyFree"
)

// Summon spawns minions next to a Summoner within the same activation.
type Summon struct {
	Pattern SummonPattern `yaml:"pattern"`
	Count   int           `yaml:"count"`
	TTL     int           `yaml:"ttl"`
	Limit   int           `yaml:"limit"`
	Replace string        `yaml:"replace"` // "oldest" or ""
	Inherit Inherit       `yaml:"inherit"`
	Creep   Creep         `yaml:"creep"`
}

// Generic is an ultimate with no special effect.
type Generic struct {
	Name string `yaml:"name"`
}

func (*Drain) Type() UltType         { return UltDrain }
func (*HPTradeBurst) Type() UltType  { return UltHPTradeBurst }
func (*StrikeLaneMid) Type() UltType { return UltStrikeLaneMid }
func (*SelfBuff) Type() UltType      { return UltSelfBuff }
func (*Sleep) Type() UltType         { return UltSleep }
func (*Revive) Type() UltType        { return UltRevive }
func (*EqualizeHP) Type() UltType    { return UltEqualizeHP }
func (*Haste) Type() UltType         { return UltHaste }
func (*Summon) Type() UltType        { return UltSummon }
func (*Generic) Type() UltType       { return UltNone }

// UltSpec wraps the decoded ultimate variant.
type UltSpec struct {
	Effect Ult
}

// Type returns the wrapped variant's type, or UltNone when unset.
func (s UltSpec) Type() UltType {
	if s.Effect == nil {
		return UltNone
	}
	return s.Effect.Type()
}

// newUlt returns a variant pre-populated with defaults for t.
func newUlt(t UltType) (Ult, error) {
	switch t {
	case UltDrain:
		return &Drain{Power: 1.0}, nil
	case UltHPTradeBurst:
		return &HPTradeBurst{
			HPTradePercent: 0.15, Hits: 3, PercentTargetMaxHP: 0.08, BossPercent: 0.04,
			ScaleWIL: 0.5, SlowPower: 0.1, SlowTurns: 2, SlowMaxStacks: 3, ReduceDmg: 0.3, Turns: 2,
		}, nil
	case UltStrikeLaneMid:
		return &StrikeLaneMid{Hits: 1, ScaleWIL: 1.0, LeaderBonus: 1.2}, nil
	case UltSelfBuff:
		return &SelfBuff{HPTradePercent: 0.1, ReduceDmg: 0.35, Turns: 2}, nil
	case UltSleep:
		return &Sleep{Targets: 2, Turns: 1}, nil
	case UltRevive:
		return &Revive{Targets: 1, HPPercent: 0.5, Fury: -1}, nil
	case UltEqualizeHP:
		return &EqualizeHP{Allies: 3}, nil
	case UltHaste:
		return &Haste{Targets: 2, Power: 0.2, Turns: 2, BasicBonus: 0.2}, nil
	case UltSummon:
		return &Summon{
			Pattern: PatternVerticalNeighbors, Count: 2, TTL: 3, Limit: 2, Replace: "oldest",
			Inherit: Inherit{HP: 0.5, ATK: 0.5, WIL: 0.5},
		}, nil
	case UltNone, "generic":
		return &Generic{}, nil
	default:
		return nil, fmt.Errorf("unknown ult type %q", t)
	}
}

// UnmarshalYAML decodes the `type` discriminator and then the variant fields.
func (s *UltSpec) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type UltType `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	u, err := newUlt(head.Type)
	if err != nil {
		return err
	}
	// Strip the discriminator so the variant does not need a type field.
	body := *node
	body.Content = nil
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "type" {
			continue
		}
		body.Content = append(body.Content, node.Content[i], node.Content[i+1])
	}
	if err := body.Decode(u); err != nil {
		return fmt.Errorf("decoding %s ult: %w", head.Type, err)
	}
	s.Effect = u
	return nil
}

// NewUltSpec returns a spec of type t with defaults applied.
//
// Postcondition: returns an error only for unknown types.
func NewUltSpec(t UltType) (UltSpec, error) {
	u, err := newUlt(t)
	if err != nil {
		return UltSpec{}, err
	}
	return UltSpec{Effect: u}, nil
}
