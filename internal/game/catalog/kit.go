package catalog

// Event names a point in a unit's activation at which passives fire.
type Event string

const (
	OnSpawn     Event = "onSpawn"
	OnTurnStart Event = "onTurnStart"
	OnBasicHit  Event = "onBasicHit"
	OnUltCast   Event = "onUltCast"
	OnActionEnd Event = "onActionEnd"
)

// EffectKind selects what a passive effect does.
type EffectKind string

const (
	EffectStatus     EffectKind = "status"
	EffectBasicScale EffectKind = "basic_scale"
	EffectBasicFlat  EffectKind = "basic_flat"
	EffectFury       EffectKind = "fury"
	EffectHeal       EffectKind = "heal"
	EffectShield     EffectKind = "shield"
	EffectScript     EffectKind = "script"
)

// StatusSpec describes a status to attach. Zero fields fall back to the
// defaults of the well-known status with the same id.
type StatusSpec struct {
	ID        string  `yaml:"id"`
	Kind      string  `yaml:"kind"`
	Tag       string  `yaml:"tag"`
	Turns     int     `yaml:"turns"`
	Stacks    int     `yaml:"stacks"`
	MaxStacks int     `yaml:"max_stacks"`
	Power     float64 `yaml:"power"`
	Amount    int     `yaml:"amount"`
	Attr      string  `yaml:"attr"`
	Mode      string  `yaml:"mode"`
	Purgeable *bool   `yaml:"purgeable"`
	Permanent bool    `yaml:"permanent"`
}

// Effect is one passive effect.
type Effect struct {
	Kind   EffectKind `yaml:"kind"`
	Target string     `yaml:"target"` // "self" (default) or "target"
	Status StatusSpec `yaml:"status"`
	Scale  float64    `yaml:"scale"`
	Amount int        `yaml:"amount"`
	Ratio  float64    `yaml:"ratio"`
	Script string     `yaml:"script"`
}

// Passive binds effects to an activation event.
type Passive struct {
	ID      string   `yaml:"id"`
	When    Event    `yaml:"when"`
	Chance  float64  `yaml:"chance"` // 0 = always
	Effects []Effect `yaml:"effects"`
}

// Basic tunes the basic attack.
type Basic struct {
	// Followups overrides the class/default follow-up cap when > 0.
	Followups int `yaml:"followups"`
}

// OnSpawnConfig lists what a unit applies to itself when it enters the board.
type OnSpawnConfig struct {
	Statuses []StatusSpec `yaml:"statuses"`
	Fury     int          `yaml:"fury"`
}

// Kit is a unit's ability kit.
type Kit struct {
	Basic    Basic         `yaml:"basic"`
	Ult      UltSpec       `yaml:"ult"`
	OnSpawn  OnSpawnConfig `yaml:"on_spawn"`
	Passives []Passive     `yaml:"passives"`
}

// PassivesFor returns the passives that fire on ev, in declaration order.
func (k *Kit) PassivesFor(ev Event) []Passive {
	var out []Passive
	for _, p := range k.Passives {
		if p.When == ev {
			out = append(out, p)
		}
	}
	return out
}

// Traits summarises kit properties used by the placement AI.
type Traits struct {
	Instant bool
	Defense bool
	Revive  bool
}

// Traits derives placement traits from the kit's ultimate.
func (k *Kit) Traits() Traits {
	var t Traits
	switch k.Ult.Effect.(type) {
	case *Drain, *HPTradeBurst, *StrikeLaneMid, *Sleep:
		t.Instant = true
	case *SelfBuff, *EqualizeHP, *Haste:
		t.Defense = true
	case *Revive:
		t.Revive = true
	}
	for _, s := range k.OnSpawn.Statuses {
		if s.ID == "shield" || s.ID == "dmgCut" || s.ID == "taunt" {
			t.Defense = true
		}
	}
	return t
}
