// Package catalog holds the static unit definitions consumed by the battle
// core: base stats, class, rank, deck cost and ability kit.
package catalog

import "errors"

// Class is a unit archetype.
type Class string

const (
	ClassWarrior  Class = "Warrior"
	ClassTanker   Class = "Tanker"
	ClassRanger   Class = "Ranger"
	ClassMage     Class = "Mage"
	ClassAssassin Class = "Assassin"
	ClassSupport  Class = "Support"
	ClassSummoner Class = "Summoner"
)

// Rank is a unit's tier. Leaders anchor each side; bosses gate PvE timeouts.
type Rank string

const (
	RankCommon Rank = "common"
	RankElite  Rank = "elite"
	RankBoss   Rank = "boss"
	RankLeader Rank = "leader"
	RankMinion Rank = "minion"
)

// ErrUnknownUnit is returned when a unit id is not in the catalog.
var ErrUnknownUnit = errors.New("unknown unit")

// Stats is a unit's stat block. ARM and RES are mitigation fractions in [0,1].
type Stats struct {
	HPMax   int     `yaml:"hp"`
	ATK     int     `yaml:"atk"`
	WIL     int     `yaml:"wil"`
	ARM     float64 `yaml:"arm"`
	RES     float64 `yaml:"res"`
	AGI     float64 `yaml:"agi"`
	PER     float64 `yaml:"per"`
	SPD     float64 `yaml:"spd"`
	AEMax   int     `yaml:"ae"`
	AERegen int     `yaml:"ae_regen"`
	HPRegen int     `yaml:"hp_regen"`
}

// Mods are per-unit numeric modifiers outside the stat block.
type Mods struct {
	// FuryGainBonus scales every fury gain by (1 + FuryGainBonus).
	FuryGainBonus float64 `yaml:"fury_gain_bonus"`
}

// Unit is the static definition of a summonable unit.
type Unit struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Class Class  `yaml:"class"`
	Rank  Rank   `yaml:"rank"`
	Cost  int    `yaml:"cost"`
	Color string `yaml:"color"`
	Stats Stats  `yaml:"stats"`
	Kit   Kit    `yaml:"kit"`
	Mods  Mods   `yaml:"mods"`
}

// IsLeader reports whether the unit is a side leader.
func (u *Unit) IsLeader() bool { return u.Rank == RankLeader }

// IsSummoner reports whether the unit is a Summoner with a usable summon kit.
func (u *Unit) IsSummoner() bool {
	if u.Class != ClassSummoner {
		return false
	}
	_, ok := u.Kit.Ult.Effect.(*Summon)
	return ok
}

// Deckable reports whether the unit may appear in a hand of cards.
func (u *Unit) Deckable() bool {
	return u.Rank != RankLeader && u.Rank != RankMinion
}
