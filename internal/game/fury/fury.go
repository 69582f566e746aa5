// Package fury implements the per-unit fury meter that gates ultimates, with
// independent per-turn, per-skill and per-hit gain caps.
//
// All arithmetic floors to integers and negative inputs clamp to 0.
package fury

import "math"

// GainType selects which rule of the gain table applies.
type GainType string

const (
	GainTurnStart   GainType = "turnStart"
	GainDamageTaken GainType = "damageTaken"
	GainBasic       GainType = "basic"
	GainAbility     GainType = "ability"
)

// Tracking is the cap bookkeeping attached to every meter.
type Tracking struct {
	TurnGain           int
	SkillGain          int
	HitGain            int
	TurnStamp          int
	SkillTag           string
	FreshSummon        bool
	SkillPerTargetGain int
	SkillDrain         int
}

// Meter is one unit's fury.
//
// Invariant: 0 <= Cur <= Max.
type Meter struct {
	Cur   int
	Max   int
	Track Tracking
}

// Initialize sizes the meter for unitID, sets the starting amount and marks the
// unit as a fresh summon.
//
// Postcondition: 0 <= Cur <= Max; Track is reset with FreshSummon == true.
func (m *Meter) Initialize(unitID string, initial int, cfg Config) {
	m.Max = cfg.MaxFor(unitID)
	m.Set(initial)
	m.Track = Tracking{TurnStamp: -1, FreshSummon: true}
}

// Set assigns the current amount clamped to [0, Max].
func (m *Meter) Set(v int) {
	m.Cur = clamp(v, 0, m.Max)
}

// Full reports whether the meter is at its maximum.
func (m *Meter) Full() bool { return m.Cur >= m.Max }

// ResolveUltCost returns the fury an ultimate costs for unitID: the per-unit
// override, else the global cost, else the meter size.
func ResolveUltCost(unitID string, m *Meter, cfg Config) int {
	if s, ok := cfg.SpecialMax[unitID]; ok && s.UltCost > 0 {
		return s.UltCost
	}
	if cfg.UltCost > 0 {
		return cfg.UltCost
	}
	return m.Max
}

// TurnOpts parameterises StartTurn.
type TurnOpts struct {
	Stamp       int
	GrantStart  bool
	StartAmount int // 0 uses the configured turn-start amount
}

// StartTurn opens a new turn window. The turn counter resets only when the
// stamp changes; skill and hit counters always reset. It returns the
// turn-start grant, if any.
func (m *Meter) StartTurn(opts TurnOpts, bonus float64, cfg Config) int {
	if m.Track.TurnStamp != opts.Stamp {
		m.Track.TurnStamp = opts.Stamp
		m.Track.TurnGain = 0
	}
	m.resetSkill()
	if !opts.GrantStart {
		return 0
	}
	return m.Gain(Spec{Type: GainTurnStart, Amount: opts.StartAmount}, bonus, cfg)
}

// StartSkill opens a new skill window when tag differs from the current one or
// force is set.
func (m *Meter) StartSkill(tag string, force bool) {
	if !force && m.Track.SkillTag == tag {
		return
	}
	m.Track.SkillTag = tag
	m.resetSkill()
}

func (m *Meter) resetSkill() {
	m.Track.SkillGain = 0
	m.Track.HitGain = 0
	m.Track.SkillPerTargetGain = 0
	m.Track.SkillDrain = 0
}

// FinishHit closes the current hit window.
func (m *Meter) FinishHit() { m.Track.HitGain = 0 }

// MarkFreshSummon makes the unit immune to Drain.
func (m *Meter) MarkFreshSummon() { m.Track.FreshSummon = true }

// ClearFreshSummon ends drain immunity.
func (m *Meter) ClearFreshSummon() { m.Track.FreshSummon = false }

// Spec describes one gain event.
type Spec struct {
	Type        GainType
	Amount      int // explicit amount for turnStart; ignored otherwise
	Dealt       int
	TargetMaxHP int
	Crit        bool
	Kill        bool
	IsAoE       bool
	TargetsHit  int
	Bonus       int
	Multiplier  float64
}

func (s Spec) aoe() bool { return s.IsAoE || s.TargetsHit > 1 }

// Raw returns the uncapped gain described by s.
//
// Postcondition: Returns >= 0.
func Raw(s Spec, cfg Config) int {
	var rule GainRule
	switch s.Type {
	case GainTurnStart:
		if s.Amount > 0 {
			return s.Amount
		}
		if cfg.Gain.TurnStart.Base > 0 {
			return cfg.Gain.TurnStart.Base
		}
		return DefaultTurnStart
	case GainDamageTaken:
		rule = cfg.Gain.DamageTaken
	default:
		switch {
		case s.aoe():
			rule = cfg.Gain.AoE
		case s.Type == GainBasic:
			rule = cfg.Gain.Basic
		default:
			rule = cfg.Gain.Single
		}
	}
	v := rule.Base
	if s.Crit {
		v += rule.CritBonus
	}
	if s.Kill {
		v += rule.KillBonus
	}
	if s.TargetMaxHP > 0 && s.Dealt > 0 {
		v += int(math.Round(rule.TargetRatio * float64(s.Dealt) / float64(s.TargetMaxHP)))
	}
	if rule.Min > 0 && v < rule.Min {
		v = rule.Min
	}
	if rule.Max > 0 && v > rule.Max {
		v = rule.Max
	}
	v += s.Bonus
	if s.Multiplier > 0 {
		v = int(math.Floor(float64(v) * s.Multiplier))
	}
	return max(0, v)
}

// Gain awards fury for s. The raw amount is scaled by (1+bonus), clamped to the
// smallest remaining turn/skill/hit room (and per-target room for AoE awards),
// then to the meter's headroom.
//
// Postcondition: returns the amount actually gained, >= 0; 0 <= Cur <= Max; every
// scope counter stays within its cap.
func (m *Meter) Gain(s Spec, bonus float64, cfg Config) int {
	amt := Raw(s, cfg)
	// The bonus scales the raw gain; the caps below still bound the result.
	if bonus != 0 {
		amt = int(math.Floor(float64(amt) * math.Max(0, 1+bonus)))
	}
	amt = min(amt, m.room(cfg.Caps, s.aoe()), m.Max-m.Cur)
	if amt <= 0 {
		return 0
	}
	m.Cur += amt
	m.Track.TurnGain += amt
	m.Track.SkillGain += amt
	m.Track.HitGain += amt
	if s.aoe() {
		m.Track.SkillPerTargetGain += amt
	}
	return amt
}

func (m *Meter) room(c Caps, aoe bool) int {
	r := math.MaxInt
	if c.Turn > 0 {
		r = min(r, c.Turn-m.Track.TurnGain)
	}
	if c.Skill > 0 {
		r = min(r, c.Skill-m.Track.SkillGain)
	}
	if c.Hit > 0 {
		r = min(r, c.Hit-m.Track.HitGain)
	}
	if aoe && c.PerTarget > 0 {
		r = min(r, c.PerTarget-m.Track.SkillPerTargetGain)
	}
	return max(0, r)
}

// Spend removes up to amount fury.
//
// Postcondition: returns the amount spent, in [0, previous Cur].
func (m *Meter) Spend(amount int) int {
	n := clamp(amount, 0, m.Cur)
	m.Cur -= n
	return n
}

// DrainOpts parameterises Drain. Zero Base and Percent use the configured
// defaults; SkillTotalCap <= 0 disables the per-skill cap.
type DrainOpts struct {
	Base          int
	Percent       float64
	SkillTotalCap int
}

// Drain removes base + round(target.Cur * percent) fury from target. The
// source gains nothing. Fresh summons are immune.
//
// Postcondition: returns the amount drained, in [0, target's previous Cur];
// source.Track.SkillDrain never exceeds SkillTotalCap when that cap is set.
func Drain(source, target *Meter, opts DrainOpts, cfg Config) int {
	if target == nil || target.Track.FreshSummon {
		return 0
	}
	base := opts.Base
	if base == 0 {
		base = cfg.Drain.Base
	}
	pct := opts.Percent
	if pct == 0 {
		pct = cfg.Drain.Percent
	}
	want := max(0, base) + int(math.Round(float64(target.Cur)*math.Max(0, pct)))
	if source != nil && opts.SkillTotalCap > 0 {
		want = min(want, max(0, opts.SkillTotalCap-source.Track.SkillDrain))
	}
	n := target.Spend(want)
	if source != nil {
		source.Track.SkillDrain += n
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
