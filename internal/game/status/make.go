package status

import "github.com/cory-johannsen/gridbattle/internal/game/catalog"

// Spec overrides a factory's defaults. Zero fields keep the default.
type Spec struct {
	Turns  int
	Power  float64
	Amount int
	Stacks int
}

func (s Spec) turns(def int) int {
	if s.Turns > 0 {
		return s.Turns
	}
	return def
}

func (s Spec) power(def float64) float64 {
	if s.Power != 0 {
		return s.Power
	}
	return def
}

func turnStatus(id string, kind Kind, tag Tag, dur int) Status {
	return Status{ID: id, Kind: kind, Tag: tag, Dur: dur, Stacks: 1, Purgeable: true, Tick: TickTurn}
}

// Stun prevents the unit from acting.
func Stun(s Spec) Status { return turnStatus(IDStun, Debuff, TagControl, s.turns(1)) }

// Sleep prevents the unit from acting.
func Sleep(s Spec) Status { return turnStatus(IDSleep, Debuff, TagControl, s.turns(1)) }

// Taunt forces basic attacks onto the unit.
func Taunt(s Spec) Status { return turnStatus(IDTaunt, Buff, TagControl, s.turns(1)) }

// Reflect returns Power of damage dealt to the unit back to the attacker.
func Reflect(s Spec) Status {
	st := turnStatus(IDReflect, Buff, TagCounter, s.turns(2))
	st.Power = s.power(0.2)
	return st
}

// Bleed deals 5% of max HP at the end of each of the unit's turns.
func Bleed(s Spec) Status { return turnStatus(IDBleed, Debuff, TagDot, s.turns(2)) }

// DamageCut reduces incoming damage by Power.
func DamageCut(s Spec) Status {
	st := turnStatus(IDDamageCut, Buff, TagMitigation, s.turns(2))
	st.Power = s.power(0.2)
	return st
}

// Fatigue lowers outgoing damage by 10%.
func Fatigue(s Spec) Status { return turnStatus(IDFatigue, Debuff, TagOutput, s.turns(2)) }

// Silence blocks ultimates.
func Silence(s Spec) Status { return turnStatus(IDSilence, Debuff, TagSilence, s.turns(1)) }

// Shield absorbs Amount damage and never expires on its own.
func Shield(s Spec) Status {
	return Status{ID: IDShield, Kind: Buff, Tag: TagShield, Stacks: 1, Amount: s.Amount, Purgeable: true, Tick: TickNone}
}

// Exalt raises outgoing damage by 10%.
func Exalt(s Spec) Status { return turnStatus(IDExalt, Buff, TagOutput, s.turns(2)) }

// Pierce ignores Power of the target's armor or resist.
func Pierce(s Spec) Status {
	st := turnStatus(IDPierce, Buff, TagPenetration, s.turns(2))
	st.Power = s.power(0.1)
	return st
}

// Daze lowers SPD and AGI by 10%.
func Daze(s Spec) Status { return turnStatus(IDDaze, Debuff, TagStat, s.turns(1)) }

// Frenzy raises basic attack damage by 20%.
func Frenzy(s Spec) Status { return turnStatus(IDFrenzy, Buff, TagBasicBoost, s.turns(2)) }

// Weaken lowers outgoing damage by 10% per stack, up to 5 stacks.
func Weaken(s Spec) Status {
	st := turnStatus(IDWeaken, Debuff, TagOutput, s.turns(2))
	st.MaxStacks = 5
	if s.Stacks > 0 {
		st.Stacks = s.Stacks
	}
	return st
}

// Fear lowers SPD and outgoing damage by 10%.
func Fear(s Spec) Status { return turnStatus(IDFear, Debuff, TagOutput, s.turns(1)) }

// Stealth makes the unit immune to damage.
func Stealth(s Spec) Status { return turnStatus(IDStealth, Buff, TagInvuln, s.turns(1)) }

// Venom adds Power of damage dealt as extra damage.
func Venom(s Spec) Status {
	st := turnStatus(IDVenom, Buff, TagOnHit, s.turns(2))
	st.Power = s.power(0.15)
	return st
}

// Execute finishes targets at or below 10% HP.
func Execute(s Spec) Status { return turnStatus(IDExecute, Buff, TagExecute, s.turns(2)) }

// Undying survives one lethal hit at 1 HP and is consumed.
func Undying(Spec) Status {
	return Status{ID: IDUndying, Kind: Buff, Tag: TagCheatDeath, Stacks: 1, Purgeable: false, Tick: TickNone}
}

// Allure diverts basic attacks away from the unit.
func Allure(s Spec) Status { return turnStatus(IDAllure, Buff, TagAvoidBasic, s.turns(1)) }

// Haste raises SPD by Power.
func Haste(s Spec) Status {
	st := turnStatus(IDHaste, Buff, TagStat, s.turns(2))
	st.Power = s.power(0.2)
	return st
}

var factories = map[string]func(Spec) Status{
	IDStun: Stun, IDSleep: Sleep, IDTaunt: Taunt, IDReflect: Reflect, IDBleed: Bleed,
	IDDamageCut: DamageCut, IDFatigue: Fatigue, IDSilence: Silence, IDShield: Shield,
	IDExalt: Exalt, IDPierce: Pierce, IDDaze: Daze, IDFrenzy: Frenzy, IDWeaken: Weaken,
	IDFear: Fear, IDStealth: Stealth, IDVenom: Venom, IDExecute: Execute, IDUndying: Undying,
	IDAllure: Allure, IDHaste: Haste,
}

// FromSpec builds a Status from a catalog spec, starting from the well-known
// factory defaults when the id matches one.
func FromSpec(cs catalog.StatusSpec) Status {
	var st Status
	if f, ok := factories[cs.ID]; ok {
		st = f(Spec{Turns: cs.Turns, Power: cs.Power, Amount: cs.Amount, Stacks: cs.Stacks})
	} else {
		st = Status{ID: cs.ID, Kind: Buff, Tag: TagStat, Dur: cs.Turns, Stacks: 1,
			Power: cs.Power, Amount: cs.Amount, Purgeable: true, Tick: TickTurn}
	}
	if cs.Kind != "" {
		st.Kind = Kind(cs.Kind)
	}
	if cs.Tag != "" {
		st.Tag = Tag(cs.Tag)
	}
	if cs.Stacks > 0 {
		st.Stacks = cs.Stacks
	}
	if cs.MaxStacks > 0 {
		st.MaxStacks = cs.MaxStacks
	}
	if cs.Attr != "" {
		st.Attr = cs.Attr
	}
	if cs.Mode != "" {
		st.Mode = Mode(cs.Mode)
	}
	if cs.Purgeable != nil {
		st.Purgeable = *cs.Purgeable
	}
	if cs.Permanent {
		st.Tick = TickNone
		st.Dur = 0
	}
	return st
}
