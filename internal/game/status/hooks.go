package status

import (
	"math"

	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
)

// AttackType distinguishes basic attacks from ability damage.
type AttackType string

const (
	AttackBasic   AttackType = "basic"
	AttackAbility AttackType = "ability"
)

// DamageType selects the offense and defense stats used for mitigation.
type DamageType string

const (
	Physical DamageType = "physical"
	Arcane   DamageType = "arcane"
)

// Action is an activation kind that statuses may block.
type Action string

const (
	ActionUlt   Action = "ult"
	ActionBasic Action = "basic"
)

// CanAct reports whether the unit may act this activation.
//
// Postcondition: false iff stun or sleep is present.
func CanAct(s *Set) bool {
	if s == nil {
		return true
	}
	return !s.Has(IDStun) && !s.Has(IDSleep)
}

// Blocks reports whether a status prevents action a.
func Blocks(s *Set, a Action) bool {
	if s == nil {
		return false
	}
	switch a {
	case ActionUlt:
		return s.Has(IDSilence)
	default:
		return false
	}
}

// Target is anything that can be picked by ResolveTarget.
type Target interface {
	StatusSet() *Set
	Position() board.Cell
}

// ResolveTarget applies allure and taunt to basic-attack target selection.
// Allure-bearing candidates are dropped unless that empties the pool; then the
// nearest taunting candidate (Manhattan) is returned.
//
// Postcondition: ok is false when no taunting candidate exists; the caller
// falls back to its default targeting.
func ResolveTarget[T Target](attacker T, candidates []T, at AttackType) (target T, ok bool) {
	pool := candidates
	if at == AttackBasic {
		var filtered []T
		for _, c := range candidates {
			if !c.StatusSet().Has(IDAllure) {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	from := attacker.Position()
	best := -1
	for _, c := range pool {
		if !c.StatusSet().Has(IDTaunt) {
			continue
		}
		d := board.Manhattan(from, c.Position())
		if best < 0 || d < best {
			best = d
			target = c
			ok = true
		}
	}
	return target, ok
}

// ModifyStats returns base with status multipliers applied. base is not mutated.
func ModifyStats(s *Set, base catalog.Stats) catalog.Stats {
	out := base
	if s == nil {
		return out
	}
	if s.Has(IDDaze) {
		out.SPD *= 0.9
		out.AGI *= 0.9
	}
	if s.Has(IDFear) {
		out.SPD *= 0.9
	}
	if h, ok := s.Get(IDHaste); ok {
		out.SPD *= 1 + h.Power
	}
	for _, st := range s.All() {
		if st.Tag != TagStat || st.Attr == "" || st.ID == IDHaste || st.ID == IDDaze {
			continue
		}
		applyStat(&out, st)
	}
	return out
}

func applyStat(out *catalog.Stats, st *Status) {
	sign := 1.0
	if st.Kind == Debuff {
		sign = -1
	}
	mag := sign * st.Power * float64(st.Stacks)
	apply := func(v float64) float64 {
		if st.Mode == Flat {
			return v + mag
		}
		return v * math.Max(0, 1+mag)
	}
	switch st.Attr {
	case "atk":
		out.ATK = int(math.Floor(apply(float64(out.ATK))))
	case "wil":
		out.WIL = int(math.Floor(apply(float64(out.WIL))))
	case "arm":
		out.ARM = clamp01(apply(out.ARM))
	case "res":
		out.RES = clamp01(apply(out.RES))
	case "agi":
		out.AGI = apply(out.AGI)
	case "per":
		out.PER = apply(out.PER)
	case "spd":
		out.SPD = math.Max(0, apply(out.SPD))
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// DamageContext carries one damage computation through the hook pipeline.
type DamageContext struct {
	AttackType AttackType
	DType      DamageType
	Base       int
	OutMul     float64
	InMul      float64
	DefPen     float64
	IgnoreAll  bool
}

// BeforeDamage computes the attacker-side and target-side multipliers and the
// status-derived defense penetration.
//
// Postcondition: OutMul > 0; InMul >= 0; DefPen in [0,1]; IgnoreAll implies InMul == 0.
func BeforeDamage(attacker, target *Set, ctx DamageContext) DamageContext {
	out := 1.0
	in := 1.0
	defPen := 0.0
	ignore := false
	if attacker != nil {
		if attacker.Has(IDFatigue) {
			out *= 0.9
		}
		if attacker.Has(IDExalt) {
			out *= 1.1
		}
		if ctx.AttackType == AttackBasic {
			if attacker.Has(IDFrenzy) {
				out *= 1.2
			}
			for _, st := range attacker.All() {
				if st.Tag == TagBasicBoost && st.ID != IDFrenzy {
					out *= 1 + st.Power
				}
			}
		}
		if n := attacker.Stacks(IDWeaken); n > 0 {
			out *= 1 - 0.1*float64(min(5, n))
		}
		if attacker.Has(IDFear) {
			out *= 0.9
		}
		if p, ok := attacker.Get(IDPierce); ok {
			defPen = clamp01(p.Power)
		}
	}
	if target != nil {
		for _, st := range target.All() {
			if st.Tag == TagMitigation {
				in *= 1 - clamp01(st.Power)
			}
		}
		if target.Has(IDStealth) {
			in = 0
			ignore = true
		}
	}
	ctx.OutMul = out
	ctx.InMul = in
	ctx.DefPen = defPen
	ctx.IgnoreAll = ignore
	return ctx
}

// ShieldResult reports how a hit was split between shield and HP.
type ShieldResult struct {
	Remain   int
	Absorbed int
	Broke    bool
}

// AbsorbShield routes dmg through the target's shield.
//
// Postcondition: Remain + Absorbed == dmg; Absorbed <= shield amount before the call.
// The shield status is removed when its amount reaches 0.
func AbsorbShield(target *Set, dmg int) ShieldResult {
	if dmg < 0 {
		dmg = 0
	}
	if target == nil {
		return ShieldResult{Remain: dmg}
	}
	sh, ok := target.Get(IDShield)
	if !ok || sh.Amount <= 0 {
		return ShieldResult{Remain: dmg}
	}
	absorbed := min(sh.Amount, dmg)
	sh.Amount -= absorbed
	broke := false
	if sh.Amount <= 0 {
		target.Remove(IDShield)
		broke = true
	}
	return ShieldResult{Remain: dmg - absorbed, Absorbed: absorbed, Broke: broke}
}

// ShieldAmount returns the remaining shield on s.
func ShieldAmount(s *Set) int {
	if sh, ok := s.Get(IDShield); ok {
		return sh.Amount
	}
	return 0
}

// Hit describes a resolved hit for AfterDamage.
type Hit struct {
	Dealt       int
	TargetHP    int
	TargetHPMax int
}

// Aftermath lists the follow-on effects of a hit for the caller to apply.
type Aftermath struct {
	Reflect int
	Venom   int
	Execute bool
}

// AfterDamage computes reflect, venom and execute triggers for a resolved hit.
//
// Postcondition: Reflect, Venom >= 0.
func AfterDamage(attacker, target *Set, hit Hit) Aftermath {
	var am Aftermath
	dealt := max(0, hit.Dealt)
	if target != nil {
		if r, ok := target.Get(IDReflect); ok {
			am.Reflect = int(math.Floor(float64(dealt) * r.Power))
		}
	}
	if attacker != nil {
		if v, ok := attacker.Get(IDVenom); ok {
			am.Venom = int(math.Floor(float64(dealt) * v.Power))
		}
		if attacker.Has(IDExecute) && hit.TargetHP > 0 && float64(hit.TargetHP) <= 0.1*float64(hit.TargetHPMax) {
			am.Execute = true
		}
	}
	return am
}

// CheatDeath consumes undying if present.
//
// Postcondition: returns true iff undying was present; it is removed.
func CheatDeath(s *Set) bool {
	if s == nil || !s.Has(IDUndying) {
		return false
	}
	s.Remove(IDUndying)
	return true
}

// OnTurnStart is the turn-start hook. No status currently reacts to it.
func OnTurnStart(*Set) {}

// TurnEnd reports what happened at a unit's turn end.
type TurnEnd struct {
	Bleed   int
	Expired []string
}

// OnTurnEnd computes bleed damage (5% of hpMax, rounded) and decrements every
// turn-ticked status, removing those that reach 0. The caller applies Bleed.
//
// Postcondition: every id in Expired is no longer present.
func OnTurnEnd(s *Set, hpMax int) TurnEnd {
	var te TurnEnd
	if s == nil {
		return te
	}
	if s.Has(IDBleed) {
		te.Bleed = int(math.Round(0.05 * float64(hpMax)))
	}
	for _, st := range s.All() {
		if st.Tick != TickTurn {
			continue
		}
		st.Dur--
		if st.Dur <= 0 {
			te.Expired = append(te.Expired, st.ID)
			s.Remove(st.ID)
		}
	}
	return te
}
