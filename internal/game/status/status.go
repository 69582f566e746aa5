// Package status implements the per-unit status effect table: buffs and
// debuffs keyed by id, with stacking, turn-based expiry and the damage
// pipeline hooks consumed by the combat resolver.
package status

// Kind separates beneficial from harmful effects.
type Kind string

const (
	Buff   Kind = "buff"
	Debuff Kind = "debuff"
)

// Tag is the semantic category of a status.
type Tag string

const (
	TagControl     Tag = "control"
	TagDot         Tag = "dot"
	TagShield      Tag = "shield"
	TagStat        Tag = "stat"
	TagMitigation  Tag = "mitigation"
	TagPenetration Tag = "penetration"
	TagOutput      Tag = "output"
	TagOnHit       Tag = "on-hit"
	TagExecute     Tag = "execute"
	TagCheatDeath  Tag = "cheat-death"
	TagCounter     Tag = "counter"
	TagAvoidBasic  Tag = "avoid-basic"
	TagInvuln      Tag = "invuln"
	TagBasicBoost  Tag = "basic-boost"
	TagSilence     Tag = "silence"
	TagMark        Tag = "mark"
)

// Mode selects how a stat-tag status applies its Power.
type Mode string

const (
	Percent Mode = "percent"
	Flat    Mode = "flat"
)

// Tick is the expiry cadence of a status. TickNone statuses never expire on
// their own.
type Tick string

const (
	TickNone Tick = ""
	TickTurn Tick = "turn"
)

// Well-known status ids.
const (
	IDStun      = "stun"
	IDSleep     = "sleep"
	IDTaunt     = "taunt"
	IDReflect   = "reflect"
	IDBleed     = "bleed"
	IDDamageCut = "dmgCut"
	IDFatigue   = "fatigue"
	IDSilence   = "silence"
	IDShield    = "shield"
	IDExalt     = "exalt"
	IDPierce    = "pierce"
	IDDaze      = "daze"
	IDFrenzy    = "frenzy"
	IDWeaken    = "weaken"
	IDFear      = "fear"
	IDStealth   = "stealth"
	IDVenom     = "venom"
	IDExecute   = "execute"
	IDUndying   = "undying"
	IDAllure    = "allure"
	IDHaste     = "haste"
)

// Status is one effect attached to a unit.
type Status struct {
	ID        string
	Kind      Kind
	Tag       Tag
	Dur       int
	Stacks    int
	MaxStacks int // 0 = unbounded
	Power     float64
	Amount    int
	Attr      string
	Mode      Mode
	Purgeable bool
	Tick      Tick
}

// Set holds the statuses active on one unit, at most one per id. Iteration
// order is insertion order.
// It is not safe for concurrent use; the caller must serialise access.
type Set struct {
	entries map[string]*Status
	order   []string
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{entries: make(map[string]*Status)}
}

// Add attaches st, merging with an existing status of the same id.
//
// On merge: stacks become min(MaxStacks, existing+new); Dur is overwritten when
// st.Dur > 0; Amount accumulates; Power is overwritten when st.Power != 0.
// Otherwise a copy of st is stored with Stacks defaulted to 1.
//
// Postcondition: exactly one entry with st.ID exists.
func (s *Set) Add(st Status) {
	add := st.Stacks
	if add <= 0 {
		add = 1
	}
	if existing, ok := s.entries[st.ID]; ok {
		maxStacks := existing.MaxStacks
		if st.MaxStacks > 0 {
			maxStacks = st.MaxStacks
			existing.MaxStacks = st.MaxStacks
		}
		stacks := existing.Stacks + add
		if maxStacks > 0 && stacks > maxStacks {
			stacks = maxStacks
		}
		existing.Stacks = stacks
		if st.Dur > 0 {
			existing.Dur = st.Dur
		}
		if st.Power != 0 {
			existing.Power = st.Power
		}
		existing.Amount += st.Amount
		return
	}
	cp := st
	cp.Stacks = add
	if cp.MaxStacks > 0 && cp.Stacks > cp.MaxStacks {
		cp.Stacks = cp.MaxStacks
	}
	s.entries[cp.ID] = &cp
	s.order = append(s.order, cp.ID)
}

// Remove deletes the status with id. Absent ids are a no-op.
//
// Postcondition: Has(id) is false.
func (s *Set) Remove(id string) {
	if _, ok := s.entries[id]; !ok {
		return
	}
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Has reports whether a status with id is active.
func (s *Set) Has(id string) bool {
	_, ok := s.entries[id]
	return ok
}

// Get returns the live status with id.
func (s *Set) Get(id string) (*Status, bool) {
	st, ok := s.entries[id]
	return st, ok
}

// Stacks returns the stack count of id, or 0 if absent.
func (s *Set) Stacks(id string) int {
	if st, ok := s.entries[id]; ok {
		return st.Stacks
	}
	return 0
}

// Purge clears every status.
//
// Postcondition: Len() == 0.
func (s *Set) Purge() {
	s.entries = make(map[string]*Status)
	s.order = nil
}

// Len returns the number of active statuses.
func (s *Set) Len() int { return len(s.order) }

// All returns the active statuses in insertion order. The slice is a new
// allocation; the pointed-to statuses are live.
func (s *Set) All() []*Status {
	out := make([]*Status, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out
}

// IDs returns the active status ids in insertion order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
