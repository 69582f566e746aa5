// Package ai plays cards for a computer-controlled side. Each think it refills
// the hand, scores every affordable (card, empty slot) pair with a weighted
// heuristic and queues the best placement that is still legal.
package ai

import (
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/summon"
)

// Blocked reasons recorded on candidates that could not be queued.
const (
	BlockedNoSummonRoom = "no_summon_room"
	BlockedReserved     = "reserved"
	BlockedCost         = "cost"
	BlockedOther        = "error"
)

// Parts are the unweighted sub-scores of a candidate.
type Parts struct {
	Pressure   float64
	Safety     float64
	ETA        float64
	Summon     float64
	KitInstant float64
	KitDefense float64
	KitRevive  float64
	Crowd      float64
	Role       float64
}

// Candidate is one scored (card, slot) placement.
type Candidate struct {
	UnitID        string
	Slot          int
	Cost          int
	Score         float64
	Parts         Parts
	BlockedReason string
}

// Decision records the outcome of the last think.
type Decision struct {
	At         time.Time
	Chosen     *Candidate
	Considered []Candidate
}

// Controller plays cards for one side.
type Controller struct {
	Side board.Side
	Cfg  Config

	lastThink    time.Time
	lastDecision Decision
}

// New creates a Controller for side.
func New(side board.Side, cfg Config) *Controller {
	return &Controller{Side: side, Cfg: cfg}
}

// LastDecision returns the most recent think's decision.
func (c *Controller) LastDecision() Decision { return c.lastDecision }

// MaybeAct thinks when at least the throttle has passed since the previous
// think. It returns the queued candidate, if any.
func (c *Controller) MaybeAct(a *arena.Arena, now time.Time) (Candidate, bool) {
	if !c.lastThink.IsZero() && now.Sub(c.lastThink) < c.Cfg.Throttle {
		return Candidate{}, false
	}
	c.lastThink = now
	return c.Think(a, now)
}

// Think runs one decision cycle unconditionally.
//
// Postcondition: at most one spawn is queued; LastDecision is replaced.
func (c *Controller) Think(a *arena.Arena, now time.Time) (Candidate, bool) {
	if a.Battle.Over || a.Meta == nil {
		return Candidate{}, false
	}
	RefillHand(a, c.Side, c.Cfg.HandSize)
	cands := c.Candidates(a)

	var chosen *Candidate
	for i := range cands {
		cand := &cands[i]
		if cand.Parts.Summon == 0 && a.Meta.IsSummoner(cand.UnitID) {
			cand.BlockedReason = BlockedNoSummonRoom
			continue
		}
		if _, err := summon.QueueDeck(a, c.Side, cand.Slot, cand.UnitID); err != nil {
			cand.BlockedReason = blockedReason(err)
			continue
		}
		chosen = cand
		break
	}

	top := cands[:min(len(cands), max(0, c.Cfg.TopN))]
	c.lastDecision = Decision{At: now, Considered: append([]Candidate(nil), top...)}
	if chosen == nil {
		return Candidate{}, false
	}
	picked := *chosen
	c.lastDecision.Chosen = &picked
	a.Log.Debug("ai queued card",
		zap.String("side", string(c.Side)),
		zap.String("unit", picked.UnitID),
		zap.Int("slot", picked.Slot),
		zap.Float64("score", picked.Score),
	)
	return picked, true
}

func blockedReason(err error) string {
	switch {
	case errors.Is(err, summon.ErrReserved):
		return BlockedReserved
	case errors.Is(err, summon.ErrInsufficientCost):
		return BlockedCost
	default:
		return BlockedOther
	}
}

// Candidates scores every affordable card in the hand against every empty
// slot, best first. Equal scores keep hand order, then slot order.
func (c *Controller) Candidates(a *arena.Arena) []Candidate {
	deck := a.Decks[c.Side]
	if deck == nil {
		return nil
	}
	var empty []int
	for s := board.MinSlot; s <= board.MaxSlot; s++ {
		if !a.Reserved(c.Side, s) {
			empty = append(empty, s)
		}
	}
	var out []Candidate
	for _, id := range deck.Hand {
		def, ok := a.Meta.Get(id)
		if !ok || def.Cost > deck.Cost {
			continue
		}
		for _, slot := range empty {
			parts := c.parts(a, def, slot)
			out = append(out, Candidate{
				UnitID: id,
				Slot:   slot,
				Cost:   def.Cost,
				Score:  c.combine(parts),
				Parts:  parts,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// RefillHand draws random pool cards into side's hand until it holds size
// cards, skipping ids already used or held.
func RefillHand(a *arena.Arena, side board.Side, size int) {
	deck := a.Decks[side]
	if deck == nil || a.Meta == nil || len(deck.Hand) >= size {
		return
	}
	held := make(map[string]bool, len(deck.Hand))
	for _, id := range deck.Hand {
		held[id] = true
	}
	var pool []string
	for _, u := range a.Meta.Pool() {
		if !deck.Used[u.ID] && !held[u.ID] {
			pool = append(pool, u.ID)
		}
	}
	a.Dice.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	for _, id := range pool {
		if len(deck.Hand) >= size {
			break
		}
		deck.Hand = append(deck.Hand, id)
	}
}
