package arena

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridbattle/internal/game/board"
)

// Winner is the battle outcome.
type Winner string

const (
	WinnerNone  Winner = ""
	WinnerAlly  Winner = "ally"
	WinnerEnemy Winner = "enemy"
	WinnerDraw  Winner = "draw"
)

// Reason explains why a battle ended.
type Reason string

const (
	ReasonLeaderDown Reason = "leader_down"
	ReasonTimeout    Reason = "timeout"
)

// Trigger is the context a battle-end check runs in.
type Trigger string

const (
	TriggerStep    Trigger = "step"
	TriggerTimeout Trigger = "timeout"
)

// Battle is the match result.
//
// Invariant: Over transitions false to true once; all fields are frozen after.
type Battle struct {
	Over       bool
	Winner     Winner
	Reason     Reason
	Detail     string
	FinishedAt time.Time
}

func leaderDown(u *Unit) bool { return u != nil && !u.Alive }

// CheckBattleEnd evaluates leader deaths and, under TriggerTimeout, the
// timeout rules. It returns true when the battle is over after the call.
//
// A dead leader loses; both leaders dead is a draw. On timeout in PvP the
// higher leader HP ratio wins (tie draws); in PvE the enemy wins while any
// enemy boss lives, otherwise the ally side wins.
func (a *Arena) CheckBattleEnd(trigger Trigger) bool {
	if a.Battle.Over {
		return true
	}
	allyLeader, enemyLeader := a.Leader(board.Ally), a.Leader(board.Enemy)
	allyDown, enemyDown := leaderDown(allyLeader), leaderDown(enemyLeader)
	switch {
	case allyDown && enemyDown:
		return a.FinalizeBattle(WinnerDraw, ReasonLeaderDown, "both leaders down", trigger)
	case allyDown:
		return a.FinalizeBattle(WinnerEnemy, ReasonLeaderDown, "ally leader down", trigger)
	case enemyDown:
		return a.FinalizeBattle(WinnerAlly, ReasonLeaderDown, "enemy leader down", trigger)
	}
	if trigger != TriggerTimeout {
		return false
	}
	if a.Cfg.Mode == ModePvP {
		ar, er := ratio(allyLeader), ratio(enemyLeader)
		switch {
		case ar > er:
			return a.FinalizeBattle(WinnerAlly, ReasonTimeout, fmt.Sprintf("leader hp %.2f > %.2f", ar, er), trigger)
		case er > ar:
			return a.FinalizeBattle(WinnerEnemy, ReasonTimeout, fmt.Sprintf("leader hp %.2f < %.2f", ar, er), trigger)
		default:
			return a.FinalizeBattle(WinnerDraw, ReasonTimeout, "leader hp tied", trigger)
		}
	}
	for _, u := range a.Living(board.Enemy) {
		if u.IsBoss() {
			return a.FinalizeBattle(WinnerEnemy, ReasonTimeout, "boss alive at timeout", trigger)
		}
	}
	return a.FinalizeBattle(WinnerAlly, ReasonTimeout, "survived to timeout", trigger)
}

func ratio(u *Unit) float64 {
	if u == nil {
		return 0
	}
	return u.HPRatio()
}

// FinalizeBattle freezes the result, runs stop hooks and emits battle:end.
// It returns true; a second call leaves the first result untouched.
//
// Postcondition: Battle.Over == true and Battle equals the first finalized value.
func (a *Arena) FinalizeBattle(w Winner, reason Reason, detail string, trigger Trigger) bool {
	if a.Battle.Over {
		return true
	}
	a.Battle = Battle{Over: true, Winner: w, Reason: reason, Detail: detail, FinishedAt: a.Now()}
	a.Log.Info("battle finished",
		zap.String("winner", string(w)),
		zap.String("reason", string(reason)),
		zap.String("detail", detail),
		zap.Int("turns", a.TurnCount),
		zap.Int("cycle", a.Cycle()),
	)
	for _, fn := range a.onStop {
		fn()
	}
	result := a.Battle
	a.Emit(Event{Type: EventBattleEnd, Battle: &result, Trigger: trigger})
	return true
}
