package arena

import (
	"fmt"

	"go.uber.org/zap"
)

// EventType enumerates the events the core emits.
type EventType int

const (
	EventTurnStart EventType = iota
	EventTurnEnd
	EventActionStart
	EventActionEnd
	EventTurnRegen
	EventSpawn
	EventDeath
	EventBattleEnd
)

// String returns the wire name of the event, e.g. "turn:start".
func (t EventType) String() string {
	switch t {
	case EventTurnStart:
		return "turn:start"
	case EventTurnEnd:
		return "turn:end"
	case EventActionStart:
		return "action:start"
	case EventActionEnd:
		return "action:end"
	case EventTurnRegen:
		return "turn:regen"
	case EventSpawn:
		return "unit:spawn"
	case EventDeath:
		return "unit:death"
	case EventBattleEnd:
		return "battle:end"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is one emitted notification. Subscribers must not mutate the arena.
type Event struct {
	Type    EventType
	Unit    *Unit
	Action  string
	Skipped bool
	Reason  string
	HP      int
	AE      int
	Cycle   int
	Battle  *Battle
	Trigger Trigger
}

// Handler receives events.
type Handler func(Event)

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	logger *zap.Logger
	subs   []Handler
}

// NewBus creates a Bus that logs subscriber panics to logger.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers h.
func (b *Bus) Subscribe(h Handler) {
	b.subs = append(b.subs, h)
}

// Emit delivers e to every subscriber. A panicking subscriber is logged and
// does not prevent delivery to the others.
func (b *Bus) Emit(e Event) {
	for _, h := range b.subs {
		b.deliver(h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("event subscriber panicked",
				zap.String("event", e.Type.String()),
				zap.Any("panic", r),
			)
		}
	}()
	h(e)
}
