package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/gridbattle/internal/game/arena"
)

// EventTracer returns a bus handler that writes every battle event to logger.
// Battle end is logged at info; everything else at debug.
func EventTracer(logger *zap.Logger) arena.Handler {
	return func(e arena.Event) {
		level := zapcore.DebugLevel
		if e.Type == arena.EventBattleEnd {
			level = zapcore.InfoLevel
		}
		ce := logger.Check(level, e.Type.String())
		if ce == nil {
			return
		}
		fields := []zap.Field{zap.Int("cycle", e.Cycle)}
		if e.Unit != nil {
			fields = append(fields,
				zap.String("unit", e.Unit.Name),
				zap.Int("iid", e.Unit.IID),
				zap.String("side", string(e.Unit.Side)),
			)
		}
		if e.Action != "" {
			fields = append(fields, zap.String("action", e.Action))
		}
		if e.Skipped {
			fields = append(fields, zap.String("skip_reason", e.Reason))
		}
		if e.Type == arena.EventTurnRegen {
			fields = append(fields, zap.Int("hp", e.HP), zap.Int("ae", e.AE))
		}
		if e.Battle != nil {
			fields = append(fields,
				zap.String("winner", string(e.Battle.Winner)),
				zap.String("reason", string(e.Battle.Reason)),
				zap.String("trigger", string(e.Trigger)),
			)
		}
		ce.Write(fields...)
	}
}
