package observability

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/gridbattle/internal/config"
	"github.com/cory-johannsen/gridbattle/internal/game/arena"
	"github.com/cory-johannsen/gridbattle/internal/game/board"
	"github.com/cory-johannsen/gridbattle/internal/game/catalog"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_AllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := config.LoggingConfig{Level: level, Format: "json"}
		logger, err := NewLogger(cfg)
		require.NoError(t, err, "level %q should be valid", level)
		assert.NotNil(t, logger)
	}
}

func TestMatchLogger_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	id := uuid.New()
	MatchLogger(zap.New(core), id, "arenad").Info("hello")

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, id.String(), ctx["match"])
	assert.Equal(t, "arenad", ctx["label"])
}

func TestEventTracer(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	trace := EventTracer(zap.New(core))
	u := arena.NewUnit("brute", "Brute", board.Ally, 1, catalog.Stats{HPMax: 10})

	trace(arena.Event{Type: arena.EventActionEnd, Unit: u, Skipped: true, Reason: "status"})
	trace(arena.Event{Type: arena.EventBattleEnd, Battle: &arena.Battle{Over: true, Winner: arena.WinnerAlly, Reason: arena.ReasonTimeout}, Trigger: arena.TriggerTimeout})

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "action:end", first.Message)
	assert.Equal(t, "status", first.ContextMap()["skip_reason"])
	last := logs.All()[1]
	assert.Equal(t, zap.InfoLevel, last.Level)
	assert.Equal(t, "ally", last.ContextMap()["winner"])
}

func TestEventTracer_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	EventTracer(zap.New(core))(arena.Event{Type: arena.EventTurnStart})
	assert.Zero(t, logs.Len())
}
