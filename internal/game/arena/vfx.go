package arena

import (
	"time"

	"go.uber.org/zap"
)

// VFXKind names a presentation effect.
type VFXKind string

const (
	VFXMelee  VFXKind = "melee"
	VFXArc    VFXKind = "arc"
	VFXSpawn  VFXKind = "spawn"
	VFXHeal   VFXKind = "heal"
	VFXCast   VFXKind = "cast"
	VFXBuff   VFXKind = "buff"
	VFXShield VFXKind = "shield"
)

// VFXSink receives presentation effects and returns their estimated on-screen
// duration. Rendering is out of the core's hands; only the duration matters.
type VFXSink interface {
	Add(kind VFXKind, from, to *Unit) time.Duration
}

// EstimateSink answers every effect with a fixed per-kind duration.
type EstimateSink struct {
	Durations map[string]time.Duration
}

// Add returns the configured duration for kind, or 0.
func (s EstimateSink) Add(kind VFXKind, _, _ *Unit) time.Duration {
	return s.Durations[string(kind)]
}

// VFX forwards an effect to the sink. A panicking sink is logged and treated
// as a zero-length effect.
//
// Postcondition: Returns >= 0.
func (a *Arena) VFX(kind VFXKind, from, to *Unit) (d time.Duration) {
	if a.vfx == nil {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			a.Log.Warn("vfx sink panicked", zap.String("kind", string(kind)), zap.Any("panic", r))
			d = 0
		}
	}()
	d = a.vfx.Add(kind, from, to)
	if d < 0 {
		d = 0
	}
	return d
}

// ExtendBusy pushes the busy window d past max(BusyUntil, now).
//
// Postcondition: BusyUntil >= now + d.
func (a *Arena) ExtendBusy(d time.Duration) {
	if d <= 0 {
		return
	}
	base := a.BusyUntil
	if now := a.Now(); base.Before(now) {
		base = now
	}
	a.BusyUntil = base.Add(d)
}
