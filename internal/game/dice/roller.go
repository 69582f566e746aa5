package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger so every random decision that affects a
// battle is logged at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller over src. A nil logger is replaced with a no-op.
//
// Precondition: src must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying Source.
func (r *Roller) Source() Source { return r.src }

// Chance reports whether an event with probability p fires. p <= 0 never
// fires and p >= 1 always fires without consuming randomness.
func (r *Roller) Chance(label string, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	v := r.src.Float64()
	hit := v < p
	r.logger.Debug("chance roll",
		zap.String("label", label),
		zap.Float64("p", p),
		zap.Float64("roll", v),
		zap.Bool("hit", hit),
	)
	return hit
}

// Pick returns a random index in [0, n), or -1 when n <= 0.
func (r *Roller) Pick(label string, n int) int {
	if n <= 0 {
		return -1
	}
	v := r.src.Intn(n)
	r.logger.Debug("pick roll", zap.String("label", label), zap.Int("n", n), zap.Int("index", v))
	return v
}

// Shuffle permutes n elements with swap using Fisher-Yates.
func (r *Roller) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.src.Intn(i + 1)
		swap(i, j)
	}
}
