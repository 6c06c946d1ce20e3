package dice

import "go.uber.org/zap"

// Roller is the Source a battle rolls through. Every roll is logged at debug
// level so a disputed hit can be traced.
type Roller struct {
	src Source
	log *zap.Logger
}

// NewLoggedRoller returns a Roller over src.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, log: logger}
}

// Intn draws from the underlying Source without logging; it lets a Roller
// pick targets and abilities wherever a Source is expected.
func (r *Roller) Intn(n int) int { return r.src.Intn(n) }

// Roll evaluates a basic-attack expression.
func (r *Roller) Roll(expr Expression) Result {
	res := Roll(expr, r.src)
	r.log.Debug("attack roll", zap.Stringer("roll", res))
	return res
}

// Variance draws an ability damage offset.
func (r *Roller) Variance(width int) int {
	v := Variance(width, r.src)
	if width > 0 {
		r.log.Debug("damage variance", zap.Int("width", width), zap.Int("offset", v))
	}
	return v
}
