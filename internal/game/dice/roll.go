// Package dice is the battle simulator's only source of chance: basic-attack
// dice expressions, the centred variance added to ability damage, and the
// injectable Source behind both.
package dice

import (
	"fmt"
	"strings"
)

// Result is one evaluated expression.
//
// Invariant: Total == sum(Faces) + Bonus.
type Result struct {
	Expr  string
	Faces []int
	Bonus int
	Total int
}

// String renders the result as "2d6+3: 4+5 +3 = 12".
func (r Result) String() string {
	faces := make([]string, len(r.Faces))
	for i, f := range r.Faces {
		faces[i] = fmt.Sprint(f)
	}
	return fmt.Sprintf("%s: %s %+d = %d", r.Expr, strings.Join(faces, "+"), r.Bonus, r.Total)
}

// Roll evaluates expr with src.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: len(Faces) == expr.Count and expr.Min() <= Total <= expr.Max().
func Roll(expr Expression, src Source) Result {
	r := Result{Expr: expr.Raw, Faces: make([]int, expr.Count), Bonus: expr.Modifier, Total: expr.Modifier}
	for i := range r.Faces {
		r.Faces[i] = src.Intn(expr.Sides) + 1
		r.Total += r.Faces[i]
	}
	return r
}

// Variance returns an offset centred on zero for damage spread: width 10
// gives -5..4, width 8 gives -4..3, and width <= 0 gives 0.
//
// Precondition: src must be non-nil.
func Variance(width int, src Source) int {
	if width <= 0 {
		return 0
	}
	return src.Intn(width) - width/2
}
