package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression is a parsed "NdS+M" dice expression.
//
// Invariant: Count >= 1 and Sides >= 2 for any Expression returned by Parse.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

var exprPattern = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// maxDice bounds Count so a bad template cannot stall a tick.
const maxDice = 100

// Parse parses "d20", "2d6", "1d8+3" or "3d4-1".
//
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	m := exprPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}

	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", expr, err)
		}
		count = n
	}
	if count < 1 || count > maxDice {
		return Expression{}, fmt.Errorf("dice: die count in %q must be 1-%d", expr, maxDice)
	}

	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", expr, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", expr)
	}

	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
	}

	return Expression{Raw: s, Count: count, Sides: sides, Modifier: modifier}, nil
}

// MustParse parses expr and panics on error.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// Min returns the smallest total the expression can produce.
func (e Expression) Min() int { return e.Count + e.Modifier }

// Max returns the largest total the expression can produce.
func (e Expression) Max() int { return e.Count*e.Sides + e.Modifier }
