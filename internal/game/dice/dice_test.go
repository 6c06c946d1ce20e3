package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

type fixedSrc struct{ val int }

func (f fixedSrc) Intn(_ int) int { return f.val }

type maxSrc struct{}

func (maxSrc) Intn(n int) int { return n - 1 }

func TestResult_String(t *testing.T) {
	r := dice.Result{Expr: "2d6+3", Faces: []int{4, 5}, Bonus: 3, Total: 12}
	assert.Equal(t, "2d6+3: 4+5 +3 = 12", r.String())
}

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		count int
		sides int
		mod   int
	}{
		{"d20", 1, 20, 0},
		{"2d6", 2, 6, 0},
		{"1d8+3", 1, 8, 3},
		{"3D4-1", 3, 4, -1},
		{" 1d6+4 ", 1, 6, 4},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.mod, e.Modifier)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "20", "d1", "0d6", "2d", "2d6+", "2d6*3", "abc", "101d6"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected %q to be rejected", in)
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("nonsense") })
	assert.NotPanics(t, func() { dice.MustParse("1d4") })
}

func TestRoll_FixedSource(t *testing.T) {
	r := dice.Roll(dice.MustParse("2d6+3"), fixedSrc{val: 2})
	assert.Equal(t, []int{3, 3}, r.Faces)
	assert.Equal(t, 9, r.Total)
}

func TestVariance_Bounds(t *testing.T) {
	assert.Equal(t, -5, dice.Variance(10, fixedSrc{val: 0}))
	assert.Equal(t, 4, dice.Variance(10, maxSrc{}))
	assert.Equal(t, -4, dice.Variance(8, fixedSrc{val: 0}))
	assert.Equal(t, 3, dice.Variance(8, maxSrc{}))
	assert.Equal(t, 0, dice.Variance(0, maxSrc{}))
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Intn(1000), b.Intn(1000))
	}
	assert.Panics(t, func() { a.Intn(-1) })
}

func TestNewSource_SelectsBySeed(t *testing.T) {
	a := dice.NewSource(7)
	b := dice.NewSource(7)
	assert.Equal(t, a.Intn(1<<30), b.Intn(1<<30))
	assert.NotNil(t, dice.NewSource(0))
}

func TestRoller_LogsAndDelegates(t *testing.T) {
	r := dice.NewLoggedRoller(fixedSrc{val: 1}, zaptest.NewLogger(t))
	assert.Equal(t, 6, r.Roll(dice.MustParse("1d6+4")).Total)
	assert.Equal(t, -4, r.Variance(10))
	assert.Equal(t, 1, r.Intn(9))
}

func TestProperty_RollWithinBounds(t *testing.T) {
	src := dice.NewSeededSource(99)
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-10, 10).Draw(rt, "mod")
		expr := fmt.Sprintf("%dd%d%+d", count, sides, mod)

		e, err := dice.Parse(expr)
		require.NoError(rt, err)
		r := dice.Roll(e, src)
		assert.Len(rt, r.Faces, count)
		assert.GreaterOrEqual(rt, r.Total, e.Min())
		assert.LessOrEqual(rt, r.Total, e.Max())
		assert.True(rt, strings.HasPrefix(r.String(), e.Raw))
	})
}

func TestProperty_VarianceCentred(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(1, 50).Draw(rt, "width")
		face := rapid.IntRange(0, width-1).Draw(rt, "face")
		v := dice.Variance(width, fixedSrc{val: face})
		assert.GreaterOrEqual(rt, v, -width/2)
		assert.Less(rt, v, width-width/2)
	})
}
