package stride

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	testCases := []struct {
		name   string
		a      Value
		b      Value
		expect Ordering
	}{
		{
			name:   "equal values",
			a:      42,
			b:      42,
			expect: Equal,
		},
		{
			name:   "plain less",
			a:      10,
			b:      20,
			expect: Less,
		},
		{
			name:   "plain greater",
			a:      20,
			b:      10,
			expect: Greater,
		},
		{
			name:   "separation at exactly half range is genuine",
			a:      0,
			b:      halfRange,
			expect: Less,
		},
		{
			name:   "raw smaller value wrapped past the other",
			a:      100,
			b:      math.MaxUint64 - 100,
			expect: Greater,
		},
		{
			name:   "raw larger value is behind a wrapped peer",
			a:      math.MaxUint64 - 100,
			b:      100,
			expect: Less,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Compare(tc.a, tc.b))
		})
	}
}

// A low-priority process parked near the top of the range must still rank
// below a high-priority peer whose stride already wrapped back around zero.
func TestCompareOverflowScenario(t *testing.T) {
	var a Value = BigStride - BigStride/8 // about to wrap
	b := a + BigStride/4                  // wrapped, raw value is tiny

	assert.True(t, b < a, "setup must actually wrap")
	assert.True(t, a-b > halfRange)
	assert.Equal(t, Less, Compare(a, b))
	assert.Equal(t, Greater, Compare(b, a))
}

func TestCompareSymmetry(t *testing.T) {
	pairs := [][2]Value{
		{0, 0},
		{0, 1},
		{halfRange - 1, 0},
		{math.MaxUint64, 5},
		{BigStride / 3, BigStride / 2},
	}
	for _, p := range pairs {
		assert.Equal(t, Compare(p[0], p[1]), -Compare(p[1], p[0]))
	}
}

func TestPassFor(t *testing.T) {
	testCases := []struct {
		name     string
		priority int64
		expect   Value
		fail     bool
	}{
		{name: "minimum priority", priority: 2, expect: BigStride / 2},
		{name: "default class priority", priority: 16, expect: BigStride / 16},
		{name: "priority one rejected", priority: 1, fail: true},
		{name: "zero rejected", priority: 0, fail: true},
		{name: "negative rejected", priority: -4, fail: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pass, err := PassFor(tc.priority)
			if tc.fail {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, pass)
		})
	}
}

// Every legal priority must keep its pass within the half range; the
// comparison contract depends on it.
func TestPassBound(t *testing.T) {
	for _, priority := range []int64{2, 3, 5, 16, 1000, math.MaxInt64} {
		pass, err := PassFor(priority)
		assert.NoError(t, err)
		assert.LessOrEqual(t, uint64(pass), uint64(halfRange), "priority %d", priority)
	}
}

// Walk two strides forward in unbounded arithmetic while comparing the wrapped
// values; Compare must agree with the true order at every step.
func TestCompareTracksTrueOrder(t *testing.T) {
	passA, _ := PassFor(2)
	passB, _ := PassFor(3)

	var a, b Value
	var trueA, trueB float64
	for i := 0; i < 1000; i++ {
		var expect Ordering
		switch {
		case trueA < trueB:
			expect = Less
		case trueA > trueB:
			expect = Greater
		}
		assert.Equal(t, expect, Compare(a, b), "step %d", i)

		// advance the laggard, mirroring the scheduler
		if Compare(a, b) != Greater {
			a += passA
			trueA += float64(passA)
		} else {
			b += passB
			trueB += float64(passB)
		}
	}
}
