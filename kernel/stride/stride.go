// Package stride implements the fixed-width pass/stride arithmetic used by the
// scheduler to rank runnable processes. A process accumulates scheduling debt
// (its stride) in modular uint64 arithmetic; the process with the smallest
// stride under Compare is the most entitled to run next.
package stride

import (
	"fmt"
	"math"
)

// Value is cumulative scheduling debt. Arithmetic on it wraps; no Value is
// inherently larger in the integer sense. Order is defined only by Compare.
type Value uint64

const (
	// BigStride is the basis for deriving a pass increment from a priority:
	// pass = BigStride / priority.
	BigStride Value = math.MaxUint64

	// MinPriority bounds every pass at BigStride/2, which is exactly the
	// separation Compare can still disambiguate after wraparound.
	MinPriority int64 = 2

	// halfRange is the wraparound detection threshold.
	halfRange Value = BigStride / 2
)

// Ordering is the result of comparing two stride values.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	}
	return "equal"
}

// Compare ranks two stride values drawn from processes that are simultaneously
// runnable. A raw difference above BigStride/2 cannot be a genuine gap (the
// ready-set invariant caps real separation at BigStride/2), so it is taken as
// proof that the raw-smaller value has wrapped past the other and the order is
// reversed.
//
// Compare is NOT a total order over arbitrary uint64 pairs; it is only
// consistent while the bounded-separation invariant holds. Never use it to
// sort values that were not produced by the same scheduling run.
func Compare(a, b Value) Ordering {
	if a == b {
		return Equal
	}
	if a < b {
		if b-a > halfRange {
			return Greater
		}
		return Less
	}
	if a-b > halfRange {
		return Less
	}
	return Greater
}

// PassFor derives the per-slice stride increment for a priority. Priorities
// below MinPriority are rejected, never clamped: a pass above BigStride/2
// would break Compare's wraparound detection.
func PassFor(priority int64) (Value, error) {
	if priority < MinPriority {
		return 0, fmt.Errorf("priority %d below minimum %d", priority, MinPriority)
	}
	return BigStride / Value(priority), nil
}
