package match

import "github.com/sigmarules/engine/pkg/types"

// NumMatcher backs the gt/gte/lt/lte modifiers: a single-bound numeric
// comparison against the field value, via Value.Compare so Int/Uint/Float
// needles all compare uniformly.
type NumMatcher struct {
	Bound types.Value
	Op    NumOp
}

// NumOp names the direction and inclusivity of a bound comparison.
type NumOp int

const (
	OpGT NumOp = iota
	OpGTE
	OpLT
	OpLTE
)

func (n NumMatcher) Match(v types.Value) bool {
	cmp, ok := v.Compare(n.Bound)
	if !ok {
		return false
	}
	switch n.Op {
	case OpGT:
		return cmp > 0
	case OpGTE:
		return cmp >= 0
	case OpLT:
		return cmp < 0
	case OpLTE:
		return cmp <= 0
	default:
		return false
	}
}
