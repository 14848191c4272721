package modifier

import "github.com/sigmarules/engine/pkg/types"

// Test evaluates the compiled FieldMatcher against one event, per §4.2's
// five steps: resolve, per-needle test (existential over sequence
// elements), aggregate, and negate.
func (fm *FieldMatcher) Test(ev types.Event) bool {
	v, present := ev.Get(fm.Path)

	if fm.Kind == KindExists {
		result := anyExists(fm.exists, present, fm.Agg)
		return fm.Negate != result
	}

	if !present {
		return fm.Negate
	}

	result := fm.aggregate(func(i int) bool {
		return fm.testValue(v, i, ev)
	})
	return fm.Negate != result
}

// anyExists implements the `exists` kind: each needle is itself a
// boolean to compare against presence, so the usual per-needle/aggregate
// split still applies, just without consulting the resolved value.
func anyExists(needles []bool, present bool, agg Aggregator) bool {
	if len(needles) == 0 {
		return false
	}
	test := func(want bool) bool { return present == want }
	if agg == All {
		for _, want := range needles {
			if !test(want) {
				return false
			}
		}
		return true
	}
	for _, want := range needles {
		if test(want) {
			return true
		}
	}
	return false
}

func (fm *FieldMatcher) needleCount() int {
	switch fm.Kind {
	case KindEq:
		return len(fm.eq)
	case KindContains, KindStartsWith, KindEndsWith:
		return len(fm.strMatch)
	case KindRe:
		return len(fm.re)
	case KindCidr:
		return len(fm.cidr)
	case KindGt, KindGte, KindLt, KindLte:
		return len(fm.num)
	case KindFieldRef:
		return len(fm.fieldref)
	default:
		return 0
	}
}

func (fm *FieldMatcher) aggregate(test func(i int) bool) bool {
	n := fm.needleCount()
	if n == 0 {
		return false
	}
	if fm.Agg == All {
		for i := 0; i < n; i++ {
			if !test(i) {
				return false
			}
		}
		return true
	}
	for i := 0; i < n; i++ {
		if test(i) {
			return true
		}
	}
	return false
}

// testValue applies needle i's test to v, existentially over v's elements
// when v is a sequence (§4.2 step 4).
func (fm *FieldMatcher) testValue(v types.Value, i int, ev types.Event) bool {
	if seq, ok := v.AsSeq(); ok {
		for _, elem := range seq {
			if fm.testScalar(elem, i, ev) {
				return true
			}
		}
		return false
	}
	return fm.testScalar(v, i, ev)
}

func (fm *FieldMatcher) testScalar(v types.Value, i int, ev types.Event) bool {
	switch fm.Kind {
	case KindEq:
		n := fm.eq[i]
		if n.glob != nil {
			s, ok := v.AsString()
			return ok && n.glob.StringMatch(s)
		}
		return eqFold(v, n.value, fm.Cased)
	case KindContains, KindStartsWith, KindEndsWith:
		s, ok := v.AsString()
		return ok && fm.strMatch[i].StringMatch(s)
	case KindRe:
		s, ok := v.AsString()
		return ok && fm.re[i].StringMatch(s)
	case KindCidr:
		return fm.cidr[i].Match(v)
	case KindGt, KindGte, KindLt, KindLte:
		return fm.num[i].Match(v)
	case KindFieldRef:
		other, ok := ev.Get(fm.fieldref[i])
		if !ok {
			return false
		}
		return valueEqualAllowingList(v, other, fm.Cased)
	default:
		return false
	}
}

// eqFold is the default equality test: strict same-type (or cross-tag
// numeric) equality, with case-insensitive string comparison unless cased.
func eqFold(a, b types.Value, cased bool) bool {
	as, aIsStr := a.AsString()
	bs, bIsStr := b.AsString()
	if aIsStr && bIsStr && !cased {
		return foldEqual(as, bs)
	}
	return a.Equal(b)
}

func foldEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// valueEqualAllowingList resolves the fieldref+list Open Question:
// element-wise existential when the referenced field's value is itself a
// sequence, plain equality otherwise.
func valueEqualAllowingList(v, other types.Value, cased bool) bool {
	if seq, ok := other.AsSeq(); ok {
		for _, elem := range seq {
			if eqFold(v, elem, cased) {
				return true
			}
		}
		return false
	}
	return eqFold(v, other, cased)
}
