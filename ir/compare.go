package ir

import (
	"cmp"
	"slices"
	"strings"
)

// Compare returns an integer comparing two nodes.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
// Assocs compare by sorted key, so key order does not matter.
func Compare(a, b *Node) int {
	if a == b {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	rankA := rank(a.Type)
	rankB := rank(b.Type)
	if rankA != rankB {
		return cmp.Compare(rankA, rankB)
	}

	switch a.Type {
	case NumberType:
		return compareNumbers(a, b)
	case StringType, SymbolType:
		return strings.Compare(a.String, b.String)
	case BoolType:
		if a.Bool == b.Bool {
			return 0
		}
		if !a.Bool {
			return -1
		}
		return 1
	case ListType:
		return compareLists(a, b)
	case CallType:
		if c := strings.Compare(a.String, b.String); c != 0 {
			return c
		}
		return compareLists(a, b)
	case AssocType:
		return compareAssocs(a, b)
	}
	return 0
}

// Equal reports whether a and b are structurally and value equal.
func Equal(a, b *Node) bool {
	return Compare(a, b) == 0
}

// rank returns the sorting rank of a type.
// Order: Null < Bool < Number < String < Symbol < List < Assoc < Call
func rank(t Type) int {
	switch t {
	case NullType:
		return 0
	case BoolType:
		return 1
	case NumberType:
		return 2
	case StringType:
		return 3
	case SymbolType:
		return 4
	case ListType:
		return 5
	case AssocType:
		return 6
	case CallType:
		return 7
	}
	return 100
}

func compareNumbers(a, b *Node) int {
	fa, okA := a.AsFloat()
	fb, okB := b.AsFloat()
	if okA && okB {
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(a.Number, b.Number)
}

func compareLists(a, b *Node) int {
	lenA := len(a.Values)
	lenB := len(b.Values)
	minLen := min(lenA, lenB)

	for i := 0; i < minLen; i++ {
		if c := Compare(a.Values[i], b.Values[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(lenA, lenB)
}

func compareAssocs(a, b *Node) int {
	keysA := slices.Sorted(slices.Values(a.Keys()))
	keysB := slices.Sorted(slices.Values(b.Keys()))
	minLen := min(len(keysA), len(keysB))
	for i := 0; i < minLen; i++ {
		if c := strings.Compare(keysA[i], keysB[i]); c != 0 {
			return c
		}
		if c := Compare(Get(a, keysA[i]), Get(b, keysB[i])); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(keysA), len(keysB))
}
