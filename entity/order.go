package entity

import "strings"

// LockOrder compares the positions of a and b within container. Negative
// means the subtree of a is locked first. Ids not contained sort after
// contained ones, by name.
func LockOrder(container *Entity, a, b ID) int {
	ia, ib := container.ContainedIndex(a), container.ContainedIndex(b)
	switch {
	case ia >= 0 && ib >= 0:
		return ia - ib
	case ia >= 0:
		return -1
	case ib >= 0:
		return 1
	}
	return strings.Compare(a.String(), b.String())
}
