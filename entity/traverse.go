package entity

import "slices"

// Resolve returns the entity reached by following path from base, or nil
// if any step is missing.
func Resolve(base *Entity, path Path) *Entity {
	e, _ := ResolveWithContainer(base, path)
	return e
}

// ResolveWithContainer is Resolve that also returns the target's
// container. Both are nil when resolution fails.
func ResolveWithContainer(base *Entity, path Path) (*Entity, *Entity) {
	if base == nil || base.Destroyed() {
		return nil, nil
	}
	if len(path) == 0 {
		return base, base.Container()
	}
	cur := base
	var container *Entity
	for _, t := range path {
		if t.Dest {
			return nil, nil
		}
		next := cur.Contained(t.ID)
		if next == nil {
			return nil, nil
		}
		container, cur = cur, next
	}
	return cur, container
}

// ResolveDestination resolves the container named by all but the last
// token of path and returns it with the id the last token names. The id
// is zero for a destination placeholder. The empty path is base with a
// zero id.
func ResolveDestination(base *Entity, path Path) (*Entity, ID) {
	if len(path) == 0 {
		if base == nil || base.Destroyed() {
			return nil, ID{}
		}
		return base, ID{}
	}
	container := Resolve(base, path.Container())
	if container == nil {
		return nil, ID{}
	}
	last := path.Last()
	if last.Dest {
		return container, ID{}
	}
	return container, last.ID
}

// ResolveDual resolves two paths from base, walking their common prefix
// once.
func ResolveDual(base *Entity, p1, p2 Path) (*Entity, *Entity) {
	n := commonPrefix(p1, p2)
	shared := Resolve(base, p1[:n])
	if shared == nil {
		return nil, nil
	}
	e1, e2 := Resolve(shared, p1[n:]), Resolve(shared, p2[n:])
	if e1 == nil || e2 == nil {
		return nil, nil
	}
	return e1, e2
}

func commonPrefix(p1, p2 Path) int {
	n := 0
	for n < len(p1) && n < len(p2) && p1[n] == p2[n] && !p1[n].Dest {
		n++
	}
	return n
}

// PathBetween returns the path from a to b, or nil if b is not a or
// contained within a. The path from an entity to itself is empty and
// non-nil.
func PathBetween(a, b *Entity) Path {
	if a == nil || b == nil {
		return nil
	}
	if c := b.Container(); c == a {
		return Path{{ID: b.ID()}}
	}
	var res Path
	for cur := b; cur != a; {
		c := cur.Container()
		if c == nil {
			return nil
		}
		res = append(res, Token{ID: cur.ID()})
		cur = c
	}
	slices.Reverse(res)
	if res == nil {
		res = Path{}
	}
	return res
}
