package entity

import (
	"runtime"
	"slices"
	"sync"

	"github.com/signadot/entitree/debug"
)

type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// Reference is a read or write hold on one entity. Release is idempotent.
type Reference struct {
	e    *Entity
	mode Mode
	once sync.Once
}

// Acquire blocks until e can be referenced in mode. It returns nil if e is
// nil or destroyed.
func Acquire(e *Entity, mode Mode) *Reference {
	if e == nil {
		return nil
	}
	lock(e, mode)
	if e.Destroyed() {
		unlock(e, mode)
		return nil
	}
	return &Reference{e: e, mode: mode}
}

func (r *Reference) Entity() *Entity {
	if r == nil {
		return nil
	}
	return r.e
}

func (r *Reference) Mode() Mode { return r.mode }

func (r *Reference) Release() {
	if r == nil {
		return
	}
	r.once.Do(func() { unlock(r.e, r.mode) })
}

func lock(e *Entity, mode Mode) {
	if mode == Write {
		e.ref.Lock()
		return
	}
	e.ref.RLock()
}

func tryLock(e *Entity, mode Mode) bool {
	if mode == Write {
		return e.ref.TryLock()
	}
	return e.ref.TryRLock()
}

func unlock(e *Entity, mode Mode) {
	if mode == Write {
		e.ref.Unlock()
		return
	}
	e.ref.RUnlock()
}

// Bundle is a set of references taken together in post-order.
type Bundle struct {
	refs     []*Reference
	attempts int
}

// Release releases every reference, deepest first.
func (b *Bundle) Release() {
	if b == nil {
		return
	}
	for _, r := range b.refs {
		r.Release()
	}
}

func (b *Bundle) Len() int { return len(b.refs) }

// Attempts is the number of lock then validate rounds the acquisition
// took.
func (b *Bundle) Attempts() int { return b.attempts }

func (b *Bundle) Entities() []*Entity {
	res := make([]*Entity, len(b.refs))
	for i, r := range b.refs {
		res[i] = r.e
	}
	return res
}

func (b *Bundle) Contains(e *Entity) bool {
	for _, r := range b.refs {
		if r.e == e {
			return true
		}
	}
	return false
}

// AcquireSubtree references e and everything it contains. It returns nil
// if e is nil or destroyed.
func AcquireSubtree(e *Entity, mode Mode) *Bundle {
	if e == nil {
		return nil
	}
	return acquireSubtrees([]*Entity{e}, mode)
}

// acquireSubtrees locks the subtrees of roots, which must be disjoint and
// given in lock order. Only the first lock blocks. Later ones are tried,
// and on contention everything is released, the contended entity is
// waited on while holding nothing, and the set is retried. A caller
// never blocks while holding a reference. The subtree structure is
// re-enumerated after locking and the set is retried if it changed in
// between.
func acquireSubtrees(roots []*Entity, mode Mode) *Bundle {
	for attempt := 1; ; attempt++ {
		order := enumerate(roots)
		n, busy := lockAll(order, mode)
		if busy == nil && slices.Equal(order, enumerate(roots)) && !anyDestroyed(order) {
			b := &Bundle{refs: make([]*Reference, len(order)), attempts: attempt}
			for i, e := range order {
				b.refs[i] = &Reference{e: e, mode: mode}
			}
			if debug.Locks() {
				debug.Logf("locks", "%s bundle of %d entities after %d attempts", mode, len(order), attempt)
			}
			return b
		}
		for _, e := range order[:n] {
			unlock(e, mode)
		}
		if busy != nil {
			wait(busy, mode)
		}
		for _, r := range roots {
			if r.Destroyed() {
				return nil
			}
		}
		runtime.Gosched()
	}
}

// lockAll blocks on order[0] and tries the rest. It returns the number of
// entities locked and the first one that was busy, if any.
func lockAll(order []*Entity, mode Mode) (int, *Entity) {
	for i, e := range order {
		if i == 0 {
			lock(e, mode)
			continue
		}
		if !tryLock(e, mode) {
			return i, e
		}
	}
	return len(order), nil
}

// wait blocks until e is free. The caller holds no references.
func wait(e *Entity, mode Mode) {
	lock(e, mode)
	unlock(e, mode)
}

func anyDestroyed(es []*Entity) bool {
	for _, e := range es {
		if e.Destroyed() {
			return true
		}
	}
	return false
}

func enumerate(roots []*Entity) []*Entity {
	var res []*Entity
	for _, r := range roots {
		res = postOrder(res, r)
	}
	return res
}

// AcquireDual references the targets of p1 and p2 from base together
// with everything that lies between them below their deepest common
// entity.
//
// When one path ends at the common entity, its whole subtree is
// referenced. When the paths diverge into two children of the common
// entity, the subtree of the child at the lower position is referenced
// first, then the other. All three results are nil if either target
// does not resolve.
func AcquireDual(base *Entity, p1, p2 Path, mode Mode) (*Entity, *Entity, *Bundle) {
	attempts := 0
	for {
		e1, e2, b, retry := acquireDual(base, p1, p2, mode)
		if b != nil {
			attempts += b.attempts
			b.attempts = attempts
			return e1, e2, b
		}
		if !retry {
			return nil, nil, nil
		}
		attempts++
		runtime.Gosched()
	}
}

func acquireDual(base *Entity, p1, p2 Path, mode Mode) (e1, e2 *Entity, b *Bundle, retry bool) {
	n := commonPrefix(p1, p2)
	cur := Resolve(base, p1[:n])
	if cur == nil {
		return nil, nil, nil, false
	}
	if n == len(p1) || n == len(p2) {
		b = AcquireSubtree(cur, mode)
		if b == nil {
			return nil, nil, nil, false
		}
		e1, e2 = Resolve(cur, p1[n:]), Resolve(cur, p2[n:])
		if e1 == nil || e2 == nil {
			b.Release()
			return nil, nil, nil, false
		}
		return e1, e2, b, false
	}
	t1, t2 := p1[n], p2[n]
	if t1.Dest || t2.Dest {
		return nil, nil, nil, false
	}
	c1, c2 := cur.Contained(t1.ID), cur.Contained(t2.ID)
	if c1 == nil || c2 == nil {
		return nil, nil, nil, false
	}
	roots := []*Entity{c1, c2}
	if LockOrder(cur, t1.ID, t2.ID) > 0 {
		roots[0], roots[1] = c2, c1
	}
	b = acquireSubtrees(roots, mode)
	if b == nil {
		return nil, nil, nil, true
	}
	if c1.Container() != cur || c2.Container() != cur {
		// moved between lookup and locking
		b.Release()
		return nil, nil, nil, true
	}
	e1, e2 = Resolve(c1, p1[n+1:]), Resolve(c2, p2[n+1:])
	if e1 == nil || e2 == nil {
		b.Release()
		return nil, nil, nil, false
	}
	return e1, e2, b, false
}
