package entity

import (
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/signadot/entitree/ir"
)

type Entity struct {
	ref sync.RWMutex

	smu       sync.RWMutex
	id        ID
	container weak.Pointer[Entity]
	contained []*Entity
	index     map[ID]int
	anon      int

	// guarded by ref
	root  *ir.Node
	seed  string
	perms Permissions

	executing atomic.Int32
	destroyed atomic.Bool
}

// New returns an uncontained anonymous entity owning root.
func New(root *ir.Node) *Entity {
	if root == nil {
		root = ir.Null()
	}
	root.Parent = nil
	return &Entity{root: root, index: map[ID]int{}}
}

func (e *Entity) ID() ID {
	e.smu.RLock()
	defer e.smu.RUnlock()
	return e.id
}

// Container returns the entity containing e, or nil.
func (e *Entity) Container() *Entity {
	e.smu.RLock()
	defer e.smu.RUnlock()
	return e.container.Value()
}

func (e *Entity) Destroyed() bool { return e.destroyed.Load() }

func (e *Entity) Contained(id ID) *Entity {
	e.smu.RLock()
	defer e.smu.RUnlock()
	i, ok := e.index[id]
	if !ok {
		return nil
	}
	return e.contained[i]
}

// ContainedIndex gives the position of id among e's contained entities,
// or -1.
func (e *Entity) ContainedIndex(id ID) int {
	e.smu.RLock()
	defer e.smu.RUnlock()
	i, ok := e.index[id]
	if !ok {
		return -1
	}
	return i
}

func (e *Entity) ContainedEntities() []*Entity {
	e.smu.RLock()
	defer e.smu.RUnlock()
	return slices.Clone(e.contained)
}

func (e *Entity) NumContained() int {
	e.smu.RLock()
	defer e.smu.RUnlock()
	return len(e.contained)
}

// AddContained makes child a contained entity of e under id. An
// anonymous or already taken id is replaced by a generated one of the
// form _N. The id actually used is returned.
//
// The caller holds a write reference on e.
func (e *Entity) AddContained(child *Entity, id ID) (ID, error) {
	for x := e; x != nil; x = x.Container() {
		if x == child {
			return ID{}, ErrCycle
		}
	}
	if e.Destroyed() || child.Destroyed() {
		return ID{}, ErrDestroyed
	}
	e.smu.Lock()
	defer e.smu.Unlock()
	if _, taken := e.index[id]; id.IsZero() || taken {
		id = e.generateID()
	}
	if !e.attach(child, id) {
		return ID{}, ErrContained
	}
	return id, nil
}

func (e *Entity) generateID() ID {
	for {
		e.anon++
		id := Intern("_" + strconv.Itoa(e.anon))
		if _, taken := e.index[id]; !taken {
			return id
		}
	}
}

// attach requires e.smu held for writing. It fails if child already has
// a container.
func (e *Entity) attach(child *Entity, id ID) bool {
	child.smu.Lock()
	if child.container.Value() != nil {
		child.smu.Unlock()
		return false
	}
	child.id = id
	child.container = weak.Make(e)
	child.smu.Unlock()
	e.index[id] = len(e.contained)
	e.contained = append(e.contained, child)
	return true
}

// InsertContained makes child a contained entity of e under id at
// position i, clamped to the contained range. Unlike AddContained, a
// taken or anonymous id is an error.
//
// The caller holds a write reference on e.
func (e *Entity) InsertContained(child *Entity, id ID, i int) error {
	for x := e; x != nil; x = x.Container() {
		if x == child {
			return ErrCycle
		}
	}
	if e.Destroyed() || child.Destroyed() {
		return ErrDestroyed
	}
	e.smu.Lock()
	defer e.smu.Unlock()
	if _, taken := e.index[id]; id.IsZero() || taken {
		return fmt.Errorf("%w: %q", ErrIDTaken, id.String())
	}
	if !e.attach(child, id) {
		return ErrContained
	}
	e.insertAt(len(e.contained)-1, i)
	return nil
}

// insertAt moves the contained entity at from to position to. It
// requires e.smu held for writing.
func (e *Entity) insertAt(from, to int) {
	to = max(0, min(to, len(e.contained)-1))
	if from == to {
		return
	}
	c := e.contained[from]
	e.contained = slices.Insert(slices.Delete(e.contained, from, from+1), to, c)
	for j := min(from, to); j < len(e.contained); j++ {
		e.index[e.contained[j].ID()] = j
	}
}

// RemoveContained detaches child from e. The child keeps its id.
//
// The caller holds a write reference on e.
func (e *Entity) RemoveContained(child *Entity) bool {
	e.smu.Lock()
	defer e.smu.Unlock()
	id := child.ID()
	i, ok := e.index[id]
	if !ok || e.contained[i] != child {
		return false
	}
	e.contained = slices.Delete(e.contained, i, i+1)
	delete(e.index, id)
	for j := i; j < len(e.contained); j++ {
		e.index[e.contained[j].ID()] = j
	}
	child.smu.Lock()
	child.container = weak.Pointer[Entity]{}
	child.smu.Unlock()
	return true
}

// Clone returns a deep copy of e and everything it contains. The copy is
// uncontained and keeps the ids of the contained entities.
//
// The caller holds a read reference on e's subtree.
func (e *Entity) Clone() *Entity {
	c := New(e.root.Clone())
	c.id = e.ID()
	c.seed = e.seed
	c.perms = e.perms
	for _, child := range e.ContainedEntities() {
		cc := child.Clone()
		c.attach(cc, cc.id)
	}
	c.anon = e.anon
	return c
}

// BeginExecution marks e as running code. Destroy is refused while any
// entity in the subtree is running.
func (e *Entity) BeginExecution() { e.executing.Add(1) }

func (e *Entity) EndExecution() { e.executing.Add(-1) }

// Executing reports whether e or any contained entity is executing.
func (e *Entity) Executing() bool {
	res := false
	e.Walk(func(x *Entity) bool {
		if x.executing.Load() > 0 {
			res = true
		}
		return !res
	})
	return res
}

// Destroy detaches e from its container and marks its whole subtree
// destroyed. It does nothing and returns false if the subtree is
// executing or already destroyed.
//
// The caller holds write references on e's container and subtree.
func (e *Entity) Destroy() bool {
	if e.Destroyed() || e.Executing() {
		return false
	}
	if c := e.Container(); c != nil {
		c.RemoveContained(e)
	}
	for _, x := range postOrder(nil, e) {
		x.destroyed.Store(true)
	}
	return true
}

// Walk calls fn on e and its contained entities in pre-order. When fn
// returns false the entities below the current one are skipped.
func (e *Entity) Walk(fn func(*Entity) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.ContainedEntities() {
		c.Walk(fn)
	}
}

// postOrder appends e's subtree to dst, descendants first and siblings by
// position.
func postOrder(dst []*Entity, e *Entity) []*Entity {
	for _, c := range e.ContainedEntities() {
		dst = postOrder(dst, c)
	}
	return append(dst, e)
}
