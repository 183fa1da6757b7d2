package entity

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/signadot/entitree/ir"
)

func TestLockOrder(t *testing.T) {
	a, _, _, _ := tree(t)
	b, d := Intern("B"), Intern("D")
	if LockOrder(a, b, d) >= 0 || LockOrder(a, d, b) <= 0 {
		t.Error("position order")
	}
	if LockOrder(a, b, b) != 0 {
		t.Error("equal ids")
	}
	if LockOrder(a, b, Intern("missing")) >= 0 {
		t.Error("contained before missing")
	}
	if LockOrder(a, Intern("y"), Intern("x")) <= 0 {
		t.Error("missing ids by name")
	}
}

func TestAcquireDualAncestor(t *testing.T) {
	a, b, c, d := tree(t)
	e1, e2, bundle := AcquireDual(a, NewPath("B"), NewPath("B", "C"), Write)
	if bundle == nil {
		t.Fatal("acquire failed")
	}
	defer bundle.Release()
	if e1 != b || e2 != c {
		t.Fatal("wrong targets")
	}
	if bundle.Len() != 2 || !bundle.Contains(b) || !bundle.Contains(c) || bundle.Contains(d) {
		t.Errorf("bundle %v", bundle.Entities())
	}
	if got := bundle.Entities(); got[0] != c || got[1] != b {
		t.Error("descendants should be locked first")
	}
}

func TestAcquireDualDiverging(t *testing.T) {
	a, b, c, d := tree(t)
	e1, e2, bundle := AcquireDual(a, NewPath("D"), NewPath("B", "C"), Read)
	if bundle == nil {
		t.Fatal("acquire failed")
	}
	defer bundle.Release()
	if e1 != d || e2 != c {
		t.Fatal("wrong targets")
	}
	got := bundle.Entities()
	want := []*Entity{c, b, d}
	if len(got) != len(want) {
		t.Fatalf("bundle size %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lock order at %d", i)
		}
	}
	if bundle.Contains(a) {
		t.Error("common container should not be referenced")
	}
}

func TestAcquireDualBase(t *testing.T) {
	a, _, c, _ := tree(t)
	e1, e2, bundle := AcquireDual(a, nil, NewPath("B", "C"), Read)
	if bundle == nil || e1 != a || e2 != c {
		t.Fatal("base case")
	}
	if bundle.Len() != 4 {
		t.Errorf("whole tree should be referenced, got %d", bundle.Len())
	}
	bundle.Release()
	bundle.Release()
	if _, _, b := AcquireDual(a, NewPath("B"), NewPath("nope"), Read); b != nil {
		t.Error("missing target acquired")
	}
}

func TestWriteExcludes(t *testing.T) {
	a, b, _, _ := tree(t)
	bundle := AcquireSubtree(b, Write)
	got := make(chan struct{})
	go func() {
		r := Acquire(b, Read)
		r.Release()
		close(got)
	}()
	select {
	case <-got:
		t.Fatal("read reference granted during write")
	case <-time.After(20 * time.Millisecond):
	}
	bundle.Release()
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("reader never woke")
	}
	r1, r2 := Acquire(a, Read), Acquire(a, Read)
	r1.Release()
	r2.Release()
}

func wideTree(t *testing.T, width, depth int) *Entity {
	t.Helper()
	root := New(nil)
	var grow func(e *Entity, d int)
	grow = func(e *Entity, d int) {
		if d == 0 {
			return
		}
		for i := range width {
			c := New(ir.FromInt(0))
			mustAdd(t, e, c, fmt.Sprintf("n%d", i))
			grow(c, d-1)
		}
	}
	grow(root, depth)
	return root
}

// TestAcquireDualNoDeadlock has pairs of goroutines acquire the same two
// paths in opposite argument order while writing through the bundle.
func TestAcquireDualNoDeadlock(t *testing.T) {
	root := wideTree(t, 3, 3)
	pairs := [][2]Path{
		{NewPath("n0", "n1"), NewPath("n2", "n0", "n1")},
		{NewPath("n1"), NewPath("n1", "n2", "n2")},
		{NewPath("n0", "n0", "n0"), NewPath("n0", "n2")},
		{nil, NewPath("n2", "n2")},
	}
	var wg sync.WaitGroup
	for _, p := range pairs {
		for _, flip := range []bool{false, true} {
			p1, p2 := p[0], p[1]
			if flip {
				p1, p2 = p2, p1
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 200 {
					e1, e2, b := AcquireDual(root, p1, p2, Write)
					if b == nil {
						t.Error("acquire failed")
						return
					}
					e1.AccumRoot(ir.FromInt(1))
					e2.AccumRoot(ir.FromInt(1))
					b.Release()
				}
			}()
		}
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock")
	}
	e := Resolve(root, NewPath("n2", "n2"))
	if got, _ := e.RootRef().AsFloat(); got != 400 {
		t.Errorf("lost updates: %v", got)
	}
}

// TestAcquireRetriesOnMove moves the entity between the two children a
// dual acquisition diverges into, while acquisitions run.
func TestAcquireRetriesOnMove(t *testing.T) {
	root := wideTree(t, 2, 2)
	if _, err := Resolve(root, NewPath("n0")).AddContained(New(nil), Intern("mv")); err != nil {
		t.Fatal(err)
	}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		src, dst := NewPath("n0"), NewPath("n1")
		for {
			select {
			case <-stop:
				return
			default:
			}
			from, to, b := AcquireDual(root, src, dst, Write)
			if b == nil {
				continue
			}
			if m := from.Contained(Intern("mv")); m != nil {
				from.RemoveContained(m)
				if _, err := to.AddContained(m, Intern("mv")); err != nil {
					t.Error(err)
				}
			} else if m := to.Contained(Intern("mv")); m != nil {
				to.RemoveContained(m)
				if _, err := from.AddContained(m, Intern("mv")); err != nil {
					t.Error(err)
				}
			}
			b.Release()
		}
	}()
	for range 500 {
		_, _, b := AcquireDual(root, NewPath("n0", "n0"), NewPath("n1", "n1"), Read)
		if b == nil {
			t.Fatal("acquire failed")
		}
		for _, e := range b.Entities() {
			if e.Destroyed() {
				t.Fatal("destroyed entity in bundle")
			}
		}
		b.Release()
	}
	close(stop)
	wg.Wait()
}

// TestAcquireAfterConcurrentMove runs a mover, a whole tree locker and a
// locker on two siblings together. The whole tree locker can compute its
// order before a move and lock after it.
func TestAcquireAfterConcurrentMove(t *testing.T) {
	root := New(nil)
	for _, id := range []string{"P", "Q", "R"} {
		mustAdd(t, root, New(nil), id)
	}
	mustAdd(t, Resolve(root, NewPath("P")), New(nil), "mv")
	mustAdd(t, Resolve(root, NewPath("Q")), New(nil), "q1")
	mv := Intern("mv")

	var wg sync.WaitGroup
	run := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 2000 {
				f()
			}
		}()
	}
	run(func() {
		p, q, b := AcquireDual(root, NewPath("P"), NewPath("Q"), Write)
		if b == nil {
			t.Error("acquire failed")
			return
		}
		defer b.Release()
		from, to := p, q
		if p.Contained(mv) == nil {
			from, to = q, p
		}
		m := from.Contained(mv)
		from.RemoveContained(m)
		if _, err := to.AddContained(m, mv); err != nil {
			t.Error(err)
		}
	})
	run(func() {
		if b := AcquireSubtree(root, Write); b != nil {
			b.Release()
		}
	})
	run(func() {
		if _, _, b := AcquireDual(root, NewPath("Q", "q1"), NewPath("Q", "mv"), Write); b != nil {
			b.Release()
		}
	})
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("deadlock")
	}
}
