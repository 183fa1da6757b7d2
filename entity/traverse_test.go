package entity

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/ir"
)

var pathCmp = cmp.Comparer(func(a, b ID) bool { return a == b })

func TestResolve(t *testing.T) {
	a, b, c, d := tree(t)
	cases := []struct {
		path      Path
		target    *Entity
		container *Entity
	}{
		{Path{}, a, nil},
		{nil, a, nil},
		{NewPath("B"), b, a},
		{NewPath("B", "C"), c, b},
		{NewPath("D"), d, a},
		{NewPath("C"), nil, nil},
		{NewPath("B", "C", "X"), nil, nil},
		{NewPath("B").WithDest(), nil, nil},
	}
	for _, tc := range cases {
		e, cont := ResolveWithContainer(a, tc.path)
		if e != tc.target || cont != tc.container {
			t.Errorf("%s: got (%p, %p) want (%p, %p)", tc.path, e, cont, tc.target, tc.container)
		}
	}
	if e, cont := ResolveWithContainer(c, nil); e != c || cont != b {
		t.Error("empty path should give base and its container")
	}
	if Resolve(nil, NewPath("B")) != nil {
		t.Error("nil base")
	}
}

func TestResolveDestination(t *testing.T) {
	a, b, _, _ := tree(t)
	cont, id := ResolveDestination(a, NewPath("B", "New"))
	if cont != b || id.String() != "New" {
		t.Errorf("named: %p %q", cont, id)
	}
	cont, id = ResolveDestination(a, NewPath("B").WithDest())
	if cont != b || !id.IsZero() {
		t.Errorf("placeholder: %p %q", cont, id)
	}
	cont, id = ResolveDestination(a, nil)
	if cont != a || !id.IsZero() {
		t.Error("empty")
	}
	if cont, _ := ResolveDestination(a, NewPath("X", "Y")); cont != nil {
		t.Error("missing container resolved")
	}
}

func TestResolveDual(t *testing.T) {
	a, b, c, d := tree(t)
	e1, e2 := ResolveDual(a, NewPath("B", "C"), NewPath("D"))
	if e1 != c || e2 != d {
		t.Error("diverging")
	}
	e1, e2 = ResolveDual(a, NewPath("B"), NewPath("B", "C"))
	if e1 != b || e2 != c {
		t.Error("ancestor")
	}
	if e1, e2 := ResolveDual(a, NewPath("B"), NewPath("Q")); e1 != nil || e2 != nil {
		t.Error("one missing should fail both")
	}
}

func TestPathBetween(t *testing.T) {
	a, b, c, d := tree(t)
	if diff := cmp.Diff(NewPath("B", "C"), PathBetween(a, c), pathCmp); diff != "" {
		t.Errorf("A->C (-want +got):\n%s", diff)
	}
	p := PathBetween(a, b)
	if len(p) != 1 || !ir.Equal(p.Node(), ir.FromString("B")) {
		t.Errorf("immediate child should be single token, got %s", p)
	}
	if p := PathBetween(a, a); p == nil || len(p) != 0 {
		t.Error("self path")
	}
	if PathBetween(b, d) != nil {
		t.Error("unrelated entities have a path")
	}
}

// TestPathBetweenRoundTrip checks that resolving the path computed from
// an ancestor to any descendant returns that descendant.
func TestPathBetweenRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	root := New(nil)
	all := []*Entity{root}
	for i := range 200 {
		parent := all[r.IntN(len(all))]
		child := New(nil)
		name := ""
		if r.IntN(3) > 0 {
			name = fmt.Sprintf("e%d", i%17)
		}
		mustAdd(t, parent, child, name)
		all = append(all, child)
	}
	for _, x := range all {
		for y := x; y != nil; y = y.Container() {
			p := PathBetween(y, x)
			if got := Resolve(y, p); got != x {
				t.Fatalf("resolve %s from ancestor failed", p)
			}
			q, ok := PathFromNode(p.Node())
			if !ok || Resolve(y, q) != x {
				t.Fatalf("path %s does not survive code form", p)
			}
		}
	}
}

func TestPathNode(t *testing.T) {
	cases := []struct {
		p    Path
		code string
	}{
		{Path{}, "null"},
		{NewPath("B"), `"B"`},
		{NewPath("B", "C"), `["B" "C"]`},
		{NewPath("B").WithDest(), `["B" null]`},
		{Path{}.WithDest(), `[null]`},
	}
	for _, c := range cases {
		n := c.p.Node()
		back, ok := PathFromNode(n)
		if !ok {
			t.Fatalf("%s: not readable", c.p)
		}
		if diff := cmp.Diff(c.p, back, pathCmp); diff != "" {
			t.Errorf("%s (-want +got):\n%s", c.p, diff)
		}
		if got := encode.MustString(n); got != c.code {
			t.Errorf("%s: code %s want %s", c.p, got, c.code)
		}
	}
	if _, ok := PathFromNode(ir.FromInt(1)); ok {
		t.Error("number accepted as path")
	}
	if _, ok := PathFromNode(ir.FromSlice([]*ir.Node{ir.FromBool(true)})); ok {
		t.Error("bool token accepted")
	}
}
