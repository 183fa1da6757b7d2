package entity

import "github.com/signadot/entitree/ir"

// The methods in this file require the caller to hold a reference on the
// entity: a read reference for the getters and a write reference for
// everything else.

// Root returns a copy of the payload tree.
func (e *Entity) Root() *ir.Node { return e.root.Clone() }

// RootRef returns the live payload tree, which must not be modified.
func (e *Entity) RootRef() *ir.Node { return e.root }

// SetRoot replaces the payload tree, taking ownership of root.
func (e *Entity) SetRoot(root *ir.Node) {
	if root == nil {
		root = ir.Null()
	}
	if root.Parent != nil {
		root = root.Clone()
	}
	e.root = root
}

func (e *Entity) AccumRoot(v *ir.Node) {
	e.root = ir.Accumulate(e.root, v)
}

// Labels are the top level keys of an assoc payload.
func (e *Entity) Labels() []string {
	if e.root.Type != ir.AssocType {
		return nil
	}
	return e.root.Keys()
}

// Label returns a copy of the value at label, or nil.
func (e *Entity) Label(label string) *ir.Node {
	if e.root.Type != ir.AssocType {
		return nil
	}
	return ir.Get(e.root, label).Clone()
}

// SetLabel assigns value at label. A null payload becomes an assoc; any
// other non-assoc payload has no labels and SetLabel returns false.
func (e *Entity) SetLabel(label string, value *ir.Node) bool {
	if !e.labelRoot() {
		return false
	}
	e.root.Set(label, value.Clone())
	return true
}

func (e *Entity) AccumLabel(label string, value *ir.Node) bool {
	if !e.labelRoot() {
		return false
	}
	e.root.Set(label, ir.Accumulate(ir.Get(e.root, label), value))
	return true
}

// SetLabels assigns or accumulates every key of pairs, which must be an
// assoc.
func (e *Entity) SetLabels(pairs *ir.Node, accum bool) bool {
	if pairs == nil || pairs.Type != ir.AssocType || !e.labelRoot() {
		return false
	}
	for i, k := range pairs.Fields {
		if accum {
			e.AccumLabel(k.String, pairs.Values[i])
			continue
		}
		e.SetLabel(k.String, pairs.Values[i])
	}
	return true
}

// RemoveLabels deletes each label named in labels, which must be a list
// of strings or symbols, and returns how many were present. ok is false
// if labels has the wrong shape.
func (e *Entity) RemoveLabels(labels *ir.Node) (n int, ok bool) {
	if labels == nil || labels.Type != ir.ListType {
		return 0, false
	}
	for _, l := range labels.Values {
		if l.Type != ir.StringType && l.Type != ir.SymbolType {
			return 0, false
		}
	}
	if e.root.Type != ir.AssocType {
		return 0, true
	}
	for _, l := range labels.Values {
		if e.root.Delete(l.String) {
			n++
		}
	}
	return n, true
}

func (e *Entity) labelRoot() bool {
	switch e.root.Type {
	case ir.AssocType:
		return true
	case ir.NullType:
		e.root = &ir.Node{Type: ir.AssocType}
		return true
	}
	return false
}
