package entity

import (
	"strings"

	"github.com/signadot/entitree/ir"
)

// Permissions is a set of capabilities granted to an entity.
type Permissions uint32

const (
	PermStdOutErr Permissions = 1 << iota
	PermStdIn
	PermLoad
	PermStore
	PermEnvironment
	PermAlterPerformance
	PermSystem

	PermNone Permissions = 0
	PermAll              = PermStdOutErr | PermStdIn | PermLoad | PermStore |
		PermEnvironment | PermAlterPerformance | PermSystem
)

var permNames = []struct {
	p    Permissions
	name string
}{
	{PermStdOutErr, "std_out_and_std_err"},
	{PermStdIn, "std_in"},
	{PermLoad, "load"},
	{PermStore, "store"},
	{PermEnvironment, "environment"},
	{PermAlterPerformance, "alter_performance"},
	{PermSystem, "system"},
}

func (p Permissions) Has(q Permissions) bool { return p&q == q }

func (p Permissions) String() string {
	if p == PermNone {
		return "none"
	}
	var parts []string
	for _, pn := range permNames {
		if p&pn.p != 0 {
			parts = append(parts, pn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Node renders p as an assoc of every permission name to a bool.
func (p Permissions) Node() *ir.Node {
	res := &ir.Node{Type: ir.AssocType}
	for _, pn := range permNames {
		res.Set(pn.name, ir.FromBool(p&pn.p != 0))
	}
	return res
}

// PermissionsFromNode reads a permission change. A bool grants or revokes
// everything; an assoc names individual permissions, and only those
// named are in the returned mask.
func PermissionsFromNode(n *ir.Node) (mask, values Permissions, ok bool) {
	if n == nil {
		return 0, 0, false
	}
	switch n.Type {
	case ir.BoolType:
		if n.Bool {
			return PermAll, PermAll, true
		}
		return PermAll, PermNone, true
	case ir.AssocType:
	default:
		return 0, 0, false
	}
outer:
	for i, f := range n.Fields {
		for _, pn := range permNames {
			if pn.name != f.String {
				continue
			}
			mask |= pn.p
			if ir.Truth(n.Values[i]) {
				values |= pn.p
			}
			continue outer
		}
		return 0, 0, false
	}
	return mask, values, true
}

// Permissions requires a read reference.
func (e *Entity) Permissions() Permissions { return e.perms }

// SetPermissions replaces the bits in mask with those of values, on e
// and, when deep, on every contained entity.
func (e *Entity) SetPermissions(mask, values Permissions, deep bool) {
	e.perms = e.perms&^mask | values&mask
	if !deep {
		return
	}
	for _, c := range e.ContainedEntities() {
		c.SetPermissions(mask, values, true)
	}
}
