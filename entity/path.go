package entity

import (
	"strings"

	"github.com/signadot/entitree/ir"
)

// Token is one step of a Path. A Dest token is a placeholder for an
// identity that is only chosen when the destination is created.
type Token struct {
	ID   ID
	Dest bool
}

// Path is a route relative to the entity it is resolved against. The
// empty path denotes that entity.
type Path []Token

func NewPath(names ...string) Path {
	res := make(Path, len(names))
	for i, n := range names {
		res[i] = Token{ID: Intern(n)}
	}
	return res
}

// WithDest returns p followed by a destination placeholder.
func (p Path) WithDest() Path {
	return append(p[:len(p):len(p)], Token{Dest: true})
}

func (p Path) Append(id ID) Path {
	return append(p[:len(p):len(p)], Token{ID: id})
}

// Container returns the path to the container of p's target.
func (p Path) Container() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

func (p Path) Last() Token {
	if len(p) == 0 {
		return Token{}
	}
	return p[len(p)-1]
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, t := range p {
		if t.Dest {
			parts[i] = "*"
			continue
		}
		parts[i] = t.ID.String()
	}
	return strings.Join(parts, "/")
}

// Node renders p as code: null for the empty path, a bare string for a
// single token and a list otherwise. Destination placeholders are null.
func (p Path) Node() *ir.Node {
	switch {
	case len(p) == 0:
		return ir.Null()
	case len(p) == 1 && !p[0].Dest:
		return ir.FromString(p[0].ID.String())
	}
	vs := make([]*ir.Node, len(p))
	for i, t := range p {
		if t.Dest {
			vs[i] = ir.Null()
			continue
		}
		vs[i] = ir.FromString(t.ID.String())
	}
	return ir.FromSlice(vs)
}

// PathFromNode is the inverse of Path.Node. Symbols are accepted in place
// of strings.
func PathFromNode(n *ir.Node) (Path, bool) {
	if n == nil || n.Type == ir.NullType {
		return Path{}, true
	}
	switch n.Type {
	case ir.StringType, ir.SymbolType:
		return Path{{ID: Intern(n.String)}}, true
	case ir.ListType:
	default:
		return nil, false
	}
	res := make(Path, len(n.Values))
	for i, v := range n.Values {
		switch v.Type {
		case ir.NullType:
			res[i] = Token{Dest: true}
		case ir.StringType, ir.SymbolType:
			res[i] = Token{ID: Intern(v.String)}
		default:
			return nil, false
		}
	}
	return res, true
}
