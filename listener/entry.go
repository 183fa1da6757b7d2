package listener

import (
	"errors"
	"fmt"

	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/ir"
)

var ErrEntry = errors.New("malformed entry")

// Entry is one logged operation. Path is relative to the listener anchor
// and is empty when the anchor itself is the target.
type Entry struct {
	Seq     uint64
	Kind    Kind
	Path    entity.Path
	Payload []*ir.Node
}

// Node builds the code form (kind [path] payload...). The path is left
// out when empty.
func (e Entry) Node() *ir.Node {
	args := make([]*ir.Node, 0, len(e.Payload)+1)
	if e.Kind.hasPath() && len(e.Path) > 0 {
		args = append(args, e.Path.Node())
	}
	for _, p := range e.Payload {
		args = append(args, p.Clone())
	}
	return ir.Call(e.Kind.String(), args...)
}

// Deep reports the deep flag of a seed or permissions entry, true when
// absent.
func (e Entry) Deep() bool {
	if !e.Kind.deepFlag() || len(e.Payload) < 2 {
		return true
	}
	return ir.Truth(e.Payload[len(e.Payload)-1])
}

// ParseEntry reads an entry from its code form. Whether the first
// argument is a path is decided by the argument count for the kind.
func ParseEntry(n *ir.Node) (Entry, error) {
	if n == nil || n.Type != ir.CallType {
		return Entry{}, fmt.Errorf("%w: not a call", ErrEntry)
	}
	k, err := ParseKind(n.String)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrEntry, err)
	}
	args := n.Values
	res := Entry{Kind: k}
	want := k.arity()
	if want < 0 {
		res.Payload = cloneAll(args)
		return res, nil
	}
	rest := args
	var deep *ir.Node
	if k.deepFlag() && len(rest) > want && rest[len(rest)-1].Type == ir.BoolType {
		deep = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	switch len(rest) {
	case want:
	case want + 1:
		p, ok := entity.PathFromNode(rest[0])
		if !ok {
			return Entry{}, fmt.Errorf("%w: bad path in %s", ErrEntry, k)
		}
		res.Path = p
		rest = rest[1:]
	default:
		return Entry{}, fmt.Errorf("%w: %s takes %d or %d arguments, got %d", ErrEntry, k, want, want+1, len(args))
	}
	res.Payload = cloneAll(rest)
	if deep != nil {
		res.Payload = append(res.Payload, deep.Clone())
	}
	return res, nil
}

func cloneAll(ns []*ir.Node) []*ir.Node {
	res := make([]*ir.Node, len(ns))
	for i, n := range ns {
		res[i] = n.Clone()
	}
	return res
}
