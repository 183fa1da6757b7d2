// Package replay applies logged entries to an entity tree, rebuilding the
// state a listener observed.
package replay

import (
	"errors"
	"fmt"
	"io"

	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/listener"
)

var (
	ErrNotFound = errors.New("replay target not found")
	ErrRejected = errors.New("replay operation rejected")
)

type options struct {
	print  io.Writer
	system func(*ir.Node) error
}

type Option func(*options)

// WithPrint writes the text of print entries to w. Print entries are
// otherwise skipped.
func WithPrint(w io.Writer) Option {
	return func(o *options) { o.print = w }
}

// WithSystem handles system entries. They are skipped by default.
func WithSystem(f func(params *ir.Node) error) Option {
	return func(o *options) { o.system = f }
}

// Apply parses one entry from its code form and applies it at anchor.
func Apply(anchor *entity.Entity, code *ir.Node, opts ...Option) error {
	e, err := listener.ParseEntry(code)
	if err != nil {
		return err
	}
	return ApplyEntry(anchor, e, opts...)
}

// ApplyAll applies every entry of a (seq ...) form in order, stopping at
// the first failure.
func ApplyAll(anchor *entity.Entity, seq *ir.Node, opts ...Option) error {
	es, err := listener.EntriesOf(seq)
	if err != nil {
		return err
	}
	return ApplyEntries(anchor, es, opts...)
}

func ApplyEntries(anchor *entity.Entity, es []listener.Entry, opts ...Option) error {
	for _, e := range es {
		if err := ApplyEntry(anchor, e, opts...); err != nil {
			return fmt.Errorf("entry %d %s: %w", e.Seq, e.Kind, err)
		}
	}
	return nil
}

func ApplyEntry(anchor *entity.Entity, e listener.Entry, opts ...Option) error {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	switch e.Kind {
	case listener.Print:
		if o.print == nil {
			return nil
		}
		for _, p := range e.Payload {
			if _, err := io.WriteString(o.print, p.String); err != nil {
				return err
			}
		}
		return nil
	case listener.System:
		if o.system == nil || len(e.Payload) == 0 {
			return nil
		}
		return o.system(e.Payload[0])
	case listener.CreateEntities:
		return create(anchor, e)
	case listener.DestroyEntities:
		return destroy(anchor, e)
	}
	target := entity.Resolve(anchor, e.Path)
	if target == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, e.Path)
	}
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrRejected, e.Kind)
	}
	if e.Kind == listener.SetEntityRandSeed || e.Kind == listener.SetEntityPermissions {
		b := entity.AcquireSubtree(target, entity.Write)
		if b == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, e.Path)
		}
		defer b.Release()
	} else {
		r := entity.Acquire(target, entity.Write)
		if r == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, e.Path)
		}
		defer r.Release()
	}
	return mutate(target, e)
}

// mutate requires write references on target.
func mutate(target *entity.Entity, e listener.Entry) error {
	arg := e.Payload[0]
	ok := true
	switch e.Kind {
	case listener.AssignToEntities:
		ok = target.SetLabels(arg, false)
	case listener.AccumToEntities:
		ok = target.SetLabels(arg, true)
	case listener.RemoveFromEntities:
		_, ok = target.RemoveLabels(arg)
	case listener.AssignEntityRoots:
		target.SetRoot(arg.Clone())
	case listener.AccumEntityRoots:
		target.AccumRoot(arg)
	case listener.SetEntityRandSeed:
		if arg.Type != ir.StringType {
			return fmt.Errorf("%w: seed is %s", ErrRejected, arg.Type)
		}
		target.SetRandomSeed(arg.String, e.Deep())
	case listener.SetEntityPermissions:
		mask, values, pok := entity.PermissionsFromNode(arg)
		if !pok {
			return fmt.Errorf("%w: bad permissions", ErrRejected)
		}
		target.SetPermissions(mask, values, e.Deep())
	default:
		return fmt.Errorf("%w: %s", ErrRejected, e.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: %s on %s payload", ErrRejected, e.Kind, target.RootRef().Type)
	}
	return nil
}

func create(anchor *entity.Entity, e listener.Entry) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: create without payload", ErrRejected)
	}
	container, id := entity.ResolveDestination(anchor, e.Path)
	if container == nil {
		return fmt.Errorf("%w: container of %s", ErrNotFound, e.Path)
	}
	r := entity.Acquire(container, entity.Write)
	if r == nil {
		return fmt.Errorf("%w: container of %s", ErrNotFound, e.Path)
	}
	defer r.Release()
	child := entity.New(e.Payload[0].Clone())
	got, err := container.AddContained(child, id)
	if err != nil {
		return err
	}
	child.SetRandomSeed(entity.DeriveSeed(container.RandomSeed(), got), false)
	return nil
}

func destroy(anchor *entity.Entity, e listener.Entry) error {
	if len(e.Path) == 0 {
		return fmt.Errorf("%w: cannot destroy the anchor", ErrRejected)
	}
	container := entity.Resolve(anchor, e.Path.Container())
	if container == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, e.Path)
	}
	b := entity.AcquireSubtree(container, entity.Write)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, e.Path)
	}
	defer b.Release()
	target := container.Contained(e.Path.Last().ID)
	if target == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, e.Path)
	}
	if !target.Destroy() {
		return fmt.Errorf("%w: %s is executing", ErrRejected, e.Path)
	}
	return nil
}
