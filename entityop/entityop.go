// Package entityop runs entity operations end to end.
//
// Every mutation follows the same steps: resolve the target path, take
// references, mutate, log to the listeners covering the target while the
// references are still held, release, and finally let the persistence
// manager rewrite stored state. Persistence comes last because it takes
// its own read references.
package entityop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/listener"
	"github.com/signadot/entitree/persist"
)

var (
	ErrNotFound  = errors.New("entity not found")
	ErrEmptyPath = errors.New("path names no contained entity")
)

// Metrics receives one observation per reference acquisition.
type Metrics interface {
	ObserveLock(op string, attempts int, wait time.Duration)
}

// Runtime holds what operations notify. Any field may be nil.
type Runtime struct {
	Listeners *listener.Registry
	Persist   *persist.Manager
	Logger    *slog.Logger
	Metrics   Metrics
}

func (rt *Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.Default()
	}
	return rt.Logger
}

func (rt *Runtime) listeners(e *entity.Entity) []*listener.Listener {
	if rt.Listeners == nil {
		return nil
	}
	return rt.Listeners.For(e)
}

func (rt *Runtime) observe(op string, attempts int, start time.Time) {
	if rt.Metrics != nil {
		rt.Metrics.ObserveLock(op, attempts, time.Since(start))
	}
}

// acquire resolves path and takes one reference on the target, or a
// bundle on its subtree when deep.
func (rt *Runtime) acquire(op string, base *entity.Entity, path entity.Path, mode entity.Mode, deep bool) (*entity.Entity, func()) {
	start := time.Now()
	e := entity.Resolve(base, path)
	if e == nil {
		return nil, nil
	}
	if deep {
		b := entity.AcquireSubtree(e, mode)
		if b == nil {
			return nil, nil
		}
		rt.observe(op, b.Attempts(), start)
		return e, b.Release
	}
	r := entity.Acquire(e, mode)
	if r == nil {
		return nil, nil
	}
	rt.observe(op, 1, start)
	return e, r.Release
}

// mutate applies fn to the target of path under a write reference. When
// fn succeeds, log is called once per covering listener before release.
func (rt *Runtime) mutate(ctx context.Context, op string, base *entity.Entity, path entity.Path, deep bool,
	fn func(*entity.Entity) bool, log func(*listener.Listener, *entity.Entity)) bool {

	e, release := rt.acquire(op, base, path, entity.Write, deep)
	if e == nil {
		return false
	}
	ok := fn(e)
	if ok {
		for _, l := range rt.listeners(e) {
			log(l, e)
		}
	}
	release()
	if !ok || rt.Persist == nil {
		return ok
	}
	if deep {
		rt.Persist.OnSubtreeUpdated(ctx, e)
	} else {
		rt.Persist.OnEntityUpdated(ctx, e)
	}
	return true
}

// CreateEntity makes an entity with payload root inside the container
// named by path. The last token of path gives the new id; a destination
// placeholder, or an id already in use, gets a generated one. The new
// entity's seed is derived from its container's.
func (rt *Runtime) CreateEntity(ctx context.Context, base *entity.Entity, path entity.Path, root *ir.Node) (*entity.Entity, error) {
	start := time.Now()
	container, id := entity.ResolveDestination(base, path)
	if container == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path.Container())
	}
	cr := entity.Acquire(container, entity.Write)
	if cr == nil {
		return nil, entity.ErrDestroyed
	}
	child := entity.New(root)
	r := entity.Acquire(child, entity.Write)
	rt.observe("create", 1, start)
	id, err := container.AddContained(child, id)
	if err != nil {
		r.Release()
		cr.Release()
		return nil, err
	}
	child.SetRandomSeed(entity.DeriveSeed(container.RandomSeed(), id), false)
	for _, l := range rt.listeners(child) {
		l.LogCreateEntity(child)
	}
	r.Release()
	cr.Release()
	if rt.Persist != nil {
		rt.Persist.OnEntityCreated(ctx, child)
	}
	return child, nil
}

// DestroyEntity destroys the target of path and everything it contains.
// It returns false if the target does not resolve, is base itself, or
// is executing.
func (rt *Runtime) DestroyEntity(ctx context.Context, base *entity.Entity, path entity.Path) bool {
	if len(path) == 0 || path.Last().Dest {
		return false
	}
	start := time.Now()
	container, target, b := entity.AcquireDual(base, path.Container(), path, entity.Write)
	if b == nil {
		return false
	}
	rt.observe("destroy", b.Attempts(), start)
	id := target.ID()
	if !target.Destroy() {
		b.Release()
		rt.logger().Debug("destroy refused", "path", path.String())
		return false
	}
	for _, l := range rt.listeners(container) {
		l.LogDestroyEntity(container, id)
	}
	b.Release()
	if rt.Persist != nil {
		rt.Persist.OnEntityDestroyed(ctx, target)
		rt.Persist.OnEntityUpdated(ctx, container)
	}
	return true
}

func (rt *Runtime) SetLabel(ctx context.Context, base *entity.Entity, path entity.Path, label string, value *ir.Node) bool {
	return rt.mutate(ctx, "set_label", base, path, false,
		func(e *entity.Entity) bool { return e.SetLabel(label, value) },
		func(l *listener.Listener, e *entity.Entity) { l.LogWriteLabelValue(e, label, value) })
}

// SetLabels assigns, or accumulates when accum is set, every label of
// the assoc pairs.
func (rt *Runtime) SetLabels(ctx context.Context, base *entity.Entity, path entity.Path, pairs *ir.Node, accum bool) bool {
	return rt.mutate(ctx, "set_labels", base, path, false,
		func(e *entity.Entity) bool { return e.SetLabels(pairs, accum) },
		func(l *listener.Listener, e *entity.Entity) { l.LogWriteLabelValues(e, pairs, accum) })
}

// RemoveLabels reports whether any label was removed. Nothing is logged
// otherwise.
func (rt *Runtime) RemoveLabels(ctx context.Context, base *entity.Entity, path entity.Path, labels *ir.Node) bool {
	return rt.mutate(ctx, "remove_labels", base, path, false,
		func(e *entity.Entity) bool {
			n, _ := e.RemoveLabels(labels)
			return n > 0
		},
		func(l *listener.Listener, e *entity.Entity) { l.LogRemoveLabels(e, labels) })
}

func (rt *Runtime) SetRoot(ctx context.Context, base *entity.Entity, path entity.Path, root *ir.Node) bool {
	return rt.mutate(ctx, "set_root", base, path, false,
		func(e *entity.Entity) bool {
			e.SetRoot(root.Clone())
			return true
		},
		func(l *listener.Listener, e *entity.Entity) { l.LogWriteRoot(e) })
}

func (rt *Runtime) AccumRoot(ctx context.Context, base *entity.Entity, path entity.Path, v *ir.Node) bool {
	return rt.mutate(ctx, "accum_root", base, path, false,
		func(e *entity.Entity) bool {
			e.AccumRoot(v.Clone())
			return true
		},
		func(l *listener.Listener, e *entity.Entity) { l.LogAccumRoot(e, v) })
}

// SetRandomSeed sets the target's seed and, when deep, reseeds its whole
// subtree under a single bundle.
func (rt *Runtime) SetRandomSeed(ctx context.Context, base *entity.Entity, path entity.Path, seed string, deep bool) bool {
	return rt.mutate(ctx, "set_seed", base, path, deep,
		func(e *entity.Entity) bool {
			e.SetRandomSeed(seed, deep)
			return true
		},
		func(l *listener.Listener, e *entity.Entity) { l.LogSetRandomSeed(e, seed, deep) })
}

func (rt *Runtime) SetPermissions(ctx context.Context, base *entity.Entity, path entity.Path, mask, values entity.Permissions, deep bool) bool {
	return rt.mutate(ctx, "set_permissions", base, path, deep,
		func(e *entity.Entity) bool {
			e.SetPermissions(mask, values, deep)
			return true
		},
		func(l *listener.Listener, e *entity.Entity) { l.LogSetPermissions(e, mask, values, deep) })
}

// GetLabel returns a copy of the value at label. The result is false if
// the target does not resolve or has no such label.
func (rt *Runtime) GetLabel(base *entity.Entity, path entity.Path, label string) (*ir.Node, bool) {
	e, release := rt.acquire("get_label", base, path, entity.Read, false)
	if e == nil {
		return nil, false
	}
	defer release()
	v := e.Label(label)
	return v, v != nil
}

func (rt *Runtime) GetRoot(base *entity.Entity, path entity.Path) (*ir.Node, bool) {
	e, release := rt.acquire("get_root", base, path, entity.Read, false)
	if e == nil {
		return nil, false
	}
	defer release()
	return e.Root(), true
}

// SystemCall logs params to the listeners covering anchor.
func (rt *Runtime) SystemCall(anchor *entity.Entity, params *ir.Node) {
	for _, l := range rt.listeners(anchor) {
		l.LogSystemCall(params)
	}
}

// Print logs output without flushing; see FlushPrints.
func (rt *Runtime) Print(anchor *entity.Entity, s string) {
	for _, l := range rt.listeners(anchor) {
		l.LogPrint(s)
	}
}

func (rt *Runtime) FlushPrints(anchor *entity.Entity) error {
	var errs []error
	for _, l := range rt.listeners(anchor) {
		if err := l.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Move re-contains the target of src in the container named by dst. The
// last token of dst gives the new id, generated as in CreateEntity. Both
// containers are referenced together, so concurrent moves in opposite
// directions cannot deadlock.
//
// Listeners see the move as a destroy followed by a create.
func (rt *Runtime) Move(ctx context.Context, base *entity.Entity, src, dst entity.Path) (*entity.Entity, error) {
	if len(src) == 0 || src.Last().Dest {
		return nil, ErrEmptyPath
	}
	var id entity.ID
	if !dst.Last().Dest {
		id = dst.Last().ID
	}
	dstC := dst.Container()
	start := time.Now()
	from, to, b := entity.AcquireDual(base, src.Container(), dstC, entity.Write)
	if b == nil {
		return nil, fmt.Errorf("%w: %s or %s", ErrNotFound, src.Container(), dstC)
	}
	rt.observe("move", b.Attempts(), start)
	e := from.Contained(src.Last().ID)
	if e == nil {
		b.Release()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	for x := to; x != nil; x = x.Container() {
		if x == e {
			b.Release()
			return nil, entity.ErrCycle
		}
	}
	oldID, oldIndex := e.ID(), from.ContainedIndex(e.ID())
	from.RemoveContained(e)
	if _, err := to.AddContained(e, id); err != nil {
		if rerr := from.InsertContained(e, oldID, oldIndex); rerr != nil {
			rt.logger().Error("restore after failed move", "path", src.String(), "error", rerr)
		}
		b.Release()
		return nil, err
	}
	for _, l := range rt.listeners(from) {
		l.LogDestroyEntity(from, oldID)
	}
	for _, l := range rt.listeners(to) {
		l.LogCreateEntity(e)
	}
	b.Release()
	if rt.Persist != nil {
		rt.Persist.OnEntityMoved(ctx, e, from)
	}
	return e, nil
}

// Compare reports whether the targets of p1 and p2 hold equal payloads
// and contain equal entities under the same ids in the same order. It is
// false if either target does not resolve.
func (rt *Runtime) Compare(base *entity.Entity, p1, p2 entity.Path) bool {
	start := time.Now()
	e1, e2, b := entity.AcquireDual(base, p1, p2, entity.Read)
	if b == nil {
		return false
	}
	defer b.Release()
	rt.observe("compare", b.Attempts(), start)
	return equal(e1, e2)
}

func equal(a, b *entity.Entity) bool {
	if a == b {
		return true
	}
	if !ir.Equal(a.RootRef(), b.RootRef()) {
		return false
	}
	as, bs := a.ContainedEntities(), b.ContainedEntities()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i].ID() != bs[i].ID() || !equal(as[i], bs[i]) {
			return false
		}
	}
	return true
}
