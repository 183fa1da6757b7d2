// Package persist keeps persistent entities in sync with their stored
// resources and tracks which entities hold root permission.
//
// An entity is directly persistent when the Manager's Registry has an
// asset for it, and indirectly persistent when one of its containers is.
// After a mutation, OnEntityUpdated rewrites the resource of the nearest
// persistent entity: the whole flattened tree, or only the changed
// entity's own resource when the asset is not flattened.
package persist

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/debug"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/resource"
)

// Metrics receives one observation per store or load.
type Metrics interface {
	ObservePersist(op, fileType string, err error, d time.Duration)
}

// Manager holds the persistence and root permission tables. Methods must
// be called without holding references on the entities involved; they
// acquire read references themselves.
type Manager struct {
	Resources resource.Store
	Registry  *Registry
	Roots     *RootPermissions
	Logger    *slog.Logger
	Metrics   Metrics

	Pretty   bool
	SortKeys bool
	// DefaultType is used for keys without an extension.
	DefaultType caml.FileType
	// Runtime is the version files are checked against; nil means
	// caml.Current.
	Runtime *caml.Version
}

func NewManager(store resource.Store) *Manager {
	return &Manager{
		Resources:   store,
		Registry:    NewRegistry(),
		Roots:       NewRootPermissions(),
		Logger:      slog.Default(),
		DefaultType: caml.FileTypeAmlg,
	}
}

func (m *Manager) runtime() caml.Version {
	if m.Runtime != nil {
		return *m.Runtime
	}
	return caml.Current
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m *Manager) observe(op string, ft caml.FileType, err error, start time.Time) {
	if m.Metrics != nil {
		m.Metrics.ObservePersist(op, string(ft), err, time.Since(start))
	}
}

// Asset makes an asset for key using the manager's default type.
func (m *Manager) Asset(key string, flatten bool) (Asset, error) {
	return NewAsset(key, m.DefaultType, flatten)
}

func (m *Manager) MarkPersistent(e *entity.Entity, a Asset) { m.Registry.Set(e, a) }

func (m *Manager) ClearPersistent(e *entity.Entity) bool { return m.Registry.Clear(e) }

func (m *Manager) IsDirectlyPersistent(e *entity.Entity) bool {
	_, ok := m.Registry.Get(e)
	return ok
}

func (m *Manager) IsIndirectlyPersistent(e *entity.Entity) bool {
	_, _, ok := m.nearest(e)
	return ok
}

// nearest finds e or the closest container of e that is directly
// persistent.
func (m *Manager) nearest(e *entity.Entity) (*entity.Entity, Asset, bool) {
	for cur := e; cur != nil; cur = cur.Container() {
		if a, ok := m.Registry.Get(cur); ok {
			return cur, a, true
		}
	}
	return nil, Asset{}, false
}

func (m *Manager) SetRootPermission(e *entity.Entity, permission bool) {
	m.Roots.Set(e, permission)
}

func (m *Manager) HasRootPermission(e *entity.Entity) bool { return m.Roots.Has(e) }

// Store writes e and its subtree to a. When persistent is set, e (and,
// for an unflattened asset, every contained entity) becomes directly
// persistent.
func (m *Manager) Store(ctx context.Context, e *entity.Entity, a Asset, persistent bool) (err error) {
	start := time.Now()
	defer func() { m.observe("store", a.Type, err, start) }()
	b := entity.AcquireSubtree(e, entity.Read)
	if b == nil {
		return entity.ErrDestroyed
	}
	defer b.Release()
	if a.Flatten {
		err = m.putFlat(ctx, e, a)
		if err == nil && persistent {
			m.Registry.Set(e, a)
		}
		return err
	}
	if _, err := m.Resources.DeletePrefix(ctx, a.Dir()); err != nil {
		return err
	}
	return m.putTree(ctx, e, a, persistent)
}

func (m *Manager) putFlat(ctx context.Context, e *entity.Entity, a Asset) error {
	if a.Type == caml.FileTypeJSON {
		return fmt.Errorf("%w: json cannot hold contained entities", ErrFileType)
	}
	d, err := m.marshal(Flatten(e), a.Type)
	if err != nil {
		return err
	}
	return m.put(ctx, a.Key, d)
}

func (m *Manager) putTree(ctx context.Context, e *entity.Entity, a Asset, persistent bool) error {
	if err := m.putOne(ctx, e, a); err != nil {
		return err
	}
	if persistent {
		m.Registry.Set(e, a)
	}
	for _, c := range e.ContainedEntities() {
		if err := m.putTree(ctx, c, a.Child(c.ID()), persistent); err != nil {
			return err
		}
	}
	return nil
}

// putOne writes e's own resource and metadata.
func (m *Manager) putOne(ctx context.Context, e *entity.Entity, a Asset) error {
	d, err := m.marshal(e.RootRef(), a.Type)
	if err != nil {
		return err
	}
	if err := m.put(ctx, a.Key, d); err != nil {
		return err
	}
	md, err := m.marshal(metadataOf(e), caml.FileTypeAmlg)
	if err != nil {
		return err
	}
	return m.put(ctx, a.MetaKey(), md)
}

func (m *Manager) put(ctx context.Context, key string, d []byte) error {
	if _, err := m.Resources.Put(ctx, key, bytes.NewReader(d)); err != nil {
		return err
	}
	if debug.Persist() {
		debug.Logf("persist", "put %s (%d bytes)", key, len(d))
	}
	return nil
}

// OnEntityUpdated rewrites the stored form of e if it is directly or
// indirectly persistent. Failures are logged.
func (m *Manager) OnEntityUpdated(ctx context.Context, e *entity.Entity) {
	p, a, ok := m.nearest(e)
	if !ok {
		return
	}
	var err error
	if a.Flatten {
		err = m.Store(ctx, p, a, false)
	} else {
		err = m.storeOne(ctx, e, m.assetFor(p, a, e))
	}
	if err != nil {
		m.logger().Error("update persistent entity", "key", a.Key, "error", err)
	}
}

// OnSubtreeUpdated is OnEntityUpdated after a deep change below e: a
// flattened tree is written once, otherwise every entity in the subtree
// is rewritten.
func (m *Manager) OnSubtreeUpdated(ctx context.Context, e *entity.Entity) {
	_, a, ok := m.nearest(e)
	if !ok {
		return
	}
	if a.Flatten {
		m.OnEntityUpdated(ctx, e)
		return
	}
	var xs []*entity.Entity
	e.Walk(func(x *entity.Entity) bool {
		xs = append(xs, x)
		return true
	})
	for _, x := range xs {
		m.OnEntityUpdated(ctx, x)
	}
}

// OnEntityCreated stores a newly contained entity. Under an unflattened
// asset it gets its own resources and its container's metadata is
// rewritten to record the new child.
func (m *Manager) OnEntityCreated(ctx context.Context, e *entity.Entity) {
	c := e.Container()
	if c == nil {
		return
	}
	p, a, ok := m.nearest(c)
	if !ok {
		return
	}
	if a.Flatten {
		m.OnEntityUpdated(ctx, c)
		return
	}
	ca := m.assetFor(p, a, e)
	if err := m.Store(ctx, e, ca, true); err != nil {
		m.logger().Error("store created entity", "key", ca.Key, "error", err)
		return
	}
	m.OnEntityUpdated(ctx, c)
}

// OnEntityDestroyed revokes root permission throughout e's subtree and
// removes the resources of every directly persistent entity in it. The
// caller follows up with OnEntityUpdated on the former container.
func (m *Manager) OnEntityDestroyed(ctx context.Context, e *entity.Entity) {
	e.Walk(func(x *entity.Entity) bool {
		m.Roots.Set(x, false)
		return true
	})
	m.drop(ctx, e)
}

// OnEntityMoved rewrites persistent state after e was moved out of from:
// resources at e's old location are removed, from is updated and e is
// stored as if newly created.
func (m *Manager) OnEntityMoved(ctx context.Context, e, from *entity.Entity) {
	m.drop(ctx, e)
	m.OnEntityUpdated(ctx, from)
	m.OnEntityCreated(ctx, e)
}

func (m *Manager) drop(ctx context.Context, e *entity.Entity) {
	var xs []*entity.Entity
	e.Walk(func(x *entity.Entity) bool {
		xs = append(xs, x)
		return true
	})
	for _, x := range xs {
		a, ok := m.Registry.Get(x)
		if !ok {
			continue
		}
		m.Registry.Clear(x)
		if err := m.remove(ctx, a); err != nil {
			m.logger().Error("remove persistent entity", "key", a.Key, "error", err)
		}
	}
}

func (m *Manager) remove(ctx context.Context, a Asset) error {
	if _, err := m.Resources.Delete(ctx, a.Key); err != nil {
		return err
	}
	if a.Flatten {
		return nil
	}
	if _, err := m.Resources.Delete(ctx, a.MetaKey()); err != nil {
		return err
	}
	_, err := m.Resources.DeletePrefix(ctx, a.Dir())
	return err
}

// assetFor names the unflattened resource of e below the persistent p.
func (m *Manager) assetFor(p *entity.Entity, a Asset, e *entity.Entity) Asset {
	if ea, ok := m.Registry.Get(e); ok {
		return ea
	}
	for _, t := range entity.PathBetween(p, e) {
		a = a.Child(t.ID)
	}
	return a
}

func (m *Manager) storeOne(ctx context.Context, e *entity.Entity, a Asset) (err error) {
	start := time.Now()
	defer func() { m.observe("store", a.Type, err, start) }()
	r := entity.Acquire(e, entity.Read)
	if r == nil {
		return entity.ErrDestroyed
	}
	defer r.Release()
	if err := m.putOne(ctx, e, a); err != nil {
		return err
	}
	m.Registry.Set(e, a)
	return nil
}
