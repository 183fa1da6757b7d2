package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/listener"
	"github.com/signadot/entitree/parse"
	"github.com/signadot/entitree/replay"
	"github.com/signadot/entitree/resource"
)

// Load reads the entity stored at a. The result is uncontained; when
// persistent is set it and, for an unflattened asset, everything loaded
// with it become directly persistent.
func (m *Manager) Load(ctx context.Context, a Asset, persistent bool) (e *entity.Entity, err error) {
	start := time.Now()
	defer func() { m.observe("load", a.Type, err, start) }()
	if a.Flatten {
		e, err = m.loadFlat(ctx, a)
		if err == nil && persistent {
			m.Registry.Set(e, a)
		}
		return e, err
	}
	return m.loadTree(ctx, a, "", persistent)
}

func (m *Manager) loadFlat(ctx context.Context, a Asset) (*entity.Entity, error) {
	if a.Type == caml.FileTypeJSON {
		return nil, fmt.Errorf("%w: json cannot hold contained entities", ErrFileType)
	}
	d, err := resource.ReadAll(ctx, m.Resources, a.Key)
	if err != nil {
		return nil, err
	}
	node, err := m.unmarshal(d, a.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Key, err)
	}
	es, err := listener.EntriesOf(node)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Key, err)
	}
	e := entity.New(nil)
	if err := replay.ApplyEntries(e, es); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Key, err)
	}
	return e, nil
}

// loadTree builds an entity that no other goroutine can see yet, so it
// takes no references.
func (m *Manager) loadTree(ctx context.Context, a Asset, seed string, persistent bool) (*entity.Entity, error) {
	d, err := resource.ReadAll(ctx, m.Resources, a.Key)
	if err != nil {
		return nil, err
	}
	root, err := m.unmarshal(d, a.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Key, err)
	}
	e := entity.New(root)
	md, err := m.loadMetadata(ctx, a)
	if err != nil {
		return nil, err
	}
	if md.seed != "" {
		seed = md.seed
	}
	e.SetRandomSeed(seed, false)

	ids := md.contained
	if !md.hasOrder {
		ids, err = m.listContained(ctx, a)
		if err != nil {
			return nil, err
		}
	}
	for _, id := range ids {
		c, err := m.loadTree(ctx, a.Child(id), entity.DeriveSeed(seed, id), persistent)
		if err != nil {
			return nil, err
		}
		if _, err := e.AddContained(c, id); err != nil {
			return nil, err
		}
	}
	if persistent {
		m.Registry.Set(e, a)
	}
	return e, nil
}

func (m *Manager) loadMetadata(ctx context.Context, a Asset) (metadata, error) {
	d, err := resource.ReadAll(ctx, m.Resources, a.MetaKey())
	if errors.Is(err, resource.ErrNotFound) {
		return metadata{}, nil
	}
	if err != nil {
		return metadata{}, err
	}
	n, err := parse.Parse(d)
	if err != nil {
		return metadata{}, fmt.Errorf("%s: %w", a.MetaKey(), err)
	}
	md, err := parseMetadata(n)
	if err != nil {
		return metadata{}, fmt.Errorf("%s: %w", a.MetaKey(), err)
	}
	if md.version == "" {
		return md, nil
	}
	v, err := caml.ParseVersion(md.version)
	if err != nil {
		return metadata{}, fmt.Errorf("%s: %w", a.MetaKey(), err)
	}
	if v.IsDev() {
		m.logger().Warn("loading entity written by an unversioned build", "key", a.Key)
		return md, nil
	}
	if rt := m.runtime(); !rt.CanRead(v) {
		return metadata{}, fmt.Errorf("%w: %s written by %s, runtime %s", caml.ErrIncompatible, a.Key, v, rt)
	}
	return md, nil
}

func (m *Manager) listContained(ctx context.Context, a Asset) ([]entity.ID, error) {
	infos, err := m.Resources.List(ctx, a.Dir())
	if err != nil {
		return nil, err
	}
	var ids []entity.ID
	for _, info := range infos {
		if id, ok := a.childID(info.Key); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
