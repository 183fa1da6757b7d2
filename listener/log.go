package listener

import (
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/ir"
)

// The Log methods are called after a mutation has succeeded, with the
// caller still holding its references on the target.

// LogCreateEntity logs one create_entities entry for e and one for each
// entity it contains, containers first, each with a full copy of that
// entity's payload.
func (l *Listener) LogCreateEntity(e *entity.Entity) {
	if e == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Walk(func(x *entity.Entity) bool {
		p, ok := l.path(x)
		if !ok {
			return false
		}
		l.append(Entry{Kind: CreateEntities, Path: p, Payload: []*ir.Node{x.Root()}}, true)
		return true
	})
}

// LogDestroyEntity logs the destruction of the entity that was contained
// in container under id. It takes the container because the destroyed
// entity no longer has a path from the anchor.
func (l *Listener) LogDestroyEntity(container *entity.Entity, id entity.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.path(container)
	if !ok {
		return
	}
	l.append(Entry{Kind: DestroyEntities, Path: p.Append(id)}, true)
}

func (l *Listener) LogWriteLabelValue(e *entity.Entity, label string, value *ir.Node) {
	pairs := &ir.Node{Type: ir.AssocType}
	pairs.Set(label, value.Clone())
	l.logTarget(AssignToEntities, e, pairs)
}

// LogWriteLabelValues logs a bulk assignment. Pairs that are not an assoc
// are not logged.
func (l *Listener) LogWriteLabelValues(e *entity.Entity, pairs *ir.Node, accum bool) {
	if pairs == nil || pairs.Type != ir.AssocType {
		return
	}
	k := AssignToEntities
	if accum {
		k = AccumToEntities
	}
	l.logTarget(k, e, pairs.Clone())
}

// LogRemoveLabels logs a label removal. Labels that are not a list are
// not logged.
func (l *Listener) LogRemoveLabels(e *entity.Entity, labels *ir.Node) {
	if labels == nil || labels.Type != ir.ListType {
		return
	}
	l.logTarget(RemoveFromEntities, e, labels.Clone())
}

// LogWriteRoot logs e's whole current payload.
func (l *Listener) LogWriteRoot(e *entity.Entity) {
	l.logTarget(AssignEntityRoots, e, e.Root())
}

func (l *Listener) LogAccumRoot(e *entity.Entity, value *ir.Node) {
	l.logTarget(AccumEntityRoots, e, value.Clone())
}

// LogSetRandomSeed writes .false after the seed only for a shallow set.
func (l *Listener) LogSetRandomSeed(e *entity.Entity, seed string, deep bool) {
	payload := []*ir.Node{ir.FromString(seed)}
	if !deep {
		payload = append(payload, ir.FromBool(false))
	}
	l.logTarget(SetEntityRandSeed, e, payload...)
}

// LogSetPermissions logs the permissions named in mask with their new
// values.
func (l *Listener) LogSetPermissions(e *entity.Entity, mask, values entity.Permissions, deep bool) {
	perms := &ir.Node{Type: ir.AssocType}
	all := values.Node()
	maskNode := mask.Node()
	for i, f := range maskNode.Fields {
		if maskNode.Values[i].Bool {
			perms.Set(f.String, all.Values[i].Clone())
		}
	}
	l.logTarget(SetEntityPermissions, e, perms, ir.FromBool(deep))
}

func (l *Listener) LogSystemCall(params *ir.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.append(Entry{Kind: System, Payload: []*ir.Node{params.Clone()}}, true)
}

// LogPrint logs printed output without flushing; callers Flush after a
// burst of prints.
func (l *Listener) LogPrint(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.append(Entry{Kind: Print, Payload: []*ir.Node{ir.FromString(s)}}, false)
}
