package listener

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/signadot/entitree/entity"
)

type Handle uint64

var ErrUnknownHandle = errors.New("unknown listener handle")

// Registry tracks the listeners attached to a tree.
type Registry struct {
	mu   sync.RWMutex
	next Handle
	ls   map[Handle]*Listener
}

func NewRegistry() *Registry {
	return &Registry{ls: map[Handle]*Listener{}}
}

func (r *Registry) Register(anchor *entity.Entity, cfg Config) Handle {
	l := New(anchor, cfg)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.ls[r.next] = l
	return r.next
}

func (r *Registry) Get(h Handle) *Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ls[h]
}

// Unregister removes and closes the listener.
func (r *Registry) Unregister(h Handle) error {
	r.mu.Lock()
	l, ok := r.ls[h]
	delete(r.ls, h)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownHandle, h)
	}
	return l.Close()
}

// For returns the listeners anchored at target or at one of its
// containers, in registration order.
func (r *Registry) For(target *entity.Entity) []*Listener {
	if target == nil {
		return nil
	}
	anchors := map[*entity.Entity]bool{}
	for x := target; x != nil; x = x.Container() {
		anchors[x] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var hs []Handle
	for h, l := range r.ls {
		if anchors[l.anchor] {
			hs = append(hs, h)
		}
	}
	slices.Sort(hs)
	res := make([]*Listener, len(hs))
	for i, h := range hs {
		res[i] = r.ls[h]
	}
	return res
}

// Each calls fn on every listener in registration order.
func (r *Registry) Each(fn func(Handle, *Listener)) {
	r.mu.RLock()
	hs := slices.Sorted(func(yield func(Handle) bool) {
		for h := range r.ls {
			if !yield(h) {
				return
			}
		}
	})
	ls := make([]*Listener, len(hs))
	for i, h := range hs {
		ls[i] = r.ls[h]
	}
	r.mu.RUnlock()
	for i, h := range hs {
		fn(h, ls[i])
	}
}

// Close unregisters every listener and returns the first close error.
func (r *Registry) Close() error {
	r.mu.Lock()
	ls := r.ls
	r.ls = map[Handle]*Listener{}
	r.mu.Unlock()
	var errs []error
	for _, l := range ls {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
