package persist

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/entity"
)

// MetaExt is the extension of the metadata resource stored next to an
// entity that is not flattened.
const MetaExt = ".mdam"

// Asset is where a persistent entity is stored.
type Asset struct {
	// Key is the resource key, extension included.
	Key  string
	Type caml.FileType
	// Flatten stores the entity and everything it contains in the single
	// resource at Key. Otherwise each contained entity gets its own
	// resource in a directory named after the entity's base key.
	Flatten bool
}

// NewAsset derives the file type from the extension of key. A key without
// an extension gets def's.
func NewAsset(key string, def caml.FileType, flatten bool) (Asset, error) {
	if path.Ext(key) == "" {
		if def == "" {
			def = caml.FileTypeAmlg
		}
		return Asset{Key: key + def.Ext(), Type: def, Flatten: flatten}, nil
	}
	ft, err := caml.FileTypeOf(key)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrFileType, err)
	}
	return Asset{Key: key, Type: ft, Flatten: flatten}, nil
}

// Base is Key without its extension.
func (a Asset) Base() string { return strings.TrimSuffix(a.Key, a.Type.Ext()) }

func (a Asset) MetaKey() string { return a.Base() + MetaExt }

// Dir is the prefix under which contained entities are stored.
func (a Asset) Dir() string { return a.Base() + "/" }

// Child is the asset of the entity named id contained in a's entity.
func (a Asset) Child(id entity.ID) Asset {
	return Asset{Key: a.Dir() + url.PathEscape(id.String()) + a.Type.Ext(), Type: a.Type}
}

// childID is the inverse of Child for a key listed under a.Dir().
func (a Asset) childID(key string) (entity.ID, bool) {
	name, ok := strings.CutPrefix(key, a.Dir())
	if !ok || strings.Contains(name, "/") {
		return entity.ID{}, false
	}
	name, ok = strings.CutSuffix(name, a.Type.Ext())
	if !ok {
		return entity.ID{}, false
	}
	s, err := url.PathUnescape(name)
	if err != nil || s == "" {
		return entity.ID{}, false
	}
	return entity.Intern(s), true
}

// Registry maps directly persistent entities to their assets.
type Registry struct {
	mu     sync.RWMutex
	assets map[*entity.Entity]Asset
}

func NewRegistry() *Registry {
	return &Registry{assets: map[*entity.Entity]Asset{}}
}

func (r *Registry) Set(e *entity.Entity, a Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[e] = a
}

func (r *Registry) Get(e *entity.Entity) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[e]
	return a, ok
}

func (r *Registry) Clear(e *entity.Entity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.assets[e]
	delete(r.assets, e)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}

// RootPermissions is the set of entities granted root permission.
type RootPermissions struct {
	mu  sync.RWMutex
	set map[*entity.Entity]struct{}
}

func NewRootPermissions() *RootPermissions {
	return &RootPermissions{set: map[*entity.Entity]struct{}{}}
}

func (r *RootPermissions) Set(e *entity.Entity, permission bool) {
	if e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if permission {
		r.set[e] = struct{}{}
		return
	}
	delete(r.set, e)
}

func (r *RootPermissions) Has(e *entity.Entity) bool {
	if e == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.set[e]
	return ok
}

func (r *RootPermissions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.set)
}
