package entity

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// RandomSeed requires a read reference.
func (e *Entity) RandomSeed() string { return e.seed }

// SetRandomSeed sets e's seed. When deep is set each contained entity is
// reseeded with DeriveSeed of its container's seed and its own id.
//
// The caller holds write references on e, and on its subtree when deep.
func (e *Entity) SetRandomSeed(seed string, deep bool) {
	e.seed = seed
	if !deep {
		return
	}
	for _, c := range e.ContainedEntities() {
		c.SetRandomSeed(DeriveSeed(seed, c.ID()), true)
	}
}

// DeriveSeed gives the seed of an entity named id created inside an
// entity seeded with seed.
func DeriveSeed(seed string, id ID) string {
	d := xxhash.New()
	d.WriteString(seed)
	d.Write([]byte{0})
	d.WriteString(id.String())
	return strconv.FormatUint(d.Sum64(), 16)
}
