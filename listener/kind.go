package listener

import "fmt"

// Kind is the operation an entry records. Its string form is the opcode
// the entry is written with.
type Kind int

const (
	CreateEntities Kind = iota
	DestroyEntities
	AssignToEntities
	AccumToEntities
	RemoveFromEntities
	AssignEntityRoots
	AccumEntityRoots
	SetEntityRandSeed
	SetEntityPermissions
	System
	Print
)

var kindNames = [...]string{
	CreateEntities:       "create_entities",
	DestroyEntities:      "destroy_entities",
	AssignToEntities:     "assign_to_entities",
	AccumToEntities:      "accum_to_entities",
	RemoveFromEntities:   "remove_from_entities",
	AssignEntityRoots:    "assign_entity_roots",
	AccumEntityRoots:     "accum_entity_roots",
	SetEntityRandSeed:    "set_entity_rand_seed",
	SetEntityPermissions: "set_entity_permissions",
	System:               "system",
	Print:                "print",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown entry kind %q", s)
}

func Kinds() []Kind {
	res := make([]Kind, len(kindNames))
	for i := range res {
		res[i] = Kind(i)
	}
	return res
}

// arity is the number of payload arguments after the optional path.
func (k Kind) arity() int {
	switch k {
	case DestroyEntities:
		return 0
	case System, Print:
		return -1
	}
	return 1
}

// hasPath reports whether entries of kind k address an entity.
func (k Kind) hasPath() bool { return k.arity() >= 0 }

// deepFlag reports whether a trailing bool selects deep application.
func (k Kind) deepFlag() bool {
	return k == SetEntityRandSeed || k == SetEntityPermissions
}
