package entity

import "unique"

// ID is an interned entity identity. The zero ID is anonymous.
type ID struct {
	h unique.Handle[string]
}

func Intern(s string) ID {
	if s == "" {
		return ID{}
	}
	return ID{h: unique.Make(s)}
}

func (id ID) IsZero() bool { return id == ID{} }

func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.h.Value()
}
