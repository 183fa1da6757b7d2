package ir

import "fmt"

type Type int

const (
	NullType Type = iota
	NumberType
	StringType
	BoolType
	SymbolType
	ListType
	AssocType
	CallType
)

func (t Type) String() string {
	s, ok := map[Type]string{
		NullType:   "Null",
		NumberType: "Number",
		StringType: "String",
		BoolType:   "Bool",
		SymbolType: "Symbol",
		ListType:   "List",
		AssocType:  "Assoc",
		CallType:   "Call",
	}[t]
	if ok {
		return s
	}
	return "<unknown type>"
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(d []byte) error {
	tt, ok := map[string]Type{
		"Null":   NullType,
		"Number": NumberType,
		"String": StringType,
		"Bool":   BoolType,
		"Symbol": SymbolType,
		"List":   ListType,
		"Assoc":  AssocType,
		"Call":   CallType,
	}[string(d)]
	if !ok {
		return fmt.Errorf("unrecognized type %q", d)
	}
	*t = tt
	return nil
}

func Types() []Type {
	return []Type{
		NullType,
		NumberType,
		StringType,
		BoolType,
		SymbolType,
		ListType,
		AssocType,
		CallType,
	}
}

func (t Type) IsLeaf() bool {
	switch t {
	case ListType, AssocType, CallType:
		return false
	default:
		return true
	}
}
