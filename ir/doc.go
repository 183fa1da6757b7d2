// Package ir provides the payload tree owned by every entity.
//
// # Overview
//
// An entity's program and data are both represented as a tree of *Node.
// The runtime never interprets payload contents in this package; it only
// stores, copies, compares and serializes them.
//
// # Node Types
//
//   - NullType: null value
//   - BoolType: boolean (true/false)
//   - NumberType: numeric value (int64 or float64)
//   - StringType: string value
//   - SymbolType: an unevaluated name, String holds the name
//   - ListType: ordered list of nodes in Values
//   - AssocType: key-value pairs, Fields[i] is the key for Values[i]
//   - CallType: opcode application, String holds the opcode, Values the arguments
//
// # Creating Nodes
//
//	n := ir.FromString("hello")
//	num := ir.FromInt(42)
//	obj := ir.FromMap(map[string]*ir.Node{"x": num})
//	code := ir.Call("assign_to_entities", ir.FromStrings("B", "C"), obj)
//
// # Constraints
//
// For AssocType nodes there are always as many Fields as Values and every
// field is a StringType node. Children carry Parent, ParentIndex and, for
// assoc values, ParentField. Use Set, Delete, Append and the constructors
// to keep these consistent.
package ir
