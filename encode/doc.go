// Package encode renders payload trees as the runtime's native code text.
//
// The output is what the parse package reads back: every log entry a
// write listener produces and every plain-code entity file is written
// through Encode.
//
//	(assign_to_entities ["B" "C"] {label 42})
//
// Lists print in square brackets, assocs in braces with alternating keys
// and values, calls in parentheses with the opcode first. Strings are
// always quoted so they stay distinct from symbols.
package encode
