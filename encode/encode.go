package encode

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/signadot/entitree/ir"
)

type EncState struct {
	pretty   bool
	sortKeys bool
	depth    int
	Color    func(ir.Type, ColorAttr, string) string

	w *bufio.Writer
}

func Encode(node *ir.Node, w io.Writer, opts ...EncodeOption) error {
	es := &EncState{}
	for _, opt := range opts {
		opt(es)
	}
	es.w = bufio.NewWriter(w)
	if err := es.encode(node, es.depth); err != nil {
		return err
	}
	return es.w.Flush()
}

func (es *EncState) color(t ir.Type, a ColorAttr, s string) string {
	if es.Color == nil {
		return s
	}
	return es.Color(t, a, s)
}

func (es *EncState) put(t ir.Type, a ColorAttr, s string) {
	es.w.WriteString(es.color(t, a, s))
}

func (es *EncState) encode(node *ir.Node, depth int) error {
	if node == nil {
		es.put(ir.NullType, ValueColor, "null")
		return nil
	}
	switch node.Type {
	case ir.NullType:
		es.put(node.Type, ValueColor, "null")
	case ir.BoolType:
		if node.Bool {
			es.put(node.Type, ValueColor, ".true")
		} else {
			es.put(node.Type, ValueColor, ".false")
		}
	case ir.NumberType:
		s := numberString(node)
		if s == "" {
			return fmt.Errorf("number node without value")
		}
		es.put(node.Type, ValueColor, s)
	case ir.StringType:
		es.put(node.Type, ValueColor, strconv.Quote(node.String))
	case ir.SymbolType:
		if !IsSymbol(node.String) {
			return fmt.Errorf("invalid symbol %q", node.String)
		}
		es.put(node.Type, ValueColor, node.String)
	case ir.ListType:
		return es.encodeChildren(node, "[", "]", node.Values, depth)
	case ir.CallType:
		if !IsSymbol(node.String) {
			return fmt.Errorf("invalid opcode %q", node.String)
		}
		es.put(node.Type, SepColor, "(")
		es.put(node.Type, OpColor, node.String)
		if len(node.Values) == 0 {
			es.put(node.Type, SepColor, ")")
			return nil
		}
		return es.encodeChildren(node, " ", ")", node.Values, depth)
	case ir.AssocType:
		return es.encodeAssoc(node, depth)
	default:
		return fmt.Errorf("unknown node type %d", node.Type)
	}
	return nil
}

func (es *EncState) encodeChildren(node *ir.Node, open, close string, vs []*ir.Node, depth int) error {
	lead := open == " "
	if !lead {
		es.put(node.Type, SepColor, open)
	}
	multi := es.pretty && hasContainer(vs)
	for i, v := range vs {
		switch {
		case multi:
			es.newline(depth + 1)
		case i > 0 || lead:
			es.w.WriteByte(' ')
		}
		if err := es.encode(v, depth+1); err != nil {
			return err
		}
	}
	if multi {
		es.newline(depth)
	}
	es.put(node.Type, SepColor, close)
	return nil
}

func (es *EncState) encodeAssoc(node *ir.Node, depth int) error {
	es.put(node.Type, SepColor, "{")
	idx := make([]int, len(node.Fields))
	for i := range idx {
		idx[i] = i
	}
	if es.sortKeys {
		slices.SortStableFunc(idx, func(a, b int) int {
			return strings.Compare(node.Fields[a].String, node.Fields[b].String)
		})
	}
	multi := es.pretty && hasContainer(node.Values)
	for n, i := range idx {
		if multi {
			es.newline(depth + 1)
		} else if n > 0 {
			es.w.WriteByte(' ')
		}
		es.put(node.Type, KeyColor, Key(node.Fields[i].String))
		es.w.WriteByte(' ')
		if err := es.encode(node.Values[i], depth+1); err != nil {
			return err
		}
	}
	if multi {
		es.newline(depth)
	}
	es.put(node.Type, SepColor, "}")
	return nil
}

func (es *EncState) newline(depth int) {
	es.w.WriteByte('\n')
	for range depth {
		es.w.WriteByte('\t')
	}
}

func numberString(node *ir.Node) string {
	if node.Float64 != nil {
		switch f := *node.Float64; {
		case math.IsNaN(f):
			return ".nan"
		case math.IsInf(f, 1):
			return ".infinity"
		case math.IsInf(f, -1):
			return "-.infinity"
		}
	}
	return node.NumberString()
}

func hasContainer(vs []*ir.Node) bool {
	for _, v := range vs {
		if v != nil && !v.Type.IsLeaf() && len(v.Values) > 0 {
			return true
		}
	}
	return false
}

// Key renders an assoc key, bare when it reads back as the same key.
func Key(k string) string {
	if IsSymbol(k) {
		return k
	}
	return strconv.Quote(k)
}

var reserved = map[string]bool{"null": true}

// IsSymbol reports whether s can be written without quotes as a symbol,
// opcode or assoc key.
func IsSymbol(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' || r == '-' || r == '!' || r == '?' || r == '*':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
