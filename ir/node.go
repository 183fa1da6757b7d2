package ir

import (
	"maps"
	"slices"
	"strconv"
)

type Node struct {
	Type        Type
	Parent      *Node
	ParentIndex int
	ParentField string
	Fields      []*Node
	Values      []*Node

	String  string
	Bool    bool
	Number  string
	Float64 *float64
	Int64   *int64
}

// Clone returns a deep copy of y detached from y's parent.
func (y *Node) Clone() *Node {
	if y == nil {
		return nil
	}
	res := y.CloneTo(&Node{})
	res.Parent = nil
	res.ParentIndex = 0
	res.ParentField = ""
	return res
}

func (y *Node) CloneTo(dst *Node) *Node {
	dst.Parent = y.Parent
	dst.ParentIndex = y.ParentIndex
	dst.ParentField = y.ParentField
	dst.Type = y.Type
	dst.Values = nil
	dst.Fields = nil
	if y.Values != nil {
		dst.Values = make([]*Node, len(y.Values))
	}
	if y.Fields != nil {
		dst.Fields = make([]*Node, len(y.Fields))
	}
	for i, yv := range y.Values {
		dstI := yv.CloneTo(&Node{})
		dstI.Parent = dst
		dstI.ParentIndex = i
		dst.Values[i] = dstI
	}
	for i, yf := range y.Fields {
		dstI := yf.CloneTo(&Node{})
		dstI.Parent = dst
		dstI.ParentIndex = i
		dst.Fields[i] = dstI
	}
	dst.String = y.String
	dst.Number = y.Number
	dst.Bool = y.Bool
	dst.Float64 = nil
	dst.Int64 = nil
	if y.Float64 != nil {
		f := *y.Float64
		dst.Float64 = &f
	}
	if y.Int64 != nil {
		i := *y.Int64
		dst.Int64 = &i
	}
	return dst
}

func Null() *Node {
	return &Node{Type: NullType}
}

func FromString(v string) *Node {
	return &Node{Type: StringType, String: v}
}

// FromSymbol creates an unevaluated symbol reference.
func FromSymbol(v string) *Node {
	return &Node{Type: SymbolType, String: v}
}

func FromInt(v int64) *Node {
	return &Node{
		Type:  NumberType,
		Int64: &v,
	}
}

func FromFloat(f float64) *Node {
	return &Node{
		Type:    NumberType,
		Float64: &f,
	}
}

func FromBool(v bool) *Node {
	return &Node{
		Type: BoolType,
		Bool: v,
	}
}

func FromSlice(ySlice []*Node) *Node {
	res := &Node{
		Type:   ListType,
		Values: make([]*Node, 0, len(ySlice)),
	}
	for _, y := range ySlice {
		res.append(y)
	}
	return res
}

func FromStrings(vs ...string) *Node {
	res := make([]*Node, len(vs))
	for i, v := range vs {
		res[i] = FromString(v)
	}
	return FromSlice(res)
}

// Call builds an opcode application, the code form used for replayable
// entity operations.
func Call(op string, args ...*Node) *Node {
	res := &Node{Type: CallType, String: op, Values: make([]*Node, 0, len(args))}
	for _, a := range args {
		res.append(a)
	}
	return res
}

func (y *Node) append(v *Node) {
	if v == nil {
		v = Null()
	}
	v.Parent = y
	v.ParentIndex = len(y.Values)
	v.ParentField = ""
	y.Values = append(y.Values, v)
}

// Append adds v to a list or call node.
func (y *Node) Append(v *Node) *Node {
	y.append(v)
	return y
}

func FromMap(yMap map[string]*Node) *Node {
	res := &Node{Type: AssocType}
	for _, key := range slices.Sorted(maps.Keys(yMap)) {
		res.Set(key, yMap[key])
	}
	return res
}

type KeyVal struct {
	Key string
	Val *Node
}

func FromKeyVals(kvs []KeyVal) *Node {
	res := &Node{Type: AssocType}
	for _, kv := range kvs {
		res.Set(kv.Key, kv.Val)
	}
	return res
}

func ToMap(node *Node) map[string]*Node {
	if node == nil || node.Type != AssocType {
		return nil
	}
	res := make(map[string]*Node, len(node.Fields))
	for i := range node.Fields {
		res[node.Fields[i].String] = node.Values[i]
	}
	return res
}

func Get(y *Node, field string) *Node {
	if y == nil {
		return nil
	}
	i := y.index(field)
	if i < 0 {
		return nil
	}
	return y.Values[i]
}

func (y *Node) index(field string) int {
	for i := range y.Fields {
		if y.Fields[i].String == field {
			return i
		}
	}
	return -1
}

// Set assigns field to v in an assoc, replacing an existing value in place
// so that key order is stable.
func (y *Node) Set(field string, v *Node) {
	if v == nil {
		v = Null()
	}
	v.Parent = y
	v.ParentField = field
	if i := y.index(field); i >= 0 {
		v.ParentIndex = i
		y.Values[i] = v
		return
	}
	v.ParentIndex = len(y.Values)
	y.Fields = append(y.Fields, &Node{
		Type:        StringType,
		String:      field,
		Parent:      y,
		ParentIndex: len(y.Fields),
		ParentField: field,
	})
	y.Values = append(y.Values, v)
}

// Delete removes field from an assoc and reports whether it was present.
func (y *Node) Delete(field string) bool {
	i := y.index(field)
	if i < 0 {
		return false
	}
	y.Fields = slices.Delete(y.Fields, i, i+1)
	y.Values = slices.Delete(y.Values, i, i+1)
	for j := i; j < len(y.Values); j++ {
		y.Fields[j].ParentIndex = j
		y.Values[j].ParentIndex = j
	}
	return true
}

// Keys returns the assoc keys in stored order.
func (y *Node) Keys() []string {
	res := make([]string, len(y.Fields))
	for i, f := range y.Fields {
		res[i] = f.String
	}
	return res
}

func (y *Node) Visit(f func(y *Node, isPost bool) (bool, error)) error {
	dive, err := f(y, false)
	if err != nil {
		return err
	}
	if dive {
		for _, yy := range y.Values {
			if err := yy.Visit(f); err != nil {
				return err
			}
		}
	}
	if _, err := f(y, true); err != nil {
		return err
	}
	return nil
}

func (y *Node) Root() *Node {
	res := y
	for res.Parent != nil {
		res = res.Parent
	}
	return res
}

// NumberString renders a number node the way the code printer does.
func (y *Node) NumberString() string {
	switch {
	case y.Int64 != nil:
		return strconv.FormatInt(*y.Int64, 10)
	case y.Float64 != nil:
		return strconv.FormatFloat(*y.Float64, 'g', -1, 64)
	default:
		return y.Number
	}
}

// AsFloat returns the numeric value of a number node.
func (y *Node) AsFloat() (float64, bool) {
	if y == nil || y.Type != NumberType {
		return 0, false
	}
	switch {
	case y.Int64 != nil:
		return float64(*y.Int64), true
	case y.Float64 != nil:
		return *y.Float64, true
	}
	f, err := strconv.ParseFloat(y.Number, 64)
	return f, err == nil
}
