package ir

// Accumulate returns the result of accumulating v onto dst. Neither
// argument is modified; the result shares no nodes with them.
//
// Numbers add, strings concatenate, lists append v (spliced if v is
// itself a list), and assocs merge v when v is an assoc or a list of
// alternating keys and values. Any other combination yields a list of
// both values.
func Accumulate(dst, v *Node) *Node {
	if dst == nil || dst.Type == NullType {
		return v.Clone()
	}
	if v == nil {
		return dst.Clone()
	}
	switch dst.Type {
	case NumberType:
		if v.Type != NumberType {
			break
		}
		if dst.Int64 != nil && v.Int64 != nil {
			return FromInt(*dst.Int64 + *v.Int64)
		}
		a, _ := dst.AsFloat()
		b, _ := v.AsFloat()
		return FromFloat(a + b)
	case StringType:
		if v.Type == StringType {
			return FromString(dst.String + v.String)
		}
		if v.Type == NumberType {
			return FromString(dst.String + v.NumberString())
		}
	case ListType:
		res := dst.Clone()
		if v.Type == ListType {
			for _, vv := range v.Values {
				res.Append(vv.Clone())
			}
			return res
		}
		return res.Append(v.Clone())
	case AssocType:
		res := dst.Clone()
		switch v.Type {
		case AssocType:
			for i, f := range v.Fields {
				res.Set(f.String, v.Values[i].Clone())
			}
			return res
		case ListType:
			for i := 0; i+1 < len(v.Values); i += 2 {
				k := v.Values[i]
				if k.Type != StringType && k.Type != SymbolType {
					continue
				}
				res.Set(k.String, v.Values[i+1].Clone())
			}
			return res
		}
	}
	return FromSlice([]*Node{dst.Clone(), v.Clone()})
}
