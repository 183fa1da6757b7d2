package ir

import "testing"

func TestAccumulate(t *testing.T) {
	tests := []struct {
		name     string
		dst, v   *Node
		expected *Node
	}{
		{"ints", FromInt(40), FromInt(2), FromInt(42)},
		{"floats", FromFloat(1.5), FromInt(1), FromFloat(2.5)},
		{"strings", FromString("ab"), FromString("c"), FromString("abc")},
		{"list element", FromStrings("a"), FromString("b"), FromStrings("a", "b")},
		{"list splice", FromStrings("a"), FromStrings("b", "c"), FromStrings("a", "b", "c")},
		{"assoc merge",
			FromMap(map[string]*Node{"x": FromInt(1)}),
			FromMap(map[string]*Node{"y": FromInt(2)}),
			FromMap(map[string]*Node{"x": FromInt(1), "y": FromInt(2)})},
		{"assoc pairs",
			FromMap(map[string]*Node{"x": FromInt(1)}),
			FromSlice([]*Node{FromString("x"), FromInt(3)}),
			FromMap(map[string]*Node{"x": FromInt(3)})},
		{"null dst", Null(), FromInt(3), FromInt(3)},
		{"mismatch", FromBool(true), FromInt(3), FromSlice([]*Node{FromBool(true), FromInt(3)})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Accumulate(tt.dst, tt.v)
			if !Equal(got, tt.expected) {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestAccumulateDoesNotAlias(t *testing.T) {
	dst := FromStrings("a")
	v := FromStrings("b")
	res := Accumulate(dst, v)
	res.Values[1].String = "z"
	if v.Values[0].String != "b" || len(dst.Values) != 1 {
		t.Errorf("accumulate modified its inputs")
	}
}
