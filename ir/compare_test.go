package ir

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b *Node
		want int
	}{
		{"int float equal", FromInt(1), FromFloat(1), 0},
		{"numbers", FromInt(1), FromInt(2), -1},
		{"type rank", FromString("a"), FromInt(5), 1},
		{"assoc key order ignored",
			FromKeyVals([]KeyVal{{"a", FromInt(1)}, {"b", FromInt(2)}}),
			FromKeyVals([]KeyVal{{"b", FromInt(2)}, {"a", FromInt(1)}}),
			0},
		{"calls by op", Call("a"), Call("b"), -1},
		{"list length", FromStrings("a"), FromStrings("a", "b"), -1},
		{"symbol vs string", FromString("x"), FromSymbol("x"), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare = %d, want %d", got, tt.want)
			}
		})
	}
}
