package ir

func Truth(node *Node) bool {
	if node == nil {
		return false
	}
	switch node.Type {
	case AssocType:
		return len(node.Fields) != 0
	case ListType:
		return len(node.Values) != 0
	case StringType, SymbolType:
		return node.String != ""
	case NumberType:
		if node.Int64 != nil {
			return *node.Int64 != 0
		}
		if node.Float64 != nil {
			return *node.Float64 != 0.0
		}
		return node.Number != ""
	case BoolType:
		return node.Bool
	case CallType:
		return true
	case NullType:
		return false
	default:
		panic("type")
	}
}
