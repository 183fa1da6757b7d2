package encode

type EncodeOption func(*EncState)

// EncodePretty puts the children of nested containers on their own
// indented lines.
func EncodePretty(v bool) EncodeOption {
	return func(es *EncState) { es.pretty = v }
}

// EncodeSortKeys prints assoc keys in sorted order instead of stored order.
func EncodeSortKeys(v bool) EncodeOption {
	return func(es *EncState) { es.sortKeys = v }
}

// EncodeIndent sets the starting indentation depth used by pretty output.
func EncodeIndent(n int) EncodeOption {
	return func(es *EncState) { es.depth = n }
}

func EncodeColors(c *Colors) EncodeOption {
	return func(es *EncState) {
		if c == nil {
			es.Color = nil
			return
		}
		es.Color = c.Color
	}
}
