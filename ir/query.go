package ir

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Path gives the location of y within its root as a query string.
func (y *Node) Path() string {
	if y.Parent == nil {
		return "$"
	}
	switch y.Parent.Type {
	case AssocType:
		return y.Parent.Path() + "." + queryField(y.ParentField)
	case ListType, CallType:
		return y.Parent.Path() + "[" + strconv.Itoa(y.ParentIndex) + "]"
	default:
		panic("parent but not in container")
	}
}

// Query is a parsed payload location such as $.a[0] or $..name.
// A Query with no selector matches the node it is applied to.
type Query struct {
	IndexAll bool
	Index    *int
	Field    *string
	Subtree  bool
	Next     *Query
}

func (q *Query) String() string {
	buf := bytes.NewBuffer([]byte{'$'})
	for x := q; x != nil; x = x.Next {
		switch {
		case x.Subtree:
			buf.WriteString("..")
		case x.IndexAll:
			buf.WriteString("[*]")
		case x.Field != nil:
			if buf.Len() == 1 || buf.Bytes()[buf.Len()-1] != '.' {
				buf.WriteByte('.')
			}
			buf.WriteString(queryField(*x.Field))
		case x.Index != nil:
			fmt.Fprintf(buf, "[%d]", *x.Index)
		}
	}
	return buf.String()
}

func ParseQuery(s string) (*Query, error) {
	if len(s) == 0 || s[0] != '$' {
		return nil, fmt.Errorf("query %q should start with '$'", s)
	}
	root := &Query{}
	if err := parseQueryFrag(s[1:], root); err != nil {
		return nil, fmt.Errorf("query %q: %w", s, err)
	}
	return root, nil
}

func parseQueryFrag(frag string, q *Query) error {
	if len(frag) == 0 {
		return nil
	}
	var rest string
	switch frag[0] {
	case '.':
		if len(frag) > 1 && frag[1] == '.' {
			q.Subtree = true
			q.Next = &Query{}
			return parseQueryFrag("."+frag[2:], q.Next)
		}
		field, r, err := parseQueryField(frag[1:])
		if err != nil {
			return err
		}
		q.Field = &field
		rest = r
	case '[':
		i := strings.IndexByte(frag, ']')
		if i == -1 {
			return fmt.Errorf("expected '[' <index> ']'")
		}
		if frag[1:i] == "*" {
			q.IndexAll = true
		} else {
			n, err := strconv.ParseUint(frag[1:i], 10, 31)
			if err != nil {
				return err
			}
			idx := int(n)
			q.Index = &idx
		}
		rest = frag[i+1:]
	default:
		return fmt.Errorf("expected '.' or '['")
	}
	if rest == "" {
		return nil
	}
	q.Next = &Query{}
	return parseQueryFrag(rest, q.Next)
}

func parseQueryField(frag string) (field, rest string, err error) {
	if len(frag) == 0 {
		return "", "", fmt.Errorf("expected field at end of query")
	}
	if frag[0] != '\'' {
		i := strings.IndexAny(frag, ".[")
		if i == -1 {
			return frag, "", nil
		}
		return frag[:i], frag[i:], nil
	}
	escaped := false
	res := make([]byte, 0, len(frag))
	for i := 1; i < len(frag); i++ {
		c := frag[i]
		switch {
		case c == '\\' && !escaped:
			escaped = true
			continue
		case c == '\'' && !escaped:
			return string(res), frag[i+1:], nil
		}
		escaped = false
		res = append(res, c)
	}
	return "", "", fmt.Errorf("unterminated quoted field")
}

func queryField(f string) string {
	if f != "" && strings.IndexAny(f, "'.*$[] ") == -1 {
		return f
	}
	return "'" + strings.ReplaceAll(f, "'", "\\'") + "'"
}

// Select returns clones of every node in y matched by the query string.
func (y *Node) Select(query string) ([]*Node, error) {
	q, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	return y.selectQuery(nil, q), nil
}

// SelectOne returns the single node matched by query, or nil when
// nothing matches.
func (y *Node) SelectOne(query string) (*Node, error) {
	res, err := y.Select(query)
	if err != nil {
		return nil, err
	}
	switch len(res) {
	case 0:
		return nil, nil
	case 1:
		return res[0], nil
	default:
		return nil, fmt.Errorf("query %q matched %d nodes", query, len(res))
	}
}

func (y *Node) selectQuery(dst []*Node, q *Query) []*Node {
	if q == nil || (!q.Subtree && !q.IndexAll && q.Index == nil && q.Field == nil && q.Next == nil) {
		return append(dst, y.Clone())
	}
	if q.Subtree {
		_ = y.Visit(func(node *Node, isPost bool) (bool, error) {
			if isPost {
				return false, nil
			}
			dst = node.selectQuery(dst, q.Next)
			return true, nil
		})
		return dst
	}
	switch {
	case q.Field != nil:
		if y.Type != AssocType {
			return dst
		}
		if i := y.index(*q.Field); i >= 0 {
			dst = y.Values[i].selectQuery(dst, q.Next)
		}
	case q.Index != nil:
		if y.Type != ListType && y.Type != CallType {
			return dst
		}
		if idx := *q.Index; idx < len(y.Values) {
			dst = y.Values[idx].selectQuery(dst, q.Next)
		}
	case q.IndexAll:
		if y.Type.IsLeaf() {
			return dst
		}
		for _, v := range y.Values {
			dst = v.selectQuery(dst, q.Next)
		}
	}
	return dst
}
