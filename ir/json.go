package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// ToJSON renders a data tree as plain JSON. Assoc key order is kept.
// Symbols and calls have no JSON form.
func ToJSON(node *Node) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := writeJSON(buf, node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, node *Node) error {
	if node == nil {
		buf.WriteString("null")
		return nil
	}
	switch node.Type {
	case NullType:
		buf.WriteString("null")
	case BoolType:
		buf.WriteString(strconv.FormatBool(node.Bool))
	case NumberType:
		buf.WriteString(node.NumberString())
	case StringType:
		d, err := json.Marshal(node.String)
		if err != nil {
			return err
		}
		buf.Write(d)
	case ListType:
		buf.WriteByte('[')
		for i, v := range node.Values {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, v); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case AssocType:
		buf.WriteByte('{')
		for i, f := range node.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			d, err := json.Marshal(f.String)
			if err != nil {
				return err
			}
			buf.Write(d)
			buf.WriteByte(':')
			if err := writeJSON(buf, node.Values[i]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: %s", ErrNoJSON, node.Type)
	}
	return nil
}

// FromJSON decodes a JSON document into a data tree, keeping object key
// order and integer-ness of numbers.
func FromJSON(d []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(d))
	dec.UseNumber()
	res, err := readJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after json value")
	}
	return res, nil
}

func readJSON(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch x := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return FromBool(x), nil
	case string:
		return FromString(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return FromInt(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return FromFloat(f), nil
	case json.Delim:
		switch x {
		case '[':
			res := FromSlice(nil)
			for dec.More() {
				v, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				res.Append(v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return res, nil
		case '{':
			res := &Node{Type: AssocType}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				k, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected json key %v", kt)
				}
				v, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				res.Set(k, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return res, nil
		}
	}
	return nil, fmt.Errorf("unexpected json token %v", tok)
}
