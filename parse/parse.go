// Package parse reads the native code text produced by the encode
// package back into payload trees.
package parse

import (
	"fmt"
	"math"
	"strconv"

	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/ir"
)

// Parse reads exactly one value from d.
func Parse(d []byte) (*ir.Node, error) {
	p := &parser{d: d, line: 1, col: 1}
	p.skip()
	if p.eof() {
		return nil, p.errf(fmt.Errorf("%w: empty input", ErrParse))
	}
	node, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skip()
	if !p.eof() {
		return nil, p.errf(ErrTrailing)
	}
	return node, nil
}

// ParseAll reads every top level value in d.
func ParseAll(d []byte) ([]*ir.Node, error) {
	p := &parser{d: d, line: 1, col: 1}
	var res []*ir.Node
	for {
		p.skip()
		if p.eof() {
			return res, nil
		}
		node, err := p.value()
		if err != nil {
			return nil, err
		}
		res = append(res, node)
	}
}

type parser struct {
	d         []byte
	i         int
	line, col int
}

func (p *parser) eof() bool { return p.i >= len(p.d) }

func (p *parser) peek() byte { return p.d[p.i] }

func (p *parser) next() byte {
	c := p.d[p.i]
	p.i++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

func (p *parser) errf(err error) error {
	return &PosError{Line: p.line, Col: p.col, Err: err}
}

func (p *parser) skip() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r', ',':
			p.next()
		case ';':
			for !p.eof() && p.peek() != '\n' {
				p.next()
			}
		default:
			return
		}
	}
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', ',', ';', '(', ')', '[', ']', '{', '}', '"':
		return true
	}
	return false
}

func (p *parser) value() (*ir.Node, error) {
	switch c := p.peek(); c {
	case '(':
		return p.call()
	case '[':
		p.next()
		vs, err := p.values(']')
		if err != nil {
			return nil, err
		}
		return ir.FromSlice(vs), nil
	case '{':
		return p.assoc()
	case '"':
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return ir.FromString(s), nil
	case ')', ']', '}':
		return nil, p.errf(fmt.Errorf("%w: unexpected %q", ErrParse, c))
	}
	line, col := p.line, p.col
	word := p.word()
	node, err := atom(word)
	if err != nil {
		return nil, &PosError{Line: line, Col: col, Err: err}
	}
	return node, nil
}

func (p *parser) word() string {
	start := p.i
	for !p.eof() && !isDelim(p.peek()) {
		p.next()
	}
	return string(p.d[start:p.i])
}

func atom(w string) (*ir.Node, error) {
	switch w {
	case "null":
		return ir.Null(), nil
	case ".true":
		return ir.FromBool(true), nil
	case ".false":
		return ir.FromBool(false), nil
	case ".infinity":
		return ir.FromFloat(math.Inf(1)), nil
	case "-.infinity":
		return ir.FromFloat(math.Inf(-1)), nil
	case ".nan":
		return ir.FromFloat(math.NaN()), nil
	}
	c := w[0]
	if c >= '0' && c <= '9' || (c == '-' || c == '+') && len(w) > 1 && w[1] >= '0' && w[1] <= '9' {
		if i, err := strconv.ParseInt(w, 10, 64); err == nil {
			return ir.FromInt(i), nil
		}
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrParse, w)
		}
		return ir.FromFloat(f), nil
	}
	if !encode.IsSymbol(w) {
		return nil, fmt.Errorf("%w %q", ErrBadSymbol, w)
	}
	return ir.FromSymbol(w), nil
}

func (p *parser) quoted() (string, error) {
	line, col := p.line, p.col
	start := p.i
	p.next()
	escaped := false
	for !p.eof() {
		c := p.next()
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			s, err := strconv.Unquote(string(p.d[start:p.i]))
			if err != nil {
				return "", &PosError{Line: line, Col: col, Err: fmt.Errorf("%w: %w", ErrParse, err)}
			}
			return s, nil
		}
	}
	return "", &PosError{Line: line, Col: col, Err: fmt.Errorf("%w string", ErrUnclosed)}
}

func (p *parser) values(close byte) ([]*ir.Node, error) {
	line, col := p.line, p.col
	var res []*ir.Node
	for {
		p.skip()
		if p.eof() {
			return nil, &PosError{Line: line, Col: col, Err: fmt.Errorf("%w %q", ErrUnclosed, close)}
		}
		if p.peek() == close {
			p.next()
			return res, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
}

func (p *parser) call() (*ir.Node, error) {
	p.next()
	p.skip()
	if p.eof() {
		return nil, p.errf(fmt.Errorf("%w call", ErrUnclosed))
	}
	op := p.word()
	if !encode.IsSymbol(op) {
		return nil, p.errf(fmt.Errorf("%w opcode %q", ErrBadSymbol, op))
	}
	args, err := p.values(')')
	if err != nil {
		return nil, err
	}
	return ir.Call(op, args...), nil
}

func (p *parser) assoc() (*ir.Node, error) {
	line, col := p.line, p.col
	p.next()
	res := &ir.Node{Type: ir.AssocType}
	for {
		p.skip()
		if p.eof() {
			return nil, &PosError{Line: line, Col: col, Err: fmt.Errorf("%w assoc", ErrUnclosed)}
		}
		if p.peek() == '}' {
			p.next()
			return res, nil
		}
		var key string
		if p.peek() == '"' {
			k, err := p.quoted()
			if err != nil {
				return nil, err
			}
			key = k
		} else {
			key = p.word()
			if !encode.IsSymbol(key) {
				return nil, p.errf(fmt.Errorf("%w %q", ErrBadKey, key))
			}
		}
		p.skip()
		if p.eof() || p.peek() == '}' {
			return nil, p.errf(ErrOddAssoc)
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		res.Set(key, v)
	}
}
