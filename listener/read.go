package listener

import (
	"bytes"
	"fmt"
	"io"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/huffman"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/parse"
)

// ReadLog returns the code text of a log or entity file, which may be
// plain, Huffman compressed, or a caml container.
func ReadLog(r io.Reader) ([]byte, error) {
	d, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeLog(d)
}

func DecodeLog(d []byte) ([]byte, error) {
	switch {
	case caml.HasHeader(d):
		code, _, err := caml.DecodeBytes(d, caml.Current)
		return code, err
	case isText(d):
		return d, nil
	}
	code, err := huffman.Decompress(d)
	if err != nil {
		return nil, fmt.Errorf("log is neither text nor compressed: %w", err)
	}
	return code, nil
}

// isText reports whether d looks like code text. Code never contains a
// NUL byte, while a compressed log starts with the frequency of byte 0,
// which is a zero for any compressed text.
func isText(d []byte) bool {
	return bytes.IndexByte(d[:min(len(d), 512)], 0) < 0
}

// ParseLog parses log text and returns its entries. An unterminated
// final (seq form, as left by an interrupted process, is closed first.
func ParseLog(code []byte) ([]Entry, error) {
	node, err := parse.Parse(code)
	if err != nil {
		fixed := append(bytes.TrimRight(bytes.Clone(code), " \t\r\n"), []byte("\n"+Suffix)...)
		node2, err2 := parse.Parse(fixed)
		if err2 != nil {
			return nil, err
		}
		node = node2
	}
	return EntriesOf(node)
}

// EntriesOf reads the entries of a (seq ...) form, or of a single entry.
func EntriesOf(node *ir.Node) ([]Entry, error) {
	if node == nil || node.Type != ir.CallType {
		return nil, fmt.Errorf("%w: log is not code", ErrEntry)
	}
	items := []*ir.Node{node}
	if node.String == "seq" {
		items = node.Values
	}
	res := make([]Entry, 0, len(items))
	for i, n := range items {
		e, err := ParseEntry(n)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		e.Seq = uint64(i + 1)
		res = append(res, e)
	}
	return res, nil
}
