package huffman

import (
	"container/heap"
	"encoding/binary"
	"fmt"
)

type treeNode struct {
	freq        int
	index       int
	value       byte
	left, right int
}

// Code is a prefix code built from a Table. It is immutable and safe for
// concurrent use.
type Code struct {
	table Table
	nodes []treeNode
	root  int
	codes [256][]bool
}

type nodeHeap struct {
	nodes []treeNode
	ids   []int
}

func (h *nodeHeap) Len() int { return len(h.ids) }
func (h *nodeHeap) Less(i, j int) bool {
	a, b := h.nodes[h.ids[i]], h.nodes[h.ids[j]]
	if a.freq != b.freq {
		return a.freq < b.freq
	}
	return a.index < b.index
}
func (h *nodeHeap) Swap(i, j int) { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }
func (h *nodeHeap) Push(x any)   { h.ids = append(h.ids, x.(int)) }
func (h *nodeHeap) Pop() any {
	n := len(h.ids)
	x := h.ids[n-1]
	h.ids = h.ids[:n-1]
	return x
}

// NewCode builds the code tree for t. Lower frequencies merge first and
// equal frequencies merge in node creation order, so the same table
// always yields the same code.
func NewCode(t Table) *Code {
	c := &Code{table: t, nodes: make([]treeNode, 0, 511)}
	h := &nodeHeap{}
	for i, f := range t {
		c.nodes = append(c.nodes, treeNode{freq: int(f), index: i, value: byte(i), left: -1, right: -1})
		h.ids = append(h.ids, i)
	}
	h.nodes = c.nodes
	heap.Init(h)
	for h.Len() > 1 {
		l := heap.Pop(h).(int)
		r := heap.Pop(h).(int)
		id := len(c.nodes)
		c.nodes = append(c.nodes, treeNode{
			freq:  c.nodes[l].freq + c.nodes[r].freq,
			index: id,
			left:  l,
			right: r,
		})
		h.nodes = c.nodes
		heap.Push(h, id)
	}
	c.root = heap.Pop(h).(int)
	c.assign(c.root, nil)
	return c
}

func (c *Code) assign(id int, prefix []bool) {
	n := c.nodes[id]
	if n.left < 0 {
		c.codes[n.value] = prefix
		return
	}
	c.assign(n.left, append(prefix[:len(prefix):len(prefix)], false))
	c.assign(n.right, append(prefix[:len(prefix):len(prefix)], true))
}

func (c *Code) Table() Table { return c.table }

// CodeLen returns the number of bits used to encode b.
func (c *Code) CodeLen(b byte) int { return len(c.codes[b]) }

// AppendBlock encodes src as one length prefixed block appended to dst.
func (c *Code) AppendBlock(dst, src []byte) []byte {
	bits := 0
	for _, b := range src {
		bits += len(c.codes[b])
	}
	size := 1 + (bits+7)/8
	dst = binary.AppendUvarint(dst, uint64(size))
	start := len(dst)
	dst = append(dst, make([]byte, size)...)
	block := dst[start:]
	block[0] = byte(bits % 8)
	pos := 0
	for _, b := range src {
		for _, bit := range c.codes[b] {
			if bit {
				block[1+pos/8] |= 1 << (pos % 8)
			}
			pos++
		}
	}
	return dst
}

func (c *Code) decodeBlock(dst, block []byte) ([]byte, error) {
	if len(block) < 2 {
		return dst, nil
	}
	end := 8 * (len(block) - 1)
	if extra := int(block[0]); extra != 0 {
		if extra > 7 {
			return dst, fmt.Errorf("%w: bad trailing bit count %d", ErrCorrupt, extra)
		}
		end -= 8 - extra
	}
	pos := 0
	for pos < end {
		id := c.root
		for c.nodes[id].left >= 0 {
			if pos >= end {
				return dst, fmt.Errorf("%w: code cut off at bit %d", ErrCorrupt, pos)
			}
			if block[1+pos/8]&(1<<(pos%8)) != 0 {
				id = c.nodes[id].right
			} else {
				id = c.nodes[id].left
			}
			pos++
		}
		dst = append(dst, c.nodes[id].value)
	}
	return dst, nil
}

// DecodeBlocks decodes consecutive blocks and returns their concatenation.
func (c *Code) DecodeBlocks(data []byte) ([]byte, error) {
	var res []byte
	for len(data) > 0 {
		size, n := binary.Uvarint(data)
		if n <= 0 {
			return res, fmt.Errorf("%w: bad block length", ErrCorrupt)
		}
		data = data[n:]
		if size > uint64(len(data)) {
			return res, fmt.Errorf("%w: block of %d bytes exceeds remaining %d", ErrCorrupt, size, len(data))
		}
		var err error
		res, err = c.decodeBlock(res, data[:size])
		if err != nil {
			return res, err
		}
		data = data[size:]
	}
	return res, nil
}

// Compress encodes src as a table built from src followed by one block.
func Compress(src []byte) ([]byte, *Code) {
	c := NewCode(TableFor(src))
	out := AppendTable(nil, c.table)
	return c.AppendBlock(out, src), c
}

// Decompress reads a table and decodes every block that follows it.
func Decompress(data []byte) ([]byte, error) {
	t, n, err := ReadTable(data)
	if err != nil {
		return nil, err
	}
	return NewCode(t).DecodeBlocks(data[n:])
}
