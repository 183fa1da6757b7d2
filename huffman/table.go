package huffman

import (
	"errors"
	"fmt"
)

var ErrCorrupt = errors.New("corrupt huffman data")

// Table holds the normalized frequency of each byte value.
type Table [256]uint8

// TableFor scales the byte counts of sample so the most frequent byte has
// frequency 255 and every byte that occurs has frequency at least 1.
func TableFor(sample []byte) Table {
	var counts [256]int
	top := 0
	for _, b := range sample {
		counts[b]++
		if counts[b] > top {
			top = counts[b]
		}
	}
	var t Table
	for i, c := range counts {
		if c == 0 {
			continue
		}
		t[i] = uint8(max(1, 255*c/top))
	}
	return t
}

// AppendTable appends the run-length compressed form of t to dst.
func AppendTable(dst []byte, t Table) []byte {
	for i := 0; i < len(t); i++ {
		dst = append(dst, t[i])
		if t[i] != 0 {
			continue
		}
		n := uint8(0)
		for i+1 < len(t) && t[i+1] == 0 {
			n++
			i++
		}
		dst = append(dst, n)
	}
	return dst
}

// ReadTable decodes a table from the front of data and returns the number
// of bytes consumed.
func ReadTable(data []byte) (Table, int, error) {
	var t Table
	off := 0
	for i := 0; i < len(t); i++ {
		if off >= len(data) {
			return t, off, fmt.Errorf("%w: truncated table at entry %d", ErrCorrupt, i)
		}
		t[i] = data[off]
		off++
		if t[i] != 0 {
			continue
		}
		if off >= len(data) {
			return t, off, fmt.Errorf("%w: truncated zero run at entry %d", ErrCorrupt, i)
		}
		n := int(data[off])
		off++
		if i+n >= len(t) {
			return t, off, fmt.Errorf("%w: zero run past end of table", ErrCorrupt)
		}
		i += n
	}
	return t, off, nil
}
