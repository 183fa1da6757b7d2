// Package huffman implements the static byte alphabet prefix code used to
// compress entity files and transaction logs.
//
// A compressed stream is a frequency table followed by one or more
// blocks. The table holds one normalized frequency per byte value, with
// runs of zero frequencies written as a 0 followed by the count of
// additional zeros. Each block is a varint byte length, then a byte
// holding the number of meaningful bits in the final byte (0 meaning all
// 8), then the code bits packed least significant bit first.
//
// Every byte value is a leaf of the tree regardless of its frequency, so
// a code built from a sample can encode any later input. This is what
// lets a transaction log append blocks as entries are flushed.
package huffman
