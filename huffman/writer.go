package huffman

import "io"

// Writer compresses each Write as one block. The table is written before
// the first block.
type Writer struct {
	w       io.Writer
	code    *Code
	started bool
	buf     []byte
}

func NewWriter(w io.Writer, code *Code) *Writer {
	return &Writer{w: w, code: code}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = w.buf[:0]
	if !w.started {
		w.buf = AppendTable(w.buf, w.code.table)
		w.started = true
	}
	w.buf = w.code.AppendBlock(w.buf, p)
	if _, err := w.w.Write(w.buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
