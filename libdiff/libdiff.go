// Package libdiff produces line diffs of entity code.
package libdiff

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/ir"
)

type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

func (o Op) prefix() string {
	switch o {
	case Insert:
		return "+"
	case Delete:
		return "-"
	}
	return " "
}

// Line is one line of either input, without its newline.
type Line struct {
	Op   Op
	Text string
}

// Lines diffs from and to line by line.
func Lines(from, to string) []Line {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	var res []Line
	for _, d := range diffs {
		op := Equal
		switch d.Type {
		case diffpatch.DiffInsert:
			op = Insert
		case diffpatch.DiffDelete:
			op = Delete
		}
		text := strings.TrimSuffix(d.Text, "\n")
		for _, l := range strings.Split(text, "\n") {
			res = append(res, Line{Op: op, Text: l})
		}
	}
	return res
}

// Changed reports whether any line was inserted or deleted.
func Changed(ls []Line) bool {
	for _, l := range ls {
		if l.Op != Equal {
			return true
		}
	}
	return false
}

// Nodes diffs the pretty, key sorted encodings of from and to.
func Nodes(from, to *ir.Node) []Line {
	opts := []encode.EncodeOption{encode.EncodePretty(true), encode.EncodeSortKeys(true)}
	return Lines(encode.MustString(from, opts...)+"\n", encode.MustString(to, opts...)+"\n")
}

// Write prints ls with +, - or space prefixes, in red and green when
// colored is set.
func Write(w io.Writer, ls []Line, colored bool) error {
	del, ins := color.New(color.FgRed), color.New(color.FgGreen)
	for _, l := range ls {
		s := l.Op.prefix() + l.Text
		if colored {
			switch l.Op {
			case Delete:
				s = del.Sprint(s)
			case Insert:
				s = ins.Sprint(s)
			}
		}
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}
