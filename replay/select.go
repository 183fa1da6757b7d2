package replay

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/listener"
)

// Record is the view of an entry that selection expressions see.
type Record struct {
	Seq    int
	Kind   string
	Path   string
	Depth  int
	Labels []string
	Code   string

	entry listener.Entry
}

func (r Record) Entry() listener.Entry { return r.entry }

// Records builds the selection view of es.
func Records(es []listener.Entry) []Record {
	res := make([]Record, len(es))
	for i, e := range es {
		r := Record{
			Seq:   int(e.Seq),
			Kind:  e.Kind.String(),
			Path:  e.Path.String(),
			Depth: len(e.Path),
			Code:  encode.MustString(e.Node()),
			entry: e,
		}
		if len(e.Payload) > 0 {
			switch p := e.Payload[0]; {
			case p.Type == ir.AssocType:
				r.Labels = p.Keys()
			case e.Kind == listener.RemoveFromEntities && p.Type == ir.ListType:
				for _, v := range p.Values {
					r.Labels = append(r.Labels, v.String)
				}
			}
		}
		res[i] = r
	}
	return res
}

// Entries parses the entries of a (seq ...) form into records.
func Entries(seq *ir.Node) ([]Record, error) {
	es, err := listener.EntriesOf(seq)
	if err != nil {
		return nil, err
	}
	return Records(es), nil
}

// env is what a selection expression evaluates against.
func (r *Record) env() map[string]any {
	return map[string]any{
		"seq":     r.Seq,
		"kind":    r.Kind,
		"path":    r.Path,
		"depth":   r.Depth,
		"labels":  r.Labels,
		"code":    r.Code,
		"payload": r.payload,
	}
}

func (r *Record) payload(query string) string {
	if len(r.entry.Payload) == 0 {
		return ""
	}
	n, err := r.entry.Payload[0].SelectOne(query)
	if err != nil || n == nil {
		return ""
	}
	return encode.MustString(n)
}

// Compile checks a selection expression.
func Compile(where string) (*vm.Program, error) {
	prg, err := expr.Compile(where, expr.Env((&Record{}).env()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", where, err)
	}
	return prg, nil
}

// Select returns the records for which where evaluates to true. The
// expression sees seq, kind, path, depth, labels and code, and
// payload(query) gives the code of the part of the first payload matched
// by a query such as $.label, or "" when nothing matches.
func Select(records []Record, where string) ([]Record, error) {
	if where == "" {
		return records, nil
	}
	prg, err := Compile(where)
	if err != nil {
		return nil, err
	}
	var res []Record
	for i := range records {
		r := &records[i]
		out, err := expr.Run(prg, r.env())
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.Seq, err)
		}
		if out.(bool) {
			res = append(res, *r)
		}
	}
	return res, nil
}
