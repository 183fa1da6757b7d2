package persist

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/listener"
	"github.com/signadot/entitree/parse"
)

var (
	ErrFileType = errors.New("unsupported file type")
	ErrMetadata = errors.New("bad entity metadata")
)

// Flatten returns the code that rebuilds e and its subtree when replayed
// onto a fresh entity: the root and seed of e, then a create entry per
// contained entity in pre-order, each followed by that entity's seed.
// Permissions are included when set.
//
// The caller holds a read reference on e's subtree.
func Flatten(e *entity.Entity) *ir.Node {
	var items []*ir.Node
	add := func(k listener.Kind, p entity.Path, payload ...*ir.Node) {
		items = append(items, listener.Entry{Kind: k, Path: p, Payload: payload}.Node())
	}
	e.Walk(func(x *entity.Entity) bool {
		var p entity.Path
		if x == e {
			add(listener.AssignEntityRoots, nil, x.RootRef())
		} else {
			p = entity.PathBetween(e, x)
			add(listener.CreateEntities, p, x.RootRef())
		}
		if s := x.RandomSeed(); s != "" {
			add(listener.SetEntityRandSeed, p, ir.FromString(s), ir.FromBool(false))
		}
		if perms := x.Permissions(); perms != entity.PermNone {
			add(listener.SetEntityPermissions, p, perms.Node(), ir.FromBool(false))
		}
		return true
	})
	return ir.Call("seq", items...)
}

func (m *Manager) encodeOpts() []encode.EncodeOption {
	var opts []encode.EncodeOption
	if m.Pretty {
		opts = append(opts, encode.EncodePretty(true))
	}
	if m.SortKeys {
		opts = append(opts, encode.EncodeSortKeys(true))
	}
	return opts
}

// marshal renders node in the format of ft.
func (m *Manager) marshal(node *ir.Node, ft caml.FileType) ([]byte, error) {
	switch ft {
	case caml.FileTypeJSON:
		return ir.ToJSON(node)
	case caml.FileTypeAmlg, caml.FileTypeCaml:
	default:
		return nil, fmt.Errorf("%w: %s", ErrFileType, ft)
	}
	var code bytes.Buffer
	if err := encode.Encode(node, &code, m.encodeOpts()...); err != nil {
		return nil, err
	}
	code.WriteByte('\n')
	if ft == caml.FileTypeAmlg {
		return code.Bytes(), nil
	}
	var out bytes.Buffer
	if err := caml.Encode(&out, code.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (m *Manager) unmarshal(d []byte, ft caml.FileType) (*ir.Node, error) {
	switch ft {
	case caml.FileTypeJSON:
		return ir.FromJSON(d)
	case caml.FileTypeAmlg:
		return parse.Parse(d)
	case caml.FileTypeCaml:
		code, _, err := caml.DecodeBytes(d, m.runtime())
		if err != nil {
			return nil, err
		}
		return parse.Parse(code)
	}
	return nil, fmt.Errorf("%w: %s", ErrFileType, ft)
}

// metadata is what the .mdam resource of an unflattened entity holds.
type metadata struct {
	seed      string
	version   string
	contained []entity.ID
	hasOrder  bool
}

// metadataOf requires a read reference on e.
func metadataOf(e *entity.Entity) *ir.Node {
	kids := e.ContainedEntities()
	ids := make([]string, len(kids))
	for i, c := range kids {
		ids[i] = c.ID().String()
	}
	return ir.FromKeyVals([]ir.KeyVal{
		{Key: "rand_seed", Val: ir.FromString(e.RandomSeed())},
		{Key: "version", Val: ir.FromString(caml.Current.String())},
		{Key: "contained", Val: ir.FromStrings(ids...)},
	})
}

func parseMetadata(n *ir.Node) (metadata, error) {
	var md metadata
	if n.Type != ir.AssocType {
		return md, fmt.Errorf("%w: not an assoc", ErrMetadata)
	}
	if s := ir.Get(n, "rand_seed"); s != nil {
		if s.Type != ir.StringType {
			return md, fmt.Errorf("%w: rand_seed is %s", ErrMetadata, s.Type)
		}
		md.seed = s.String
	}
	if v := ir.Get(n, "version"); v != nil && v.Type == ir.StringType {
		md.version = v.String
	}
	if c := ir.Get(n, "contained"); c != nil {
		if c.Type != ir.ListType {
			return md, fmt.Errorf("%w: contained is %s", ErrMetadata, c.Type)
		}
		md.hasOrder = true
		for _, v := range c.Values {
			if v.Type != ir.StringType {
				return md, fmt.Errorf("%w: contained id is %s", ErrMetadata, v.Type)
			}
			md.contained = append(md.contained, entity.Intern(v.String))
		}
	}
	return md, nil
}
