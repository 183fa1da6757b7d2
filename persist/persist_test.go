package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/resource"
)

func assoc(kvs ...any) *ir.Node {
	var res []ir.KeyVal
	for i := 0; i+1 < len(kvs); i += 2 {
		var v *ir.Node
		switch x := kvs[i+1].(type) {
		case int:
			v = ir.FromInt(int64(x))
		case string:
			v = ir.FromString(x)
		case *ir.Node:
			v = x
		}
		res = append(res, ir.KeyVal{Key: kvs[i].(string), Val: v})
	}
	return ir.FromKeyVals(res)
}

// tree builds A{B{C}, D}, every entity seeded, with a permission on B.
func tree(t *testing.T) (a, b, c, d *entity.Entity) {
	t.Helper()
	a = entity.New(assoc("name", "a", "n", 1))
	b = entity.New(assoc("name", "b", "xs", ir.FromStrings("p", "q")))
	c = entity.New(assoc("name", "c"))
	d = entity.New(ir.FromString("leaf"))
	add := func(parent, child *entity.Entity, id string) {
		if _, err := parent.AddContained(child, entity.Intern(id)); err != nil {
			t.Fatal(err)
		}
	}
	add(a, b, "B")
	add(b, c, "C")
	add(a, d, "D")
	a.SetRandomSeed("seed-a", true)
	c.SetRandomSeed("seed-c", false)
	b.SetPermissions(entity.PermLoad|entity.PermStore, entity.PermLoad, false)
	return
}

func flat(e *entity.Entity) string {
	return encode.MustString(Flatten(e), encode.EncodePretty(true))
}

func TestFlatten(t *testing.T) {
	a, _, _, _ := tree(t)
	got := encode.MustString(Flatten(a))
	for _, want := range []string{
		`(assign_entity_roots {name "a" n 1})`,
		`(set_entity_rand_seed "seed-a" .false)`,
		`(create_entities "B" {name "b" xs ["p" "q"]})`,
		`(set_entity_permissions "B" {std_out_and_std_err .false std_in .false load .true`,
		`(create_entities ["B" "C"] {name "c"})`,
		`(set_entity_rand_seed ["B" "C"] "seed-c" .false)`,
		`(create_entities "D" "leaf")`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in\n%s", want, got)
		}
	}
	if strings.Index(got, `"D" "leaf"`) < strings.Index(got, `["B" "C"] {name`) {
		t.Errorf("not pre-order:\n%s", got)
	}
}

func TestStoreLoadFlat(t *testing.T) {
	for _, ft := range []caml.FileType{caml.FileTypeAmlg, caml.FileTypeCaml} {
		t.Run(string(ft), func(t *testing.T) {
			ctx := context.Background()
			m := NewManager(resource.NewMemoryStore())
			a, _, _, _ := tree(t)
			asset, err := m.Asset("trees/a."+string(ft), true)
			if err != nil {
				t.Fatal(err)
			}
			if err := m.Store(ctx, a, asset, false); err != nil {
				t.Fatal(err)
			}
			d, err := resource.ReadAll(ctx, m.Resources, asset.Key)
			if err != nil {
				t.Fatal(err)
			}
			if ft == caml.FileTypeCaml && !caml.HasHeader(d) {
				t.Errorf("no caml header")
			}
			got, err := m.Load(ctx, asset, true)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(flat(a), flat(got)); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
			if !m.IsDirectlyPersistent(got) || m.IsDirectlyPersistent(a) {
				t.Errorf("registry")
			}
		})
	}
}

func TestStoreLoadTree(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := resource.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager(fs)
	a, b, c, _ := tree(t)
	asset, err := m.Asset("a", false)
	if err != nil {
		t.Fatal(err)
	}
	if asset.Key != "a.amlg" {
		t.Fatalf("key %s", asset.Key)
	}
	if err := m.Store(ctx, a, asset, true); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"a.amlg", "a.mdam", "a/B.amlg", "a/B.mdam", "a/B/C.amlg", "a/D.amlg"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing %s", f)
		}
	}
	for _, e := range []*entity.Entity{a, b, c} {
		if !m.IsDirectlyPersistent(e) {
			t.Errorf("%s not persistent", e.ID())
		}
	}
	got, err := m.Load(ctx, asset, false)
	if err != nil {
		t.Fatal(err)
	}
	// permissions are not part of the unflattened layout
	b.SetPermissions(entity.PermAll, entity.PermNone, false)
	if diff := cmp.Diff(flat(a), flat(got)); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestJSON(t *testing.T) {
	ctx := context.Background()
	m := NewManager(resource.NewMemoryStore())
	a, _, _, _ := tree(t)
	flatAsset, _ := m.Asset("a.json", true)
	if err := m.Store(ctx, a, flatAsset, false); !errors.Is(err, ErrFileType) {
		t.Errorf("flat json: %v", err)
	}
	asset, _ := m.Asset("a.json", false)
	if err := m.Store(ctx, a, asset, false); err != nil {
		t.Fatal(err)
	}
	d, err := resource.ReadAll(ctx, m.Resources, "a/B/C.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(d) != `{"name":"c"}` {
		t.Errorf("json %s", d)
	}
	got, err := m.Load(ctx, asset, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumContained() != 2 || !ir.Equal(got.RootRef(), a.RootRef()) {
		t.Errorf("loaded %s", encode.MustString(got.RootRef()))
	}
	if _, err := NewAsset("a.yaml", "", false); !errors.Is(err, ErrFileType) {
		t.Errorf("yaml: %v", err)
	}
}

func TestOnEntityUpdated(t *testing.T) {
	ctx := context.Background()
	for _, flatten := range []bool{true, false} {
		m := NewManager(resource.NewMemoryStore())
		a, _, c, _ := tree(t)
		asset, _ := m.Asset("a.amlg", flatten)
		if err := m.Store(ctx, a, asset, true); err != nil {
			t.Fatal(err)
		}
		if !m.IsIndirectlyPersistent(c) {
			t.Fatalf("flatten=%t: C not indirectly persistent", flatten)
		}
		c.SetLabel("name", ir.FromString("changed"))
		m.OnEntityUpdated(ctx, c)
		got, err := m.Load(ctx, asset, false)
		if err != nil {
			t.Fatal(err)
		}
		gc := entity.Resolve(got, entity.NewPath("B", "C"))
		if gc == nil || gc.Label("name").String != "changed" {
			t.Errorf("flatten=%t: update not stored", flatten)
		}
	}
	m := NewManager(resource.NewMemoryStore())
	lone := entity.New(nil)
	m.OnEntityUpdated(ctx, lone)
	if n, _ := m.Resources.List(ctx, ""); len(n) != 0 {
		t.Errorf("stored a non persistent entity")
	}
}

func TestCreateAndDestroy(t *testing.T) {
	ctx := context.Background()
	store := resource.NewMemoryStore()
	m := NewManager(store)
	a, b, c, _ := tree(t)
	asset, _ := m.Asset("a.amlg", false)
	if err := m.Store(ctx, a, asset, true); err != nil {
		t.Fatal(err)
	}

	e := entity.New(ir.FromInt(7))
	if _, err := b.AddContained(e, entity.Intern("E")); err != nil {
		t.Fatal(err)
	}
	m.OnEntityCreated(ctx, e)
	if d, err := resource.ReadAll(ctx, store, "a/B/E.amlg"); err != nil || string(d) != "7\n" {
		t.Fatalf("created: %q %v", d, err)
	}
	md, err := resource.ReadAll(ctx, store, "a/B.mdam")
	if err != nil || !strings.Contains(string(md), `contained ["C" "E"]`) {
		t.Errorf("container metadata %q %v", md, err)
	}

	m.SetRootPermission(b, true)
	m.SetRootPermission(c, true)
	if !m.HasRootPermission(c) {
		t.Fatal("root permission")
	}
	if !b.Destroy() {
		t.Fatal("destroy refused")
	}
	m.OnEntityDestroyed(ctx, b)
	m.OnEntityUpdated(ctx, a)
	if m.HasRootPermission(b) || m.HasRootPermission(c) {
		t.Error("root permission survived destroy")
	}
	if m.IsDirectlyPersistent(c) {
		t.Error("C still registered")
	}
	infos, err := store.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	want := []string{"a.amlg", "a.mdam", "a/D.amlg", "a/D.mdam"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
}

func TestIncompatibleMetadata(t *testing.T) {
	ctx := context.Background()
	store := resource.NewMemoryStore()
	m := NewManager(store)
	store.Put(ctx, "x.amlg", strings.NewReader("1"))
	store.Put(ctx, "x.mdam", strings.NewReader(`{version "9.0.0"}`))
	asset, _ := m.Asset("x", false)
	if _, err := m.Load(ctx, asset, false); !errors.Is(err, caml.ErrIncompatible) {
		t.Errorf("got %v", err)
	}
	dev := caml.Version{}
	m.Runtime = &dev
	if _, err := m.Load(ctx, asset, false); err != nil {
		t.Errorf("dev runtime: %v", err)
	}
	store.Put(ctx, "x.mdam", strings.NewReader(`{rand_seed 5}`))
	if _, err := m.Load(ctx, asset, false); !errors.Is(err, ErrMetadata) {
		t.Errorf("bad seed: %v", err)
	}
}

func TestLoadWithoutMetadata(t *testing.T) {
	ctx := context.Background()
	store := resource.NewMemoryStore()
	m := NewManager(store)
	store.Put(ctx, "x.amlg", strings.NewReader("{}"))
	store.Put(ctx, "x/b.amlg", strings.NewReader("2"))
	store.Put(ctx, "x/a%2Fb.amlg", strings.NewReader("1"))
	store.Put(ctx, "x/a/deep.amlg", strings.NewReader("3"))
	store.Put(ctx, "x/notes.txt", strings.NewReader("ignored"))
	asset, _ := m.Asset("x", false)
	e, err := m.Load(ctx, asset, false)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, c := range e.ContainedEntities() {
		ids = append(ids, c.ID().String())
	}
	if diff := cmp.Diff([]string{"a/b", "b"}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if got := e.Contained(entity.Intern("b")).RandomSeed(); got != entity.DeriveSeed("", entity.Intern("b")) {
		t.Errorf("seed %q", got)
	}
}

type fakeMetrics struct {
	mu  sync.Mutex
	ops []string
}

func (f *fakeMetrics) ObservePersist(op, fileType string, err error, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op+":"+fileType+":"+map[bool]string{true: "ok", false: "err"}[err == nil])
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	fm := &fakeMetrics{}
	m := NewManager(resource.NewMemoryStore())
	m.Metrics = fm
	a, _, _, _ := tree(t)
	asset, _ := m.Asset("a.caml", true)
	if err := m.Store(ctx, a, asset, false); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(ctx, asset, false); err != nil {
		t.Fatal(err)
	}
	missing, _ := m.Asset("nope.caml", true)
	if _, err := m.Load(ctx, missing, false); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
	want := []string{"store:caml:ok", "load:caml:ok", "load:caml:err"}
	if diff := cmp.Diff(want, fm.ops); diff != "" {
		t.Errorf("ops (-want +got):\n%s", diff)
	}
}
