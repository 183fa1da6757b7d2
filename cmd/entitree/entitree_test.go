package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/config"
	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/entityop"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/logs"
	"github.com/signadot/entitree/persist"
	"github.com/signadot/entitree/resource"
)

const testLog = `(seq
	(create_entities "B" {x 1})
	(create_entities ["B" "C"] null)
	(assign_to_entities ["B" "C"] {label 42})
	(print "hello")
	(set_entity_rand_seed "seed")
	(set_entity_permissions "B" {load .true} .false)
	(create_entities "D" [1])
	(destroy_entities "D")
	(system ["ls"])
`

func flatString(e *entity.Entity) string {
	return encode.MustString(persist.Flatten(e))
}

func TestWriteHeaders(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.caml")
	var buf bytes.Buffer
	if err := caml.Encode(&buf, []byte("(seq)")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(good, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "b.amlg")
	if err := os.WriteFile(bad, []byte("(seq)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if !writeHeaders(&out, []string{good}) {
		t.Errorf("valid header rejected: %s", out.String())
	}
	if !strings.Contains(out.String(), "a.caml: caml "+caml.Current.String()) {
		t.Errorf("got %q", out.String())
	}
	out.Reset()
	if writeHeaders(&out, []string{good, bad}) {
		t.Error("missing header accepted")
	}
	if !strings.Contains(out.String(), "b.amlg: ") {
		t.Errorf("got %q", out.String())
	}
}

func TestCatCode(t *testing.T) {
	var compressed bytes.Buffer
	if err := caml.Encode(&compressed, []byte(`(seq (print "x"))`)); err != nil {
		t.Fatal(err)
	}
	for name, d := range map[string][]byte{
		"plain": []byte(`(seq (print "x"))`),
		"caml":  compressed.Bytes(),
	} {
		var out bytes.Buffer
		if err := catCode(&out, d); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := out.String(); got != "(seq (print \"x\"))\n" {
			t.Errorf("%s: got %q", name, got)
		}
	}
	var out bytes.Buffer
	if err := catCode(&out, []byte(testLog)); err != nil {
		t.Fatal(err)
	}
	if out.String() != testLog {
		t.Errorf("interrupted log rewritten: %q", out.String())
	}
}

func TestReplayAndCompact(t *testing.T) {
	var printed bytes.Buffer
	root, err := replayLog([]byte(testLog), &printed, logs.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if printed.String() != "hello" {
		t.Errorf("printed %q", printed.String())
	}
	if entity.Resolve(root, entity.NewPath("D")) != nil {
		t.Error("D survived")
	}
	for _, compress := range []bool{false, true} {
		var out bytes.Buffer
		lcfg := listenerConfig(config.Listener{Compress: compress}, []byte(testLog))
		lcfg.Sink = nopCloser{&out}
		if err := compactTo(root, lcfg); err != nil {
			t.Fatal(err)
		}
		if compress == bytes.HasPrefix(out.Bytes(), []byte("(seq")) {
			t.Errorf("compress=%v wrote %q", compress, out.Bytes()[:min(out.Len(), 8)])
		}
		again, err := replayLog(out.Bytes(), &printed, logs.Discard())
		if err != nil {
			t.Fatalf("compress=%v: %v", compress, err)
		}
		if diff := cmp.Diff(flatString(root), flatString(again)); diff != "" {
			t.Errorf("compress=%v: compacted replay differs (-want +got):\n%s", compress, diff)
		}
	}
}

func TestListEntries(t *testing.T) {
	var out bytes.Buffer
	if err := listEntries(&out, []byte(testLog), `kind startsWith "create"`); err != nil {
		t.Fatal(err)
	}
	want := "1\t(create_entities \"B\" {x 1})\n" +
		"2\t(create_entities [\"B\" \"C\"] null)\n" +
		"7\t(create_entities \"D\" [1])\n"
	if out.String() != want {
		t.Errorf("got\n%s\nwant\n%s", out.String(), want)
	}
	if err := listEntries(&out, []byte(testLog), `kind +`); err == nil {
		t.Error("bad expression accepted")
	}
}

func TestPatchEntity(t *testing.T) {
	ctx := context.Background()
	store := resource.NewMemoryStore()
	pm := persist.NewManager(store)
	rt := &entityop.Runtime{Persist: pm}

	a := entity.New(ir.FromString("top"))
	b := entity.New(ir.FromKeyVals([]ir.KeyVal{{Key: "x", Val: ir.FromInt(1)}}))
	if _, err := a.AddContained(b, entity.Intern("B")); err != nil {
		t.Fatal(err)
	}
	asset, err := pm.Asset("a", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := pm.Store(ctx, a, asset, false); err != nil {
		t.Fatal(err)
	}

	p := []byte(`[{"op": "replace", "path": "/x", "value": 2}]`)
	if err := patchEntity(ctx, pm, rt, "a", true, splitPath("/B/"), p); err != nil {
		t.Fatal(err)
	}
	got, err := persist.NewManager(store).Load(ctx, asset, false)
	if err != nil {
		t.Fatal(err)
	}
	root, ok := rt.GetRoot(got, entity.NewPath("B"))
	if !ok || encode.MustString(root) != "{x 2}" {
		t.Errorf("patched root %v", root)
	}
	if err := patchEntity(ctx, pm, rt, "a", true, splitPath("nope"), p); err == nil {
		t.Error("patched a missing entity")
	}
}

func TestSplitPath(t *testing.T) {
	if splitPath("") != nil || splitPath("/") != nil {
		t.Error("empty path not nil")
	}
	if got := splitPath("a/b").String(); got != entity.NewPath("a", "b").String() {
		t.Errorf("got %s", got)
	}
}
