package resource

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func keys(infos []Info) []string {
	res := make([]string, len(infos))
	for i, info := range infos {
		res[i] = info.Key
	}
	return res
}

// testStore runs the behaviour every driver shares.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, k := range []string{"a/one.amlg", "a/two.caml", "b.json"} {
		info, err := s.Put(ctx, k, strings.NewReader("data:"+k))
		if err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
		if info.Size != int64(len("data:"+k)) {
			t.Errorf("put %s size %d", k, info.Size)
		}
	}
	if _, err := s.Put(ctx, "b.json", strings.NewReader("replaced")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := ReadAll(ctx, s, "b.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "replaced" {
		t.Errorf("got %q", got)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing get: %v", err)
	}

	infos, err := s.List(ctx, "a/")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a/one.amlg", "a/two.caml"}, keys(infos)); diff != "" {
		t.Errorf("list (-want +got):\n%s", diff)
	}

	ok, err := s.Delete(ctx, "b.json")
	if err != nil || !ok {
		t.Errorf("delete: %v %v", ok, err)
	}
	ok, err = s.Delete(ctx, "b.json")
	if err != nil || ok {
		t.Errorf("second delete: %v %v", ok, err)
	}
	n, err := s.DeletePrefix(ctx, "a/")
	if err != nil || n != 2 {
		t.Errorf("delete prefix: %d %v", n, err)
	}
	infos, err = s.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Errorf("left over: %v", keys(infos))
	}
	if _, err := s.Put(ctx, "../escape", strings.NewReader("x")); !errors.Is(err, ErrKey) {
		t.Errorf("escape: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFSStore(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || s.Driver() != DriverMemory {
		t.Fatalf("memory: %v", err)
	}
	dir := t.TempDir()
	s, err = Open(ctx, Config{Dir: dir})
	if err != nil || s.Driver() != DriverFilesystem {
		t.Fatalf("fs: %v", err)
	}
	if s.(*FSStore).Root() != dir {
		t.Errorf("root %s", s.(*FSStore).Root())
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Error("expected unknown driver error")
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Error("expected missing bucket error")
	}
}
