package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFanout(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "log.json")
	l, err := New(&buf, Options{Level: slog.LevelDebug, JSONFile: path})
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("stored entity", "path", "a/b", "type", "caml")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "msg=\"stored entity\" path=a/b type=caml") {
		t.Errorf("text %q", buf.String())
	}
	d, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]any
	if err := json.Unmarshal(d, &rec); err != nil {
		t.Fatalf("json %q: %v", d, err)
	}
	if rec["msg"] != "stored entity" || rec["path"] != "a/b" {
		t.Errorf("record %v", rec)
	}
}

func TestLevel(t *testing.T) {
	t.Setenv("DEBUG", "")
	var buf bytes.Buffer
	l, err := New(&buf, Options{})
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("got %q", buf.String())
	}
	Discard().Error("nothing")
}

func TestDefaultLevel(t *testing.T) {
	t.Setenv("DEBUG", "1")
	if got := DefaultLevel(); got != slog.LevelDebug {
		t.Errorf("DEBUG=1 gives %s", got)
	}
	t.Setenv("DEBUG", "")
	if got := DefaultLevel(); got != slog.LevelInfo {
		t.Errorf("unset DEBUG gives %s", got)
	}
}
