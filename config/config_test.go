package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/resource"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entitree.toml")
	data := `
[persist]
driver = "s3"
default_type = "caml"
pretty = true

[listener]
compress = true

[log]
level = "debug"

[s3]
bucket = "trees"
endpoint = "http://localhost:9000"
path_style = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Persist.Driver = resource.DriverS3
	want.Persist.DefaultType = caml.FileTypeCaml
	want.Persist.Pretty = true
	want.Listener.Compress = true
	want.Log.Level = slog.LevelDebug
	want.S3.Bucket = "trees"
	want.S3.Endpoint = "http://localhost:9000"
	want.S3.PathStyle = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	rc := cfg.Resource()
	if rc.Driver != resource.DriverS3 || rc.S3.Region != "us-east-1" || rc.S3.Bucket != "trees" {
		t.Errorf("resource config %+v", rc)
	}
}

func TestParseConfigErrors(t *testing.T) {
	cases := []struct {
		data, want string
	}{
		{`[persist]` + "\n" + `driver = "tape"`, "unknown driver"},
		{`[persist]` + "\n" + `driver = "s3"`, "s3.bucket"},
		{`[persist]` + "\n" + `default_type = "yaml"`, "default_type"},
		{`[log]` + "\n" + `level = "loud"`, "log.level"},
		{`[persist]` + "\n" + `colour = true`, "unknown config key"},
		{`[persist`, "parse config"},
	}
	for _, c := range cases {
		_, err := ParseConfig(c.data)
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Errorf("%q: got %v, want %q", c.data, err, c.want)
		}
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
	cfg, err := ParseConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("empty file (-want +got):\n%s", diff)
	}
}
