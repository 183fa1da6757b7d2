// Package config loads entitree settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/resource"
)

type Config struct {
	Persist  Persist
	Listener Listener
	Log      Log
	S3       S3
}

type Persist struct {
	Driver      resource.Driver
	Dir         string
	DefaultType caml.FileType
	Pretty      bool
	SortKeys    bool
}

type Listener struct {
	// Compress writes logs as Huffman blocks.
	Compress bool
	Retain   bool
	Pretty   bool
	SortKeys bool
}

type Log struct {
	Level slog.Level
	// JSONFile, when set, receives a JSON copy of every log record.
	JSONFile string
}

type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Prefix    string
}

func DefaultConfig() *Config {
	return &Config{
		Persist: Persist{
			Driver:      resource.DriverFilesystem,
			Dir:         ".",
			DefaultType: caml.FileTypeAmlg,
		},
		Log: Log{Level: slog.LevelInfo},
		S3:  S3{Region: "us-east-1"},
	}
}

// file mirrors the TOML layout.
type file struct {
	Persist struct {
		Driver      string `toml:"driver"`
		Dir         string `toml:"dir"`
		DefaultType string `toml:"default_type"`
		Pretty      bool   `toml:"pretty"`
		SortKeys    bool   `toml:"sort_keys"`
	} `toml:"persist"`
	Listener struct {
		Compress bool `toml:"compress"`
		Retain   bool `toml:"retain"`
		Pretty   bool `toml:"pretty"`
		SortKeys bool `toml:"sort_keys"`
	} `toml:"listener"`
	Log struct {
		Level    string `toml:"level"`
		JSONFile string `toml:"json_file"`
	} `toml:"log"`
	S3 struct {
		Bucket    string `toml:"bucket"`
		Region    string `toml:"region"`
		Endpoint  string `toml:"endpoint"`
		PathStyle bool   `toml:"path_style"`
		Prefix    string `toml:"prefix"`
	} `toml:"s3"`
}

// LoadConfig reads path and overlays the keys it defines on the defaults.
func LoadConfig(path string) (*Config, error) {
	var raw file
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return fromFile(&raw, meta)
}

// ParseConfig is LoadConfig on TOML text.
func ParseConfig(data string) (*Config, error) {
	var raw file
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return fromFile(&raw, meta)
}

func fromFile(raw *file, meta toml.MetaData) (*Config, error) {
	if undec := meta.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undec[0].String())
	}
	cfg := DefaultConfig()
	if meta.IsDefined("persist", "driver") {
		cfg.Persist.Driver = resource.Driver(strings.TrimSpace(raw.Persist.Driver))
	}
	if meta.IsDefined("persist", "dir") {
		cfg.Persist.Dir = strings.TrimSpace(raw.Persist.Dir)
	}
	if meta.IsDefined("persist", "default_type") {
		ft, err := caml.ParseFileType(strings.TrimSpace(raw.Persist.DefaultType))
		if err != nil {
			return nil, fmt.Errorf("persist.default_type: %w", err)
		}
		cfg.Persist.DefaultType = ft
	}
	cfg.Persist.Pretty = raw.Persist.Pretty
	cfg.Persist.SortKeys = raw.Persist.SortKeys
	cfg.Listener = Listener(raw.Listener)
	if meta.IsDefined("log", "level") {
		if err := cfg.Log.Level.UnmarshalText([]byte(strings.TrimSpace(raw.Log.Level))); err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
	}
	cfg.Log.JSONFile = strings.TrimSpace(raw.Log.JSONFile)
	cfg.S3.Bucket = strings.TrimSpace(raw.S3.Bucket)
	if meta.IsDefined("s3", "region") {
		cfg.S3.Region = strings.TrimSpace(raw.S3.Region)
	}
	cfg.S3.Endpoint = strings.TrimSpace(raw.S3.Endpoint)
	cfg.S3.PathStyle = raw.S3.PathStyle
	cfg.S3.Prefix = strings.TrimSpace(raw.S3.Prefix)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if !c.Persist.Driver.Valid() {
		errs = append(errs, fmt.Errorf("persist.driver: unknown driver %q", c.Persist.Driver))
	}
	if c.Persist.Driver == resource.DriverS3 && c.S3.Bucket == "" {
		errs = append(errs, errors.New("s3.bucket is required for the s3 driver"))
	}
	if c.Persist.Driver == resource.DriverFilesystem && c.Persist.Dir == "" {
		errs = append(errs, errors.New("persist.dir is required for the fs driver"))
	}
	return errors.Join(errs...)
}

// Resource returns the store configuration.
func (c *Config) Resource() resource.Config {
	return resource.Config{
		Driver: c.Persist.Driver,
		Dir:    c.Persist.Dir,
		S3: resource.S3Config{
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			PathStyle: c.S3.PathStyle,
			Prefix:    c.S3.Prefix,
		},
	}
}
