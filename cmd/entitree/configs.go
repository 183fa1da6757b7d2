package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/scott-cotton/cli"

	"github.com/signadot/entitree/config"
	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/entityop"
	"github.com/signadot/entitree/logs"
	"github.com/signadot/entitree/metrics"
	"github.com/signadot/entitree/persist"
	"github.com/signadot/entitree/resource"
)

type MainConfig struct {
	Config  string `cli:"name=config desc='TOML configuration file'"`
	V       bool   `cli:"name=v desc='debug logging'"`
	Color   bool   `cli:"name=color desc='encode with color'"`
	Metrics bool   `cli:"name=metrics desc='log collected metrics on exit'"`

	Main *cli.Command
}

// colored reports whether output to w gets colors: always with -color,
// otherwise when w is a terminal and -color was not given as false.
func (cfg *MainConfig) colored(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name == "color" && opt.Value != nil {
			return false
		}
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (cfg *MainConfig) encOpts(w io.Writer, pretty bool) []encode.EncodeOption {
	res := []encode.EncodeOption{encode.EncodePretty(pretty)}
	if cfg.colored(w) {
		res = append(res, encode.EncodeColors(encode.NewColors()))
	}
	return res
}

// env is what a command runs against, built from the configuration
// file and flags.
type env struct {
	conf     *config.Config
	log      *logs.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    resource.Store
	persist  *persist.Manager
	runtime  *entityop.Runtime
	dump     bool
}

func (cfg *MainConfig) env(ctx context.Context) (*env, error) {
	conf := config.DefaultConfig()
	if cfg.Config != "" {
		c, err := config.LoadConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		conf = c
	}
	var level slog.Leveler = conf.Log.Level
	if cfg.V || logs.DefaultLevel() == slog.LevelDebug {
		level = slog.LevelDebug
	}
	lg, err := logs.New(os.Stderr, logs.Options{Level: level, JSONFile: conf.Log.JSONFile})
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	store, err := resource.Open(ctx, conf.Resource())
	if err != nil {
		lg.Close()
		return nil, fmt.Errorf("open %s store: %w", conf.Persist.Driver, err)
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	pm := persist.NewManager(store)
	pm.Logger = lg.Logger
	pm.Metrics = m
	pm.Pretty = conf.Persist.Pretty
	pm.SortKeys = conf.Persist.SortKeys
	pm.DefaultType = conf.Persist.DefaultType
	lg.Debug("opened store", "driver", store.Driver(), "default_type", pm.DefaultType)
	return &env{
		conf:     conf,
		log:      lg,
		registry: reg,
		metrics:  m,
		store:    store,
		persist:  pm,
		runtime:  &entityop.Runtime{Persist: pm, Logger: lg.Logger, Metrics: m},
		dump:     cfg.Metrics,
	}, nil
}

func (e *env) Close() error {
	if e.dump {
		fams, err := e.registry.Gather()
		if err != nil {
			e.log.Error("gather metrics", "error", err)
		}
		for _, f := range fams {
			e.log.Info("metric", "name", f.GetName(), "series", len(f.GetMetric()))
		}
	}
	return e.log.Close()
}

type HeaderConfig struct {
	*MainConfig

	Header *cli.Command
}

type CatConfig struct {
	*MainConfig
	Pretty bool `cli:"name=p desc='pretty print'"`

	Cat *cli.Command
}

type ReplayConfig struct {
	*MainConfig
	Out  string `cli:"name=o desc='store the result under this key'"`
	Tree bool   `cli:"name=tree desc='store one resource per entity'"`

	Replay *cli.Command
}

type CompactConfig struct {
	*MainConfig
	Out string `cli:"name=o desc='output log file (default stdout)'"`

	Compact *cli.Command
}

type DiffConfig struct {
	*MainConfig

	Diff *cli.Command
}

type EntriesConfig struct {
	*MainConfig
	Where string `cli:"name=where desc='expression entries must satisfy'"`

	Entries *cli.Command
}

type PatchConfig struct {
	*MainConfig
	Path string `cli:"name=path desc='slash separated path of the entity to patch'"`
	Tree bool   `cli:"name=tree desc='the key holds one resource per entity'"`

	Patch *cli.Command
}
