package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/signadot/entitree/config"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/huffman"
	"github.com/signadot/entitree/listener"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func compact(cfg *CompactConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Compact.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: compact requires 1 log, got %v", cli.ErrUsage, args)
	}
	d, err := readInput(cc, args[0])
	if err != nil {
		return err
	}
	env, err := cfg.env(context.Background())
	if err != nil {
		return err
	}
	defer env.Close()
	var w io.WriteCloser = nopCloser{cc.Out}
	if cfg.Out != "" {
		f, err := os.Create(cfg.Out)
		if err != nil {
			return err
		}
		w = f
	}
	root, err := replayLog(d, io.Discard, env.log.Logger)
	if err != nil {
		w.Close()
		return err
	}
	lcfg := listenerConfig(env.conf.Listener, d)
	lcfg.Sink = w
	lcfg.Logger = env.log.Logger
	lcfg.Metrics = env.metrics
	return compactTo(root, lcfg)
}

// listenerConfig applies the configured listener settings. A compressed
// log gets a code built from sample.
func listenerConfig(lc config.Listener, sample []byte) listener.Config {
	res := listener.Config{Retain: lc.Retain, Pretty: lc.Pretty, SortKeys: lc.SortKeys}
	if lc.Compress {
		if code, err := listener.DecodeLog(sample); err == nil {
			sample = code
		}
		res.Compress = huffman.NewCode(huffman.TableFor(sample))
	}
	return res
}

// compactTo logs the state of root through a listener anchored at it:
// the root payload, then one creation per contained entity, then every
// seed and permission set.
func compactTo(root *entity.Entity, cfg listener.Config) error {
	l := listener.New(root, cfg)
	b := entity.AcquireSubtree(root, entity.Read)
	if b == nil {
		l.Close()
		return entity.ErrDestroyed
	}
	l.LogWriteRoot(root)
	for _, c := range root.ContainedEntities() {
		l.LogCreateEntity(c)
	}
	root.Walk(func(x *entity.Entity) bool {
		if s := x.RandomSeed(); s != "" {
			l.LogSetRandomSeed(x, s, false)
		}
		if p := x.Permissions(); p != entity.PermNone {
			l.LogSetPermissions(x, entity.PermAll, p, false)
		}
		return true
	})
	b.Release()
	if err := l.Err(); err != nil {
		l.Close()
		return err
	}
	return l.Close()
}
