package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/scott-cotton/cli"

	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/listener"
	"github.com/signadot/entitree/persist"
	"github.com/signadot/entitree/replay"
)

func replayCmd(cfg *ReplayConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Replay.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: replay requires 1 log, got %v", cli.ErrUsage, args)
	}
	d, err := readInput(cc, args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	env, err := cfg.env(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	root, err := replayLog(d, cc.Out, env.log.Logger)
	if err != nil {
		return err
	}
	if cfg.Out == "" {
		if err := encode.Encode(persist.Flatten(root), cc.Out, cfg.encOpts(cc.Out, true)...); err != nil {
			return err
		}
		_, err = io.WriteString(cc.Out, "\n")
		return err
	}
	a, err := env.persist.Asset(cfg.Out, !cfg.Tree)
	if err != nil {
		return err
	}
	if err := env.persist.Store(ctx, root, a, false); err != nil {
		return fmt.Errorf("store %s: %w", a.Key, err)
	}
	env.log.Info("stored replayed entity", "key", a.Key, "type", a.Type, "flatten", a.Flatten)
	return nil
}

// replayLog applies a log to a fresh entity. Printed output goes to out
// and system calls are logged.
func replayLog(d []byte, out io.Writer, lg *slog.Logger) (*entity.Entity, error) {
	code, err := listener.DecodeLog(d)
	if err != nil {
		return nil, err
	}
	es, err := listener.ParseLog(code)
	if err != nil {
		return nil, err
	}
	root := entity.New(nil)
	err = replay.ApplyEntries(root, es,
		replay.WithPrint(out),
		replay.WithSystem(func(params *ir.Node) error {
			lg.Info("system call", "params", encode.MustString(params))
			return nil
		}))
	if err != nil {
		return nil, err
	}
	return root, nil
}
