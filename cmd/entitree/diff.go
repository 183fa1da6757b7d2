package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/libdiff"
	"github.com/signadot/entitree/listener"
	"github.com/signadot/entitree/parse"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 args, got %v", cli.ErrUsage, args)
	}
	var nodes [2]*ir.Node
	for i, file := range args {
		d, err := readInput(cc, file)
		if err != nil {
			return err
		}
		n, err := decodeNode(d)
		if err != nil {
			return fmt.Errorf("error decoding %s: %w", file, err)
		}
		nodes[i] = n
	}
	ls := libdiff.Nodes(nodes[0], nodes[1])
	if !libdiff.Changed(ls) {
		return nil
	}
	if err := libdiff.Write(cc.Out, ls, cfg.colored(cc.Out)); err != nil {
		return err
	}
	return cli.ExitCodeErr(1)
}

func decodeNode(d []byte) (*ir.Node, error) {
	code, err := listener.DecodeLog(d)
	if err != nil {
		return nil, err
	}
	return parse.Parse(code)
}
