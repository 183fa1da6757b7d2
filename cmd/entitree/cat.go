package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/listener"
	"github.com/signadot/entitree/parse"
)

func cat(cfg *CatConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Cat.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"-"}
	}
	opts := cfg.encOpts(cc.Out, cfg.Pretty)
	for _, file := range args {
		d, err := readInput(cc, file)
		if err != nil {
			return err
		}
		if err := catCode(cc.Out, d, opts...); err != nil {
			return fmt.Errorf("error processing %s: %w", file, err)
		}
	}
	return nil
}

// catCode decodes d, which may be a caml file, a compressed log or plain
// code, and writes its code. Code that does not parse, such as a log cut
// off mid entry, is written as is.
func catCode(w io.Writer, d []byte, opts ...encode.EncodeOption) error {
	code, err := listener.DecodeLog(d)
	if err != nil {
		return err
	}
	nodes, err := parse.ParseAll(code)
	if err != nil {
		_, err = w.Write(code)
		return err
	}
	for _, n := range nodes {
		if err := encode.Encode(n, w, opts...); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
