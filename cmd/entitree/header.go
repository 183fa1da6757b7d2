package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/signadot/entitree/caml"
)

func header(cfg *HeaderConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Header.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: header requires at least one file", cli.ErrUsage)
	}
	if !writeHeaders(cc.Out, args) {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// writeHeaders reports each file's version, or why it cannot be read,
// and returns false if any file failed.
func writeHeaders(w io.Writer, files []string) bool {
	ok := true
	for _, file := range files {
		v, err := caml.Validate(file)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", file, err)
			ok = false
			continue
		}
		fmt.Fprintf(w, "%s: caml %s\n", file, v)
	}
	return ok
}
