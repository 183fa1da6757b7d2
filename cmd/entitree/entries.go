package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/signadot/entitree/listener"
	"github.com/signadot/entitree/replay"
)

func entries(cfg *EntriesConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Entries.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: entries requires 1 log, got %v", cli.ErrUsage, args)
	}
	d, err := readInput(cc, args[0])
	if err != nil {
		return err
	}
	return listEntries(cc.Out, d, cfg.Where)
}

// listEntries writes the sequence number and code of each entry that
// satisfies where.
func listEntries(w io.Writer, d []byte, where string) error {
	code, err := listener.DecodeLog(d)
	if err != nil {
		return err
	}
	es, err := listener.ParseLog(code)
	if err != nil {
		return err
	}
	recs, err := replay.Select(replay.Records(es), where)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", r.Seq, r.Code); err != nil {
			return err
		}
	}
	return nil
}
