package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "entitree").
		WithSynopsis("entitree [opts] command [opts]").
		WithDescription("entitree inspects and rewrites entity files and transaction logs.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return entitreeMain(cfg, cc, args)
		}).
		WithSubs(
			HeaderCommand(cfg),
			CatCommand(cfg),
			ReplayCommand(cfg),
			CompactCommand(cfg),
			DiffCommand(cfg),
			EntriesCommand(cfg),
			PatchCommand(cfg))
}

func HeaderCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &HeaderConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Header, "header").
		WithAliases("h").
		WithSynopsis("header files").
		WithDescription("print the caml version of files").
		WithRun(func(cc *cli.Context, args []string) error {
			return header(cfg, cc, args)
		})
}

func CatCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CatConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Cat, "cat").
		WithAliases("c").
		WithSynopsis("cat [-p] [files]").
		WithDescription("print the code of entity files and logs, compressed or not").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return cat(cfg, cc, args)
		})
}

func ReplayCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ReplayConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Replay, "replay").
		WithAliases("r").
		WithSynopsis("replay [-o key [-tree]] log").
		WithDescription("replay a transaction log into a fresh entity and print or store it").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return replayCmd(cfg, cc, args)
		})
}

func CompactCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CompactConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Compact, "compact").
		WithSynopsis("compact [-o file] log").
		WithDescription("rewrite a transaction log as the entries creating its final state").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return compact(cfg, cc, args)
		})
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d", "di").
		WithSynopsis("diff a b").
		WithDescription("diff the code of two entity files, exiting 1 when they differ").
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
}

func EntriesCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &EntriesConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Entries, "entries").
		WithAliases("e").
		WithSynopsis("entries [-where expr] log").
		WithDescription("list the entries of a transaction log").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return entries(cfg, cc, args)
		})
}

func PatchCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PatchConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Patch, "patch").
		WithAliases("p").
		WithSynopsis("patch [-path p] [-tree] key patchfile").
		WithDescription("apply a JSON patch to the payload of a stored entity").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return patch(cfg, cc, args)
		})
}
