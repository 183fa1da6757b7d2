package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/signadot/entitree/caml"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/entityop"
	"github.com/signadot/entitree/ir"
	"github.com/signadot/entitree/persist"
)

func patch(cfg *PatchConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Patch.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: patch requires a key and a patch file, got %v", cli.ErrUsage, args)
	}
	p, err := readInput(cc, args[1])
	if err != nil {
		return err
	}
	ctx := context.Background()
	env, err := cfg.env(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	return patchEntity(ctx, env.persist, env.runtime, args[0], !cfg.Tree, splitPath(cfg.Path), p)
}

// patchEntity loads key as a persistent entity and applies the JSON
// patch p to the payload at path, which writes the entity back.
func patchEntity(ctx context.Context, pm *persist.Manager, rt *entityop.Runtime, key string, flatten bool, path entity.Path, p []byte) error {
	a, err := pm.Asset(key, flatten)
	if err != nil {
		return err
	}
	if a.Type == caml.FileTypeJSON {
		a.Flatten = false
	}
	root, err := pm.Load(ctx, a, true)
	if err != nil {
		return fmt.Errorf("load %s: %w", a.Key, err)
	}
	cur, ok := rt.GetRoot(root, path)
	if !ok {
		return fmt.Errorf("%w: %s", entityop.ErrNotFound, path)
	}
	next, err := ir.ApplyJSONPatch(cur, p)
	if err != nil {
		return err
	}
	if !rt.SetRoot(ctx, root, path, next) {
		return fmt.Errorf("%w: %s", entityop.ErrNotFound, path)
	}
	return nil
}

func splitPath(s string) entity.Path {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return entity.NewPath(strings.Split(s, "/")...)
}
