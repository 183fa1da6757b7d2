package resource

import (
	"context"
	"fmt"
)

// Config selects and configures a Store.
type Config struct {
	Driver Driver
	// Dir is the root of a filesystem store.
	Dir string
	S3  S3Config
}

// Open returns the Store cfg names. The zero Config opens a filesystem
// store on the working directory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFSStore(cfg.Dir)
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unknown resource driver %q", cfg.Driver)
}
