// Package resource stores the files that persistent entities are written
// to. Keys are slash separated relative paths; a Store maps them onto a
// directory, process memory or an S3 bucket.
package resource

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a Store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

func (d Driver) Valid() bool {
	switch d {
	case DriverFilesystem, DriverMemory, DriverS3:
		return true
	}
	return false
}

var (
	ErrNotFound = errors.New("resource not found")
	ErrKey      = errors.New("invalid resource key")
)

// Info describes a stored resource.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is a flat key to bytes mapping. Put replaces existing content.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Get returns ErrNotFound (possibly wrapped) for a missing key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete reports whether key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// List returns the keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ReadAll reads the whole resource at key.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
