package caml

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType names how an entity resource is stored.
type FileType string

const (
	// plain code text
	FileTypeAmlg FileType = "amlg"
	// header plus compressed code
	FileTypeCaml FileType = "caml"
	// root payload only
	FileTypeJSON FileType = "json"
)

func (t FileType) String() string { return string(t) }

func (t FileType) Ext() string { return "." + string(t) }

func ParseFileType(s string) (FileType, error) {
	switch ft := FileType(strings.TrimPrefix(strings.ToLower(s), ".")); ft {
	case FileTypeAmlg, FileTypeCaml, FileTypeJSON:
		return ft, nil
	}
	return "", fmt.Errorf("unknown file type %q", s)
}

// FileTypeOf derives the file type from a path's extension.
func FileTypeOf(path string) (FileType, error) {
	return ParseFileType(filepath.Ext(path))
}

func (t FileType) MarshalText() ([]byte, error) { return []byte(t), nil }

func (t *FileType) UnmarshalText(d []byte) error {
	ft, err := ParseFileType(string(d))
	if err != nil {
		return err
	}
	*t = ft
	return nil
}
