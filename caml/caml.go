// Package caml reads and writes the compressed entity container: a magic
// number and a 12 byte version block followed by Huffman compressed code.
//
// Header layout:
//
//	[magic: 4 bytes]   "caml"
//	[major: 4 bytes]   big endian uint32
//	[minor: 4 bytes]   big endian uint32
//	[patch: 4 bytes]   big endian uint32
package caml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/signadot/entitree/huffman"
)

const (
	Magic       = "caml"
	VersionSize = 12
	HeaderSize  = len(Magic) + VersionSize
)

var (
	ErrHeader       = errors.New("bad caml header")
	ErrBadMagic     = fmt.Errorf("%w: bad magic", ErrHeader)
	ErrTruncated    = fmt.Errorf("%w: truncated", ErrHeader)
	ErrIncompatible = errors.New("incompatible caml version")
)

type Version struct {
	Major, Minor, Patch uint32
}

// Current is the version written by this build. A build whose version is
// 0.0.0 is a development build and reads any version.
var Current = Version{Major: 1}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) IsDev() bool { return v == Version{} }

// ParseVersion reads "major.minor.patch", ignoring any "-suffix".
func ParseVersion(s string) (Version, error) {
	s, _, _ = strings.Cut(s, "-")
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	var vs [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		vs[i] = uint32(n)
	}
	return Version{Major: vs[0], Minor: vs[1], Patch: vs[2]}, nil
}

// CanRead reports whether a reader at version v accepts data written at
// version file. Majors must match. The file minor may not exceed the
// reader's, and at equal minors neither may the file patch.
func (v Version) CanRead(file Version) bool {
	if v.IsDev() {
		return true
	}
	if file.Major != v.Major {
		return false
	}
	if file.Minor != v.Minor {
		return file.Minor < v.Minor
	}
	return file.Patch <= v.Patch
}

func AppendHeader(dst []byte, v Version) []byte {
	dst = append(dst, Magic...)
	dst = binary.BigEndian.AppendUint32(dst, v.Major)
	dst = binary.BigEndian.AppendUint32(dst, v.Minor)
	return binary.BigEndian.AppendUint32(dst, v.Patch)
}

// WriteHeader writes the magic and the Current version.
func WriteHeader(w io.Writer) error {
	return WriteHeaderVersion(w, Current)
}

func WriteHeaderVersion(w io.Writer, v Version) error {
	_, err := w.Write(AppendHeader(make([]byte, 0, HeaderSize), v))
	return err
}

// ParseHeader decodes a header from the first HeaderSize bytes of d.
// The returned version is valid whenever the error is not ErrBadMagic or
// ErrTruncated.
func ParseHeader(d []byte, runtime Version) (Version, error) {
	if len(d) < len(Magic) {
		return Version{}, fmt.Errorf("%w: cannot read magic number", ErrTruncated)
	}
	if string(d[:len(Magic)]) != Magic {
		return Version{}, fmt.Errorf("%w %q", ErrBadMagic, d[:len(Magic)])
	}
	if len(d) < HeaderSize {
		return Version{}, fmt.Errorf("%w: cannot read version", ErrTruncated)
	}
	v := Version{
		Major: binary.BigEndian.Uint32(d[4:8]),
		Minor: binary.BigEndian.Uint32(d[8:12]),
		Patch: binary.BigEndian.Uint32(d[12:16]),
	}
	if !runtime.CanRead(v) {
		return v, fmt.Errorf("%w: reading version %s not supported by %s", ErrIncompatible, v, runtime)
	}
	return v, nil
}

// ReadHeader reads exactly HeaderSize bytes from r.
func ReadHeader(r io.Reader, runtime Version) (Version, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Version{}, err
	}
	return ParseHeader(buf[:n], runtime)
}

// Validate opens path and checks its header against Current.
func Validate(path string) (Version, error) {
	f, err := os.Open(path)
	if err != nil {
		return Version{}, fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()
	return ReadHeader(f, Current)
}

// Encode writes a header for Current followed by the compressed code.
func Encode(w io.Writer, code []byte) error {
	data, _ := huffman.Compress(code)
	buf := AppendHeader(make([]byte, 0, HeaderSize+len(data)), Current)
	_, err := w.Write(append(buf, data...))
	return err
}

// Decode reads a container from r and returns the decompressed code and
// the version it was written with.
func Decode(r io.Reader, runtime Version) ([]byte, Version, error) {
	d, err := io.ReadAll(r)
	if err != nil {
		return nil, Version{}, err
	}
	return DecodeBytes(d, runtime)
}

func DecodeBytes(d []byte, runtime Version) ([]byte, Version, error) {
	v, err := ParseHeader(d, runtime)
	if err != nil {
		return nil, v, err
	}
	code, err := huffman.Decompress(d[HeaderSize:])
	if err != nil {
		return nil, v, fmt.Errorf("caml %s payload: %w", v, err)
	}
	return code, v, nil
}

// HasHeader reports whether d starts with the container magic.
func HasHeader(d []byte) bool {
	return bytes.HasPrefix(d, []byte(Magic))
}
