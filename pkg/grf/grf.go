// Package grf reads elevation data out of Ragnarok Online GRF archives.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200
	entrySize  = 17 // sizes, flags and offset following each name
)

// Entry flags.
const (
	flagFile      = 0x01
	flagEncrypted = 0x02 | 0x04
)

// Archive errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrCorruptTable       = errors.New("corrupt GRF file table")
	ErrNotFound           = errors.New("file not found in archive")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
)

// Archive is an opened GRF archive.
type Archive struct {
	file    *os.File
	header  Header
	entries map[string]*Entry
}

// Header is the fixed 46-byte GRF header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry describes one stored file.
type Entry struct {
	Name             string // UTF-8, lowercase, forward slashes
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a version 0x200 GRF archive and reads its file table.
func Open(name string) (*Archive, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	a := &Archive{file: file, entries: make(map[string]*Entry)}
	if err := a.readHeader(); err != nil {
		file.Close()
		return nil, err
	}
	if err := a.readFileTable(); err != nil {
		file.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.file, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != version200 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [8]byte
	if _, err := a.file.ReadAt(sizes[:], tableOffset); err != nil {
		return fmt.Errorf("%w: reading table sizes: %v", ErrCorruptTable, err)
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])

	compressed := make([]byte, compressedSize)
	if _, err := a.file.ReadAt(compressed, tableOffset+8); err != nil {
		return fmt.Errorf("%w: reading table: %v", ErrCorruptTable, err)
	}
	table, err := inflate(compressed, uncompressedSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}

	if a.header.FileCount < a.header.Seed+7 {
		return fmt.Errorf("%w: file count %d below seed %d", ErrCorruptTable, a.header.FileCount, a.header.Seed)
	}
	count := a.header.FileCount - a.header.Seed - 7

	offset := 0
	for i := uint32(0); i < count; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 || offset+nameEnd+1+entrySize > len(table) {
			return fmt.Errorf("%w: entry %d runs past table end", ErrCorruptTable, i)
		}
		rawName := table[offset : offset+nameEnd]
		offset += nameEnd + 1

		rec := table[offset : offset+entrySize]
		e := &Entry{
			Name:             normalizeName(decodeName(rawName)),
			CompressedSize:   binary.LittleEndian.Uint32(rec[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(rec[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[8:]),
			Flags:            rec[12],
			Offset:           binary.LittleEndian.Uint32(rec[13:]),
		}
		offset += entrySize

		// Directories carry no file flag.
		if e.Flags&flagFile != 0 {
			a.entries[e.Name] = e
		}
	}
	return nil
}

// List returns every stored file name, sorted.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match returns the stored names matching a path.Match pattern, sorted.
// The pattern is tested against the full name and the base name.
func (a *Archive) Match(pattern string) ([]string, error) {
	pattern = normalizeName(pattern)
	var out []string
	for _, name := range a.List() {
		full, err := path.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		base, _ := path.Match(pattern, path.Base(name))
		if full || base {
			out = append(out, name)
		}
	}
	return out, nil
}

// Contains reports whether name is stored in the archive.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[normalizeName(name)]
	return ok
}

// Stat returns the entry for name.
func (a *Archive) Stat(name string) (*Entry, error) {
	e, ok := a.entries[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, nil
}

// Read returns the decompressed contents of name.
func (a *Archive) Read(name string) ([]byte, error) {
	e, err := a.Stat(name)
	if err != nil {
		return nil, err
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, name)
	}

	stored := make([]byte, e.AlignedSize)
	if _, err := a.file.ReadAt(stored, int64(e.Offset)+headerSize); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if e.CompressedSize > e.AlignedSize {
		return nil, fmt.Errorf("%w: %s compressed size exceeds stored size", ErrCorruptTable, name)
	}
	if e.CompressedSize == e.UncompressedSize {
		return stored[:e.UncompressedSize], nil
	}

	data, err := inflate(stored[:e.CompressedSize], e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("inflating %s: %w", name, err)
	}
	return data, nil
}

func inflate(compressed []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeName converts an EUC-KR entry name to UTF-8, falling back to the
// raw bytes when they are not valid EUC-KR.
func decodeName(raw []byte) string {
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
}
