package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/korean"
)

// File is an entry to be packed by Write.
type File struct {
	Name string // stored with backslashes, EUC-KR encoded
	Data []byte
}

// Write packs files into a version 0x200 archive. Entries that do not
// shrink under zlib are stored raw.
func Write(w io.Writer, files []File) error {
	var body, table bytes.Buffer
	enc := korean.EUCKR.NewEncoder()

	for _, f := range files {
		stored, err := deflate(f.Data)
		if err != nil {
			return fmt.Errorf("compressing %s: %w", f.Name, err)
		}
		if len(stored) >= len(f.Data) {
			stored = f.Data
		}
		offset := uint32(body.Len())
		body.Write(stored)

		name, err := enc.Bytes([]byte(strings.ReplaceAll(f.Name, "/", "\\")))
		if err != nil {
			return fmt.Errorf("encoding name %q: %w", f.Name, err)
		}
		var rec [entrySize]byte
		binary.LittleEndian.PutUint32(rec[0:], uint32(len(stored)))
		binary.LittleEndian.PutUint32(rec[4:], uint32(len(stored)))
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(f.Data)))
		rec[12] = flagFile
		binary.LittleEndian.PutUint32(rec[13:], offset)

		table.Write(name)
		table.WriteByte(0)
		table.Write(rec[:])
	}

	packed, err := deflate(table.Bytes())
	if err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}

	header := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(files)) + 7,
		Version:     version200,
	}
	copy(header.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[0:], uint32(len(packed)))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(table.Len()))
	if _, err := w.Write(sizes[:]); err != nil {
		return err
	}
	_, err = w.Write(packed)
	return err
}

// Create writes an archive to path, creating parent directories.
func Create(path string, files []File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	if err := Write(file, files); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
