package dem

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// createTestGAT builds a GAT file whose cell (x, y) has all corners at
// altitude(x, y).
func createTestGAT(width, height uint32, altitude func(x, y int) float32) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("GRAT")
	buf.WriteByte(2) // minor
	buf.WriteByte(1) // major
	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)

	for y := 0; y < int(height); y++ {
		for x := 0; x < int(width); x++ {
			for j := 0; j < 4; j++ {
				binary.Write(buf, binary.LittleEndian, altitude(x, y))
			}
			binary.Write(buf, binary.LittleEndian, uint32(0))
		}
	}
	return buf.Bytes()
}

// createTestGND builds a GND file with one texture, one lightmap and one
// surface ahead of the tiles.
func createTestGND(width, height uint32, altitude func(x, y int) float32) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("GRGN")
	buf.WriteByte(1) // major
	buf.WriteByte(7) // minor
	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)
	binary.Write(buf, binary.LittleEndian, float32(10))

	// Textures: count, name length, names
	binary.Write(buf, binary.LittleEndian, uint32(1))
	binary.Write(buf, binary.LittleEndian, uint32(80))
	name := make([]byte, 80)
	copy(name, "grass.bmp")
	buf.Write(name)

	// Lightmaps: count, width, height, cells, then brightness + RGB
	binary.Write(buf, binary.LittleEndian, uint32(1))
	binary.Write(buf, binary.LittleEndian, uint32(8))
	binary.Write(buf, binary.LittleEndian, uint32(8))
	binary.Write(buf, binary.LittleEndian, uint32(1))
	buf.Write(make([]byte, 64))
	buf.Write(make([]byte, 64*3))

	// Surfaces
	binary.Write(buf, binary.LittleEndian, uint32(1))
	buf.Write(make([]byte, gndSurfaceSize))

	for y := 0; y < int(height); y++ {
		for x := 0; x < int(width); x++ {
			for j := 0; j < 4; j++ {
				binary.Write(buf, binary.LittleEndian, altitude(x, y))
			}
			binary.Write(buf, binary.LittleEndian, int32(0))
			binary.Write(buf, binary.LittleEndian, int32(-1))
			binary.Write(buf, binary.LittleEndian, int32(-1))
		}
	}
	return buf.Bytes()
}

func roAltitude(x, y int) float32 {
	return -float32(10*y + x)
}

func TestDecodeGAT(t *testing.T) {
	data := createTestGAT(3, 2, roAltitude)

	g, err := DecodeGAT(data)
	if err != nil {
		t.Fatalf("DecodeGAT failed: %v", err)
	}
	if g.Rows != 2 || g.Cols != 3 {
		t.Fatalf("expected 2x3 grid, got %dx%d", g.Rows, g.Cols)
	}
	// Northern map row (y=1) is grid row 0; altitudes are negated.
	if g.At(0, 2) != 12 {
		t.Errorf("expected 12 at (0,2), got %v", g.At(0, 2))
	}
	if g.At(1, 0) != 0 {
		t.Errorf("expected 0 at (1,0), got %v", g.At(1, 0))
	}
}

func TestDecodeGAT_CornerAverage(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.WriteString("GRAT")
	buf.Write([]byte{2, 1})
	binary.Write(buf, binary.LittleEndian, uint32(1))
	binary.Write(buf, binary.LittleEndian, uint32(1))
	for _, h := range []float32{-1, -2, -3, -6} {
		binary.Write(buf, binary.LittleEndian, h)
	}
	binary.Write(buf, binary.LittleEndian, uint32(1))

	g, err := DecodeGAT(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeGAT failed: %v", err)
	}
	if g.Data[0] != 3 {
		t.Errorf("expected average elevation 3, got %v", g.Data[0])
	}
}

func TestDecodeGAT_Errors(t *testing.T) {
	valid := createTestGAT(2, 2, roAltitude)

	badMagic := append([]byte{}, valid...)
	copy(badMagic, "XXXX")

	badVersion := append([]byte{}, valid...)
	badVersion[5] = 9

	zeroWidth := append([]byte{}, valid...)
	binary.LittleEndian.PutUint32(zeroWidth[6:], 0)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte("GRAT"), ErrTruncated},
		{"bad magic", badMagic, ErrMalformed},
		{"bad version", badVersion, ErrUnsupported},
		{"zero width", zeroWidth, ErrMalformed},
		{"truncated cells", valid[:len(valid)-5], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeGAT(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeGND(t *testing.T) {
	data := createTestGND(4, 3, roAltitude)

	g, err := DecodeGND(data)
	if err != nil {
		t.Fatalf("DecodeGND failed: %v", err)
	}
	if g.Rows != 3 || g.Cols != 4 {
		t.Fatalf("expected 3x4 grid, got %dx%d", g.Rows, g.Cols)
	}
	if g.At(0, 3) != 23 {
		t.Errorf("expected 23 at (0,3), got %v", g.At(0, 3))
	}
	if g.At(2, 1) != 1 {
		t.Errorf("expected 1 at (2,1), got %v", g.At(2, 1))
	}
}

func TestDecodeGND_Errors(t *testing.T) {
	valid := createTestGND(2, 2, roAltitude)

	badVersion := append([]byte{}, valid...)
	badVersion[5] = 2

	hugeTextures := append([]byte{}, valid...)
	binary.LittleEndian.PutUint32(hugeTextures[18:], 1<<30)

	// Lightmap count, width, height and cells follow the 80-byte texture name.
	// 2^16 each multiplies past int64 and wraps to a zero-byte skip.
	wrapLightmaps := append([]byte{}, valid...)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(wrapLightmaps[106+4*i:], 1<<16)
	}

	hugeLightmaps := append([]byte{}, valid...)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(hugeLightmaps[106+4*i:], 0xFFFFFFFF)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte("GRGN\x01\x07"), ErrTruncated},
		{"bad magic", append([]byte("GRAT"), valid[4:]...), ErrMalformed},
		{"bad version", badVersion, ErrUnsupported},
		{"texture overflow", hugeTextures, ErrTruncated},
		{"lightmap size wraps", wrapLightmaps, ErrTruncated},
		{"lightmap overflow", hugeLightmaps, ErrTruncated},
		{"truncated tiles", valid[:len(valid)-1], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeGND(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
