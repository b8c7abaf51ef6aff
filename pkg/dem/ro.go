package dem

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Faultbox/relief/pkg/hillshade"
)

// Ragnarok Online heightmaps store four corner altitudes per cell with the
// vertical axis pointing down. Decoders negate the corner average so higher
// terrain has larger values, and flip rows so row 0 is the northern edge.

const (
	gatMagic = "GRAT"
	gndMagic = "GRGN"

	gatCellSize    = 4*4 + 4         // corner heights + cell type
	gndSurfaceSize = 4*4*2 + 2*2 + 4 // UVs + texture/lightmap IDs + BGRA
	gndTileSize    = 4*4 + 3*4       // corner heights + surface IDs
)

// DecodeGAT reads the elevation of a GAT (ground altitude table) file.
// Versions 1.x to 3.x share the cell layout.
func DecodeGAT(data []byte) (hillshade.Grid, error) {
	if len(data) < 14 {
		return hillshade.Grid{}, fmt.Errorf("%w: GAT header", ErrTruncated)
	}
	if string(data[0:4]) != gatMagic {
		return hillshade.Grid{}, fmt.Errorf("%w: invalid GAT magic", ErrMalformed)
	}
	// Version is stored as [minor, major].
	major, minor := data[5], data[4]
	if major < 1 || major > 3 {
		return hillshade.Grid{}, fmt.Errorf("%w: GAT version %d.%d", ErrUnsupported, major, minor)
	}

	width := int(binary.LittleEndian.Uint32(data[6:]))
	height := int(binary.LittleEndian.Uint32(data[10:]))
	if width == 0 || height == 0 || width > 4096 || height > 4096 {
		return hillshade.Grid{}, fmt.Errorf("%w: GAT dimensions %dx%d", ErrMalformed, width, height)
	}

	cells := data[14:]
	if len(cells) < width*height*gatCellSize {
		return hillshade.Grid{}, fmt.Errorf("%w: GAT has %d bytes of cells, expected %d", ErrTruncated, len(cells), width*height*gatCellSize)
	}

	g, err := hillshade.NewGrid(height, width)
	if err != nil {
		return hillshade.Grid{}, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := (y*width + x) * gatCellSize
			g.Set(height-1-y, x, cornerElevation(cells[off:]))
		}
	}
	return g, nil
}

// DecodeGND reads the tile elevation of a GND (ground mesh) file, skipping
// textures, lightmaps and surfaces. Versions 1.5 to 1.9 are supported.
func DecodeGND(data []byte) (hillshade.Grid, error) {
	if len(data) < 18 {
		return hillshade.Grid{}, fmt.Errorf("%w: GND header", ErrTruncated)
	}
	if string(data[0:4]) != gndMagic {
		return hillshade.Grid{}, fmt.Errorf("%w: invalid GND magic", ErrMalformed)
	}
	// Version is stored as [major, minor].
	major, minor := data[4], data[5]
	if major != 1 || minor < 5 || minor > 9 {
		return hillshade.Grid{}, fmt.Errorf("%w: GND version %d.%d", ErrUnsupported, major, minor)
	}

	r := bytes.NewReader(data[6:])
	var header struct {
		Width, Height uint32
		Zoom          float32
		TextureCount  uint32
		TextureLen    uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return hillshade.Grid{}, fmt.Errorf("%w: GND header", ErrTruncated)
	}
	width, height := int(header.Width), int(header.Height)
	if width == 0 || height == 0 || width > 1024 || height > 1024 {
		return hillshade.Grid{}, fmt.Errorf("%w: GND dimensions %dx%d", ErrMalformed, width, height)
	}
	if err := skip(r, "GND textures", int64(header.TextureCount), int64(header.TextureLen)); err != nil {
		return hillshade.Grid{}, err
	}

	var lightmaps struct {
		Count, Width, Height, Cells uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &lightmaps); err != nil {
		return hillshade.Grid{}, fmt.Errorf("%w: GND lightmap header", ErrTruncated)
	}
	// Each lightmap pixel has one brightness byte and three colour bytes.
	if err := skip(r, "GND lightmaps", int64(lightmaps.Count), int64(lightmaps.Width),
		int64(lightmaps.Height), int64(lightmaps.Cells), 4); err != nil {
		return hillshade.Grid{}, err
	}

	var surfaceCount uint32
	if err := binary.Read(r, binary.LittleEndian, &surfaceCount); err != nil {
		return hillshade.Grid{}, fmt.Errorf("%w: GND surface count", ErrTruncated)
	}
	if err := skip(r, "GND surfaces", int64(surfaceCount), gndSurfaceSize); err != nil {
		return hillshade.Grid{}, err
	}

	tiles := make([]byte, width*height*gndTileSize)
	if _, err := io.ReadFull(r, tiles); err != nil {
		return hillshade.Grid{}, fmt.Errorf("%w: GND tiles", ErrTruncated)
	}

	g, err := hillshade.NewGrid(height, width)
	if err != nil {
		return hillshade.Grid{}, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := (y*width + x) * gndTileSize
			g.Set(height-1-y, x, cornerElevation(tiles[off:]))
		}
	}
	return g, nil
}

// cornerElevation averages four little-endian float32 corner altitudes
// and flips them to point up.
func cornerElevation(b []byte) float64 {
	var sum float32
	for i := 0; i < 4; i++ {
		sum += math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return -float64(sum / 4)
}

// skip advances r past a block whose size is the product of factors.
// The product is bounded by the bytes left in r before it can overflow.
func skip(r *bytes.Reader, what string, factors ...int64) error {
	left := int64(r.Len())
	n := int64(1)
	for _, f := range factors {
		if f == 0 {
			return nil
		}
		if f < 0 || n > left/f {
			return fmt.Errorf("%w: %s", ErrTruncated, what)
		}
		n *= f
	}
	_, err := r.Seek(n, io.SeekCurrent)
	return err
}
