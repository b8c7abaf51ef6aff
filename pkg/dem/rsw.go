package dem

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/relief/pkg/hillshade"
)

const rswNameSize = 40

// DecodeRSWLight reads the sun settings of an RSW world file, the companion
// of a map's GAT and GND. Latitude becomes the light altitude and longitude
// the azimuth. Worlds older than 1.5 carry no sun and yield ErrUnsupported.
func DecodeRSWLight(data []byte) (hillshade.Light, error) {
	if len(data) < 6 || string(data[:4]) != "GRSW" {
		return hillshade.Light{}, fmt.Errorf("%w: not an RSW file", ErrMalformed)
	}
	major, minor := data[4], data[5]
	if major < 1 || major > 2 || (major == 2 && minor > 6) {
		return hillshade.Light{}, fmt.Errorf("%w: RSW version %d.%d", ErrUnsupported, major, minor)
	}
	atLeast := func(ma, mi byte) bool {
		return major > ma || (major == ma && minor >= mi)
	}
	if !atLeast(1, 5) {
		return hillshade.Light{}, fmt.Errorf("%w: RSW %d.%d has no sun", ErrUnsupported, major, minor)
	}

	r := bytes.NewReader(data[6:])
	var n int64
	switch {
	case atLeast(2, 5):
		n += 5 // uint32 build number, render flag
	case atLeast(2, 2):
		n++
	}
	n += 4 * rswNameSize // ini, gnd, gat, src
	if !atLeast(2, 6) {
		n += 6 * 4 // water level, type, wave height, speed, pitch, anim speed
	}
	if err := skip(r, "RSW header", n); err != nil {
		return hillshade.Light{}, err
	}

	var sun struct{ Longitude, Latitude int32 }
	if err := binary.Read(r, binary.LittleEndian, &sun); err != nil {
		return hillshade.Light{}, fmt.Errorf("%w: RSW sun", ErrTruncated)
	}
	return hillshade.Light{
		Altitude: float64(sun.Latitude),
		Azimuth:  float64(sun.Longitude),
	}, nil
}
