package dem

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Faultbox/relief/pkg/hillshade"
)

const npyMagic = "\x93NUMPY"

// NPY header fields. The header is a Python dict literal.
var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// npyHeader is the decoded array description.
type npyHeader struct {
	order    binary.ByteOrder
	kind     byte // 'f', 'i' or 'u'
	size     int  // bytes per element
	fortran  bool
	shape    []int
	dataSize int
}

// DecodeNPY reads a 2-D C-ordered NumPy array of any real numeric dtype.
func DecodeNPY(r io.Reader) (hillshade.Grid, error) {
	h, err := readNPYHeader(r)
	if err != nil {
		return hillshade.Grid{}, err
	}
	if h.fortran {
		return hillshade.Grid{}, fmt.Errorf("%w: fortran-ordered arrays", ErrUnsupported)
	}
	if len(h.shape) != 2 {
		return hillshade.Grid{}, fmt.Errorf("%w: %d-D array, expected 2-D", ErrUnsupported, len(h.shape))
	}

	rows, cols := h.shape[0], h.shape[1]
	if err := checkCells(rows, cols); err != nil {
		return hillshade.Grid{}, err
	}
	n := rows * cols
	raw := make([]byte, n*h.size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return hillshade.Grid{}, fmt.Errorf("%w: reading %d samples: %v", ErrTruncated, n, err)
	}

	data := make([]float64, n)
	for i := range data {
		data[i] = h.decode(raw[i*h.size:])
	}
	return hillshade.FromData(rows, cols, data)
}

func readNPYHeader(r io.Reader) (*npyHeader, error) {
	var preamble [8]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, fmt.Errorf("%w: reading npy preamble", ErrTruncated)
	}
	if string(preamble[:6]) != npyMagic {
		return nil, fmt.Errorf("%w: invalid npy magic", ErrMalformed)
	}

	var headerLen int
	switch major := preamble[6]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: reading header length", ErrTruncated)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: reading header length", ErrTruncated)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("%w: npy version %d.%d", ErrUnsupported, major, preamble[7])
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: reading npy header", ErrTruncated)
	}
	return parseNPYHeader(string(header))
}

func parseNPYHeader(s string) (*npyHeader, error) {
	m := npyDescrRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: npy header without descr", ErrMalformed)
	}
	h, err := parseDescr(m[1])
	if err != nil {
		return nil, err
	}

	if m := npyFortranRe.FindStringSubmatch(s); m != nil {
		h.fortran = m[1] == "True"
	}

	m = npyShapeRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: npy header without shape", ErrMalformed)
	}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// Python 2 writers emit 3L for longs.
		dim, err := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if err != nil || dim < 0 {
			return nil, fmt.Errorf("%w: npy shape %q", ErrMalformed, m[1])
		}
		h.shape = append(h.shape, dim)
	}
	return h, nil
}

func parseDescr(descr string) (*npyHeader, error) {
	if len(descr) < 3 {
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}
	h := &npyHeader{}
	switch descr[0] {
	case '<', '|', '=':
		h.order = binary.LittleEndian
	case '>':
		h.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}
	h.kind = descr[1]
	size, err := strconv.Atoi(descr[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}
	h.size = size

	ok := false
	switch h.kind {
	case 'f':
		ok = size == 4 || size == 8
	case 'i', 'u':
		ok = size == 1 || size == 2 || size == 4 || size == 8
	}
	if !ok {
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}
	return h, nil
}

func (h *npyHeader) decode(b []byte) float64 {
	switch h.kind {
	case 'f':
		if h.size == 4 {
			return float64(math.Float32frombits(h.order.Uint32(b)))
		}
		return math.Float64frombits(h.order.Uint64(b))
	case 'i':
		switch h.size {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(h.order.Uint16(b)))
		case 4:
			return float64(int32(h.order.Uint32(b)))
		default:
			return float64(int64(h.order.Uint64(b)))
		}
	default:
		switch h.size {
		case 1:
			return float64(b[0])
		case 2:
			return float64(h.order.Uint16(b))
		case 4:
			return float64(h.order.Uint32(b))
		default:
			return float64(h.order.Uint64(b))
		}
	}
}

// EncodeNPY writes a rows×cols float32 array as a version 1.0 .npy file.
func EncodeNPY(w io.Writer, rows, cols int, data []float32) error {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return fmt.Errorf("%w: %dx%d with %d samples", hillshade.ErrInvalidShape, rows, cols, len(data))
	}

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// Magic, version and length take 10 bytes; pad so data starts 64-aligned.
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	_, err := w.Write(raw)
	return err
}
