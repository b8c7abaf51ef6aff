package dem

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Faultbox/relief/pkg/hillshade"
)

// ASCIIGrid is a decoded ESRI ASCII raster.
type ASCIIGrid struct {
	NCols, NRows int
	XLL, YLL     float64
	// CellCenter is true when XLL/YLL name the centre of the lower-left
	// cell (xllcenter/yllcenter) rather than its corner.
	CellCenter bool
	CellSize   float64
	NoData     float64
	HasNoData  bool
	Grid       hillshade.Grid
}

// DecodeASCII reads an ESRI ASCII grid. NODATA cells become NaN.
func DecodeASCII(r io.Reader) (*ASCIIGrid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	a := &ASCIIGrid{CellSize: 1}
	seen := make(map[string]bool)
	var first string // first value token, consumed while looking for header keys

	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isASCIIHeaderKey(key) {
			first = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: missing value for %s", ErrTruncated, key)
		}
		if err := a.setHeader(key, sc.Text()); err != nil {
			return nil, err
		}
		seen[key] = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seen["ncols"] || !seen["nrows"] {
		return nil, fmt.Errorf("%w: ascii grid without ncols/nrows", ErrMalformed)
	}
	if err := checkCells(a.NRows, a.NCols); err != nil {
		return nil, err
	}

	n := a.NRows * a.NCols
	data := make([]float64, 0, n)
	next := func() (string, bool) {
		if first != "" {
			tok := first
			first = ""
			return tok, true
		}
		if sc.Scan() {
			return sc.Text(), true
		}
		return "", false
	}
	for len(data) < n {
		tok, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: got %d of %d samples", ErrTruncated, len(data), n)
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %d: %q", ErrMalformed, len(data), tok)
		}
		if a.HasNoData && v == a.NoData {
			v = math.NaN()
		}
		data = append(data, v)
	}

	g, err := hillshade.FromData(a.NRows, a.NCols, data)
	if err != nil {
		return nil, err
	}
	a.Grid = g
	return a, nil
}

func isASCIIHeaderKey(key string) bool {
	switch key {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

func (a *ASCIIGrid) setHeader(key, value string) error {
	switch key {
	case "ncols", "nrows":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s %q", ErrMalformed, key, value)
		}
		if key == "ncols" {
			a.NCols = n
		} else {
			a.NRows = n
		}
		return nil
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s %q", ErrMalformed, key, value)
	}
	switch key {
	case "xllcorner":
		a.XLL = v
	case "yllcorner":
		a.YLL = v
	case "xllcenter":
		a.XLL, a.CellCenter = v, true
	case "yllcenter":
		a.YLL, a.CellCenter = v, true
	case "cellsize":
		a.CellSize = v
	case "nodata_value":
		a.NoData, a.HasNoData = v, true
	}
	return nil
}
