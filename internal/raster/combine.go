package raster

import (
	"fmt"
	"strconv"
	"strings"
)

// CombineNoData marks cells where any input held the nodata value.
const CombineNoData = 0

// Combination is one distinct tuple of input values and the code assigned to it.
type Combination struct {
	Code   int
	Values []float64
}

// Combine assigns a positive code to every distinct tuple of values found at the same
// cell across grids. Codes start at 1 and follow the order in which tuples are first
// met in row-major order. Any tuple that contains nodata maps to CombineNoData.
func Combine(grids []*Grid, nodata float64) (*Grid, []Combination, error) {
	if len(grids) == 0 {
		return nil, nil, fmt.Errorf("no grids to combine")
	}
	for i, g := range grids[1:] {
		if !g.SameShape(grids[0]) {
			return nil, nil, fmt.Errorf("%w: grid %d", ErrShapeMismatch, i+1)
		}
	}

	out := NewGrid(grids[0].Rows, grids[0].Cols)
	codes := make(map[string]int)
	var table []Combination
	tuple := make([]float64, len(grids))
	var sb strings.Builder

	for i := range out.Data {
		hasNoData := false
		sb.Reset()
		for j, g := range grids {
			v := g.Data[i]
			tuple[j] = v
			if v == nodata {
				hasNoData = true
			}
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			sb.WriteByte('|')
		}
		if hasNoData {
			out.Data[i] = CombineNoData
			continue
		}
		key := sb.String()
		code, ok := codes[key]
		if !ok {
			code = len(table) + 1
			codes[key] = code
			table = append(table, Combination{Code: code, Values: append([]float64(nil), tuple...)})
		}
		out.Data[i] = float64(code)
	}
	return out, table, nil
}

// CombineDataType picks the narrowest integer type able to hold n codes.
func CombineDataType(n int) DataType {
	switch {
	case n < 255:
		return Uint8
	case n < 32767:
		return Int16
	default:
		return Int32
	}
}
