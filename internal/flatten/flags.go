package flatten

import "github.com/usfs-r5/edart/internal/raster"

// DefaultConfidenceFlags are the confidence codes EDART uses to mark special pixels.
var DefaultConfidenceFlags = []float64{-1, 1, 2}

// FlagGrid keeps the values of frame that belong to the flag set and zeroes the rest.
func FlagGrid(frame []float64, rows, cols int, set []float64) *raster.Grid {
	g := raster.NewGrid(rows, cols)
	for i, v := range frame {
		for _, f := range set {
			if v == f {
				g.Data[i] = v
				break
			}
		}
	}
	return g
}

// StampFlags overwrites g with the flag value wherever a flag is set.
func StampFlags(g, flags *raster.Grid) {
	for i, f := range flags.Data {
		if f != 0 {
			g.Data[i] = f
		}
	}
}

// StampEvents overwrites g with value wherever a flag is set.
func StampEvents(g, flags *raster.Grid, value float64) {
	for i, f := range flags.Data {
		if f != 0 {
			g.Data[i] = value
		}
	}
}
