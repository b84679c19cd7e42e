package raster

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/usfs-r5/edart/internal/envi"
)

var ErrNonSquareCell = errors.New("non square cell size")

// Desc holds the properties needed to write an array back out as a georeferenced
// raster: lower-left origin, square cell size, dimensions and projection.
type Desc struct {
	XMin, YMin float64
	CellSize   float64
	Width      int
	Height     int
	// Projection is a WKT coordinate system string, empty when unknown.
	Projection string
	// MapInfo keeps the source ENVI map info entries so zone and datum survive a rewrite.
	MapInfo []string
}

// DescFromHeader builds a Desc from a parsed ENVI header.
func DescFromHeader(h *envi.Header) (Desc, error) {
	if !h.HasMapInfo {
		return Desc{}, envi.ErrMissingMapInfo
	}
	if h.CellSizeX != h.CellSizeY {
		return Desc{}, fmt.Errorf("%w: %v x %v", ErrNonSquareCell, h.CellSizeX, h.CellSizeY)
	}
	return Desc{
		XMin:       h.XMin,
		YMin:       h.YMin,
		CellSize:   h.CellSizeX,
		Width:      h.Samples,
		Height:     h.Lines,
		Projection: h.CoordinateSystem(),
		MapInfo:    h.List("map_info"),
	}, nil
}

// XMax is the eastern edge.
func (d Desc) XMax() float64 {
	return d.XMin + d.CellSize*float64(d.Width)
}

// YMax is the northern edge.
func (d Desc) YMax() float64 {
	return d.YMin + d.CellSize*float64(d.Height)
}

// GeoTransform returns the GDAL affine transform for a north-up raster.
func (d Desc) GeoTransform() [6]float64 {
	return [6]float64{d.XMin, d.CellSize, 0, d.YMax(), 0, -d.CellSize}
}

// MapInfoEntries returns ENVI map info entries anchored at the upper-left pixel.
func (d Desc) MapInfoEntries() []string {
	entries := []string{"Arbitrary", "1", "1", "", "", "", ""}
	if len(d.MapInfo) >= 7 {
		entries = append([]string(nil), d.MapInfo...)
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	entries[1] = "1"
	entries[2] = "1"
	entries[3] = f(d.XMin)
	entries[4] = f(d.YMax())
	entries[5] = f(d.CellSize)
	entries[6] = f(d.CellSize)
	return entries
}

// Matches reports whether the grid dimensions agree with the description.
func (d Desc) Matches(rows, cols int) bool {
	return d.Height == rows && d.Width == cols
}

// Crop removes cells from every edge.
func (d Desc) Crop(cells int) Desc {
	out := d
	edge := d.CellSize * float64(cells)
	out.XMin += edge
	out.YMin += edge
	out.Width -= 2 * cells
	out.Height -= 2 * cells
	return out
}
