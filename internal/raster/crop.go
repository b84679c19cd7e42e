package raster

import "fmt"

// Crop removes cells from every edge of each frame and returns the cropped stack
// with its shifted description.
func Crop(s *Stack, desc Desc, cells int) (*Stack, Desc, error) {
	if cells < 0 {
		return nil, Desc{}, fmt.Errorf("crop cells must be non-negative, got %d", cells)
	}
	rows, cols := s.Rows-2*cells, s.Cols-2*cells
	if rows <= 0 || cols <= 0 {
		return nil, Desc{}, fmt.Errorf("cannot crop %d cells from a %dx%d raster", cells, s.Rows, s.Cols)
	}
	out := NewStack(s.Frames, rows, cols)
	for f := 0; f < s.Frames; f++ {
		src := s.Frame(f)
		dst := out.Frame(f)
		for r := 0; r < rows; r++ {
			start := (r+cells)*s.Cols + cells
			copy(dst[r*cols:(r+1)*cols], src[start:start+cols])
		}
	}
	return out, desc.Crop(cells), nil
}
