// Package raster provides the in-memory arrays the EDART tools work on, the geometry
// needed to write them back out, and a small driver registry that maps file extensions
// to raster readers and writers.
//
// A Grid is a single row-major band. A Stack is a frame × row × column cube held in one
// contiguous slice, indexed f*rows*cols + r*cols + c.
package raster

import (
	"errors"
	"fmt"
	"math"
)

var ErrShapeMismatch = errors.New("raster shapes do not match")

// Grid is a 2D row-major array.
type Grid struct {
	Rows, Cols int
	Data       []float64
}

// NewGrid allocates a zero filled grid.
func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// NewGridFilled allocates a grid with every cell set to v.
func NewGridFilled(rows, cols int, v float64) *Grid {
	g := NewGrid(rows, cols)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

// At returns the value at row r, column c.
func (g *Grid) At(r, c int) float64 {
	return g.Data[r*g.Cols+c]
}

// Set stores v at row r, column c.
func (g *Grid) Set(r, c int, v float64) {
	g.Data[r*g.Cols+c] = v
}

// Contains reports whether (r, c) lies inside the grid.
func (g *Grid) Contains(r, c int) bool {
	return r >= 0 && r < g.Rows && c >= 0 && c < g.Cols
}

// SameShape reports whether g and o have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := &Grid{Rows: g.Rows, Cols: g.Cols, Data: make([]float64, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}

// Stack is a 3D frame × row × column array.
type Stack struct {
	Frames, Rows, Cols int
	Data               []float64
}

// NewStack allocates a zero filled stack.
func NewStack(frames, rows, cols int) *Stack {
	return &Stack{Frames: frames, Rows: rows, Cols: cols, Data: make([]float64, frames*rows*cols)}
}

// FrameSize is the number of cells per frame.
func (s *Stack) FrameSize() int {
	return s.Rows * s.Cols
}

// Frame returns frame f as a slice sharing the stack's storage.
func (s *Stack) Frame(f int) []float64 {
	n := s.FrameSize()
	return s.Data[f*n : (f+1)*n]
}

// FrameGrid returns frame f as a Grid sharing the stack's storage.
func (s *Stack) FrameGrid(f int) *Grid {
	return &Grid{Rows: s.Rows, Cols: s.Cols, Data: s.Frame(f)}
}

// SetFrame copies values into frame f.
func (s *Stack) SetFrame(f int, values []float64) error {
	if len(values) != s.FrameSize() {
		return fmt.Errorf("%w: frame has %d cells, got %d", ErrShapeMismatch, s.FrameSize(), len(values))
	}
	copy(s.Frame(f), values)
	return nil
}

// At returns the value at frame f, row r, column c.
func (s *Stack) At(f, r, c int) float64 {
	return s.Data[f*s.FrameSize()+r*s.Cols+c]
}

// Pixel returns the series of values along the frame axis at (r, c).
func (s *Stack) Pixel(r, c int) []float64 {
	out := make([]float64, s.Frames)
	off := r*s.Cols + c
	n := s.FrameSize()
	for f := range out {
		out[f] = s.Data[f*n+off]
	}
	return out
}

// SameShape reports whether s and o have identical dimensions.
func (s *Stack) SameShape(o *Stack) bool {
	return s.Frames == o.Frames && s.Rows == o.Rows && s.Cols == o.Cols
}

// Bytes is the in-memory size of the stack's cells.
func (s *Stack) Bytes() uint64 {
	return uint64(len(s.Data)) * 8
}

// Map returns a new stack with fn applied to every cell.
func (s *Stack) Map(fn func(float64) float64) *Stack {
	out := &Stack{Frames: s.Frames, Rows: s.Rows, Cols: s.Cols, Data: make([]float64, len(s.Data))}
	for i, v := range s.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// StackGrids stacks equally sized grids along a new frame axis.
func StackGrids(grids []*Grid) (*Stack, error) {
	if len(grids) == 0 {
		return nil, errors.New("no grids to stack")
	}
	s := NewStack(len(grids), grids[0].Rows, grids[0].Cols)
	for f, g := range grids {
		if !g.SameShape(grids[0]) {
			return nil, fmt.Errorf("%w: grid %d is %dx%d, expected %dx%d", ErrShapeMismatch, f, g.Rows, g.Cols, s.Rows, s.Cols)
		}
		copy(s.Frame(f), g.Data)
	}
	return s, nil
}

// reduce folds the frame axis with fn, starting from the first frame.
func (s *Stack) reduce(fn func(acc, v float64) float64) *Grid {
	g := NewGrid(s.Rows, s.Cols)
	if s.Frames == 0 {
		return g
	}
	copy(g.Data, s.Frame(0))
	for f := 1; f < s.Frames; f++ {
		for i, v := range s.Frame(f) {
			g.Data[i] = fn(g.Data[i], v)
		}
	}
	return g
}

// MaxFrames returns the per-cell maximum over frames.
func (s *Stack) MaxFrames() *Grid {
	return s.reduce(math.Max)
}

// MinFrames returns the per-cell minimum over frames.
func (s *Stack) MinFrames() *Grid {
	return s.reduce(math.Min)
}

// SumFrames returns the per-cell sum over frames.
func (s *Stack) SumFrames() *Grid {
	return s.reduce(func(acc, v float64) float64 { return acc + v })
}
