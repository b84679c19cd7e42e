package raster

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/logger"
)

// Files reads and writes rasters on a file system, choosing the driver by extension.
type Files struct {
	Fs afero.Fs
}

// NewFiles returns a Files bound to fs.
func NewFiles(fs afero.Fs) *Files {
	return &Files{Fs: fs}
}

func (f *Files) driver(path string) (Driver, error) {
	factory, err := lookup(path)
	if err != nil {
		return nil, err
	}
	return factory(f.Fs), nil
}

// Exists reports whether a raster is already stored at path.
func (f *Files) Exists(path string) bool {
	d, err := f.driver(path)
	if err != nil {
		ok, _ := afero.Exists(f.Fs, path)
		return ok
	}
	return d.Exists(path)
}

// ReadStack reads every band of the raster at path.
func (f *Files) ReadStack(path string) (*Stack, Desc, error) {
	d, err := f.driver(path)
	if err != nil {
		return nil, Desc{}, err
	}
	s, desc, err := d.Read(path)
	if err != nil {
		return nil, Desc{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s, desc, nil
}

// ReadGrid reads a single band raster.
func (f *Files) ReadGrid(path string) (*Grid, Desc, error) {
	s, desc, err := f.ReadStack(path)
	if err != nil {
		return nil, Desc{}, err
	}
	if s.Frames != 1 {
		return nil, Desc{}, fmt.Errorf("%s: expected 1 band, found %d", path, s.Frames)
	}
	return s.FrameGrid(0), desc, nil
}

// WriteStack writes s to path. An existing output is left untouched unless
// opts.Overwrite is set; the returned bool reports whether anything was written.
func (f *Files) WriteStack(path string, s *Stack, desc Desc, opts WriteOptions) (bool, error) {
	d, err := f.driver(path)
	if err != nil {
		return false, err
	}
	if !opts.Overwrite && d.Exists(path) {
		logger.Info("Already saved: %s", filepath.Base(path))
		return false, nil
	}
	if !desc.Matches(s.Rows, s.Cols) {
		return false, fmt.Errorf("%w: %s is %dx%d, description is %dx%d",
			ErrShapeMismatch, filepath.Base(path), s.Rows, s.Cols, desc.Height, desc.Width)
	}
	if len(opts.BandNames) > 0 && len(opts.BandNames) != s.Frames {
		return false, fmt.Errorf("%s: %d band names for %d bands", path, len(opts.BandNames), s.Frames)
	}
	if opts.DataType == 0 {
		opts.DataType = Float32
	}
	if err := d.Write(path, s, desc, opts); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Debug("Saved %s (%d band(s), %s)", filepath.Base(path), s.Frames, opts.DataType)
	return true, nil
}

// WriteGrid writes a single band raster.
func (f *Files) WriteGrid(path string, g *Grid, desc Desc, opts WriteOptions) (bool, error) {
	s := &Stack{Frames: 1, Rows: g.Rows, Cols: g.Cols, Data: g.Data}
	return f.WriteStack(path, s, desc, opts)
}
