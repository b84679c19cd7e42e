package raster

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

var ErrNoDriver = errors.New("no raster driver for extension")

// DataType is the on-disk cell type of a written raster.
type DataType int

const (
	Uint8 DataType = iota + 1
	Int16
	Int32
	Float32
	Float64
)

func (t DataType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// WriteOptions controls how a stack is written.
type WriteOptions struct {
	DataType DataType
	// NoData is recorded in the output metadata when set.
	NoData *float64
	// BandNames labels the frames of a multi-band output.
	BandNames []string
	// Overwrite replaces an existing output instead of skipping it.
	Overwrite bool
}

// NoData returns a pointer to v for use in WriteOptions.
func NoData(v float64) *float64 {
	return &v
}

// Driver reads and writes one raster format.
type Driver interface {
	Read(path string) (*Stack, Desc, error)
	Write(path string, s *Stack, desc Desc, opts WriteOptions) error
	// Exists reports whether path already holds a complete raster of this format.
	Exists(path string) bool
}

// DriverFactory builds a driver bound to a file system.
type DriverFactory func(fs afero.Fs) Driver

var (
	driversMu sync.RWMutex
	drivers   = map[string]DriverFactory{}
)

// Register makes a driver available for a file extension such as ".tif". It panics
// if the extension is already taken.
func Register(ext string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	ext = strings.ToLower(ext)
	if _, dup := drivers[ext]; dup {
		panic("raster: Register called twice for " + ext)
	}
	drivers[ext] = factory
}

// Extensions lists the registered extensions.
func Extensions() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	out := make([]string, 0, len(drivers))
	for ext := range drivers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func lookup(path string) (DriverFactory, error) {
	ext := strings.ToLower(filepath.Ext(path))
	driversMu.RLock()
	defer driversMu.RUnlock()
	factory, ok := drivers[ext]
	if !ok {
		return nil, fmt.Errorf("%w %q (%s)", ErrNoDriver, ext, path)
	}
	return factory, nil
}
