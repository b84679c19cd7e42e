package raster

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/envi"
)

func init() {
	for _, ext := range []string{".bsq", ".img", ".dat"} {
		Register(ext, func(fs afero.Fs) Driver { return &enviDriver{fs: fs} })
	}
}

type enviDriver struct {
	fs afero.Fs
}

func enviType(t DataType) (int, error) {
	switch t {
	case Uint8:
		return envi.DTByte, nil
	case Int16:
		return envi.DTInt16, nil
	case Int32:
		return envi.DTInt32, nil
	case Float32:
		return envi.DTFloat32, nil
	case Float64:
		return envi.DTFloat64, nil
	}
	return 0, fmt.Errorf("%w: %s", envi.ErrUnsupportedDataType, t)
}

func (d *enviDriver) Exists(path string) bool {
	data, _ := afero.Exists(d.fs, path)
	hdr, _ := afero.Exists(d.fs, envi.HeaderPath(path))
	return data && hdr
}

func (d *enviDriver) Read(path string) (*Stack, Desc, error) {
	r, err := envi.Open(d.fs, path)
	if err != nil {
		return nil, Desc{}, err
	}
	desc, err := DescFromHeader(r.Header)
	if err != nil {
		return nil, Desc{}, err
	}
	data, err := r.ReadAll()
	if err != nil {
		return nil, Desc{}, err
	}
	return &Stack{Frames: r.Bands, Rows: r.Lines, Cols: r.Samples, Data: data}, desc, nil
}

func (d *enviDriver) Write(path string, s *Stack, desc Desc, opts WriteOptions) error {
	dt, err := enviType(opts.DataType)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	spec := envi.WriteSpec{
		Bands:            s.Frames,
		Lines:            s.Rows,
		Samples:          s.Cols,
		DataType:         dt,
		MapInfo:          desc.MapInfoEntries(),
		CoordinateSystem: desc.Projection,
		BandNames:        opts.BandNames,
		Description:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		NoData:           opts.NoData,
	}
	return envi.Write(d.fs, path, spec, s.Data)
}
