// Package gdal registers a GeoTIFF raster driver backed by GDAL. Import it for its side
// effect:
//
//	import _ "github.com/usfs-r5/edart/internal/raster/gdal"
package gdal

import (
	"fmt"
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/raster"
)

var registerOnce sync.Once

func init() {
	factory := func(afero.Fs) raster.Driver {
		registerOnce.Do(godal.RegisterAll)
		return driver{}
	}
	raster.Register(".tif", factory)
	raster.Register(".tiff", factory)
}

// driver works on OS paths only; GDAL does its own file access.
type driver struct{}

func gdalType(t raster.DataType) (godal.DataType, error) {
	switch t {
	case raster.Uint8:
		return godal.Byte, nil
	case raster.Int16:
		return godal.Int16, nil
	case raster.Int32:
		return godal.Int32, nil
	case raster.Float32:
		return godal.Float32, nil
	case raster.Float64:
		return godal.Float64, nil
	}
	return godal.Unknown, fmt.Errorf("unsupported data type %s", t)
}

func (driver) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (driver) Read(path string) (*raster.Stack, raster.Desc, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, raster.Desc{}, err
	}
	defer ds.Close()

	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, raster.Desc{}, fmt.Errorf("geotransform: %w", err)
	}
	if gt[1] != -gt[5] {
		return nil, raster.Desc{}, fmt.Errorf("%w: %v x %v", raster.ErrNonSquareCell, gt[1], -gt[5])
	}
	desc := raster.Desc{
		XMin:       gt[0],
		CellSize:   gt[1],
		Width:      st.SizeX,
		Height:     st.SizeY,
		Projection: ds.Projection(),
	}
	desc.YMin = gt[3] - gt[1]*float64(st.SizeY)

	s := raster.NewStack(st.NBands, st.SizeY, st.SizeX)
	for i, band := range ds.Bands() {
		if err := band.Read(0, 0, s.Frame(i), st.SizeX, st.SizeY); err != nil {
			return nil, raster.Desc{}, fmt.Errorf("band %d: %w", i+1, err)
		}
	}
	return s, desc, nil
}

func (driver) Write(path string, s *raster.Stack, desc raster.Desc, opts raster.WriteOptions) error {
	dt, err := gdalType(opts.DataType)
	if err != nil {
		return err
	}
	ds, err := godal.Create(godal.GTiff, path, s.Frames, dt, s.Cols, s.Rows,
		godal.CreationOption("TILED=YES", "COMPRESS=LZW"))
	if err != nil {
		return err
	}
	if err := ds.SetGeoTransform(desc.GeoTransform()); err != nil {
		ds.Close()
		return fmt.Errorf("geotransform: %w", err)
	}
	if desc.Projection != "" {
		if err := ds.SetProjection(desc.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("projection: %w", err)
		}
	}
	for i, band := range ds.Bands() {
		if opts.NoData != nil {
			if err := band.SetNoData(*opts.NoData); err != nil {
				ds.Close()
				return err
			}
		}
		if i < len(opts.BandNames) {
			if err := band.SetDescription(opts.BandNames[i]); err != nil {
				ds.Close()
				return err
			}
		}
		if err := band.Write(0, 0, s.Frame(i), s.Cols, s.Rows); err != nil {
			ds.Close()
			return fmt.Errorf("band %d: %w", i+1, err)
		}
	}
	return ds.Close()
}
