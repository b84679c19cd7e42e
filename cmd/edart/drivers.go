//go:build !nogdal

package main

// GeoTIFF support needs the GDAL C library; build with -tags nogdal to leave it out.
import _ "github.com/usfs-r5/edart/internal/raster/gdal"
