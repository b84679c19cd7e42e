package prepost

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/envi"
	"github.com/usfs-r5/edart/internal/logger"
	"github.com/usfs-r5/edart/internal/models"
	"github.com/usfs-r5/edart/internal/scene"
)

// DefaultCellSize is the Landsat pixel size in metres.
const DefaultCellSize = 30

// ExtractOptions controls Extract.
type ExtractOptions struct {
	Bands []string
	// Corner is the upper-left map coordinate of the frames. Nil uses the map info of
	// the nFrEV raster.
	Corner   *[2]float64
	CellSize float64
	// SubDir below the working folder, ExtractDir when empty.
	SubDir string
	// RawDates reads raw FR_ frames of these dates instead of DF_ residuals.
	RawDates []string
	Progress bool
}

// Extraction reports what Extract produced.
type Extraction struct {
	// Files maps ROIID to the extract files written in this run.
	Files map[string][]string
	// Dates are the frame dates in extract row order.
	Dates      []string
	FrameIndex map[int]int
	Skipped    int
}

// Extract writes the per-frame index and mask values at every sample into
// <workDir>/<SubDir>/<band>/<band>__<ROIID>.txt. Existing extracts are kept.
func Extract(fs afero.Fs, tdisPath, workDir string, samples []models.Sample, opts ExtractOptions) (*Extraction, error) {
	sceneDir, err := scene.SceneDir(tdisPath)
	if err != nil {
		return nil, err
	}
	nfrPath, err := scene.FrameEventRaster(fs, tdisPath)
	if err != nil {
		return nil, err
	}
	nfr, err := envi.Open(fs, nfrPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Frame EVT raster %s: %d x %d x %d", filepath.Base(nfrPath), nfr.Bands, nfr.Lines, nfr.Samples)

	var x0, y0 float64
	switch {
	case opts.Corner != nil:
		x0, y0 = opts.Corner[0], opts.Corner[1]
	case nfr.Header.HasMapInfo:
		x0, y0 = nfr.Header.XMin, nfr.Header.YMax
	default:
		return nil, fmt.Errorf("%s: %w and no corner offset configured", nfrPath, envi.ErrMissingMapInfo)
	}
	cell := opts.CellSize
	if cell == 0 {
		cell = DefaultCellSize
	}
	sub := opts.SubDir
	if sub == "" {
		sub = ExtractDir
	}

	out := &Extraction{Files: make(map[string][]string)}
	for _, band := range opts.Bands {
		pending := pendingSamples(fs, workDir, sub, band, samples)
		if len(pending) == 0 {
			logger.Info("Band %s: all samples already extracted", band)
			continue
		}

		frames, err := scene.IngestFrames(fs, sceneDir, band, nfr.Lines, nfr.Samples,
			scene.IngestOptions{RawDates: opts.RawDates, Progress: opts.Progress})
		if err != nil {
			return nil, err
		}
		out.Dates = frames.Dates
		out.FrameIndex = frames.FrameIndex

		for _, s := range pending {
			col := int((s.X - x0) / cell)
			row := int(-(s.Y - y0) / cell)
			if row < 0 || row >= nfr.Lines || col < 0 || col >= nfr.Samples || s.X < x0 || s.Y > y0 {
				logger.Warn("%s: (%v, %v) lies outside the scene, skipping", s.ROIID, s.X, s.Y)
				out.Skipped++
				continue
			}
			path := filepath.Join(workDir, ROIIDTextName(s.ROIID, band, sub))
			if err := WriteROIIDText(fs, path, frames.Index.Pixel(row, col), frames.Mask.Pixel(row, col)); err != nil {
				return nil, err
			}
			logger.Debug("%s: %s", s.ROIID, path)
			out.Files[s.ROIID] = append(out.Files[s.ROIID], path)
		}
	}
	return out, nil
}

// pendingSamples drops samples without an ROIID and those already extracted.
func pendingSamples(fs afero.Fs, workDir, sub, band string, samples []models.Sample) []models.Sample {
	var out []models.Sample
	for _, s := range samples {
		if s.ROIID == "" {
			logger.Debug("No ROIID, skipping")
			continue
		}
		path := filepath.Join(workDir, ROIIDTextName(s.ROIID, band, sub))
		if ok, _ := afero.Exists(fs, path); ok {
			logger.Debug("%s already done", s.ROIID)
			continue
		}
		out = append(out, s)
	}
	return out
}
