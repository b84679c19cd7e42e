package scene

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uiprogress"
	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/envi"
	"github.com/usfs-r5/edart/internal/logger"
	"github.com/usfs-r5/edart/internal/raster"
)

// Frames is the result of ingesting one band from every frame of a scene.
type Frames struct {
	// Index holds the requested band of each frame, Mask the matching cloud mask.
	Index *raster.Stack
	Mask  *raster.Stack
	// FrameIndex maps a frame number to its position in the stacks.
	FrameIndex map[int]int
	// Dates holds the yyyy.mm.dd date token of each position.
	Dates []string
	Band  string
}

// Date returns the parsed date of position i.
func (f *Frames) Date(i int) (time.Time, error) {
	return ParseDate(f.Dates[i])
}

// IngestOptions selects the frames to read.
type IngestOptions struct {
	// RawDates switches to raw FR_ frames restricted to these dates. Nil reads the
	// DF_ residual frames.
	RawDates []string
	// Progress shows a terminal progress bar while reading.
	Progress bool
}

// IngestFrames reads the band whose name contains band from every frame of the scene,
// together with each frame's cloud mask, into stacks of rows × cols.
func IngestFrames(fs afero.Fs, sceneDir, band string, rows, cols int, opts IngestOptions) (*Frames, error) {
	paths, err := framePaths(fs, sceneDir, opts.RawDates)
	if err != nil {
		return nil, err
	}
	maskDir := MaskDir(sceneDir)

	out := &Frames{
		Index:      raster.NewStack(len(paths), rows, cols),
		Mask:       raster.NewStack(len(paths), rows, cols),
		FrameIndex: make(map[int]int, len(paths)),
		Dates:      make([]string, len(paths)),
		Band:       band,
	}
	logger.Info("Ingest and mask frames: %d frame(s), %d x %d, band %s (%s)",
		len(paths), rows, cols, band, humanize.Bytes(out.Index.Bytes()+out.Mask.Bytes()))

	var bar *uiprogress.Bar
	if opts.Progress && len(paths) > 0 {
		uiprogress.Start()
		defer uiprogress.Stop()
		bar = uiprogress.AddBar(len(paths)).AppendCompleted().PrependElapsed()
	}

	for i, p := range paths {
		date, frame, err := DateFrame(p)
		if err != nil {
			return nil, err
		}

		r, err := envi.Open(fs, p)
		if err != nil {
			return nil, err
		}
		if r.Lines != rows || r.Samples != cols {
			return nil, fmt.Errorf("%w: %s is %dx%d, expected %dx%d",
				raster.ErrShapeMismatch, filepath.Base(p), r.Lines, r.Samples, rows, cols)
		}
		values, name, err := r.ReadBandNamed(band)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if err := out.Index.SetFrame(i, values); err != nil {
			return nil, err
		}

		maskName, err := MaskName(p)
		if err != nil {
			return nil, err
		}
		maskPath := filepath.Join(maskDir, maskName)
		mr, err := envi.Open(fs, maskPath)
		if err != nil {
			return nil, err
		}
		mask, err := mr.ReadBand(0)
		if err != nil {
			return nil, err
		}
		if err := out.Mask.SetFrame(i, mask); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(maskPath), err)
		}

		out.FrameIndex[frame] = i
		out.Dates[i] = date
		logger.Debug("Ingested %s band %s", filepath.Base(p), name)
		if bar != nil {
			bar.Incr()
		}
	}
	return out, nil
}

func framePaths(fs afero.Fs, sceneDir string, rawDates []string) ([]string, error) {
	if rawDates == nil {
		dir, err := DartDir(fs, sceneDir)
		if err != nil {
			return nil, err
		}
		logger.Debug("Residual frames from %s", dir)
		paths, err := afero.Glob(fs, filepath.Join(dir, "DF_*.bsq"))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
		return paths, nil
	}

	dir, err := FrameDir(fs, sceneDir, "all_frames")
	if err != nil {
		return nil, err
	}
	logger.Debug("Raw frames from %s", dir)
	all, err := afero.Glob(fs, filepath.Join(dir, "FR_*.bsq"))
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(rawDates))
	for _, d := range rawDates {
		wanted[d] = true
	}
	var paths []string
	for _, p := range all {
		date, _, err := DateFrame(p)
		if err != nil {
			continue
		}
		if wanted[date] {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
