package flatten

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/usfs-r5/edart/internal/logger"
	"github.com/usfs-r5/edart/internal/raster"
	"github.com/usfs-r5/edart/internal/scene"
)

// WorkspaceKind prefixes the working folder of a flatten run.
const WorkspaceKind = "flattenConf"

// EventNoData marks pixels without an event in the per-year event rasters.
const EventNoData = -1

// Result summarises one flattened scene.
type Result struct {
	Workspace       string
	EventFiles      []string
	ConfidenceFiles []string
	// Written counts the rasters actually written; existing files are skipped.
	Written int
	// Skipped is set when the working folder already existed.
	Skipped bool
}

// Run flattens the EVTY/ConfEV products of one TDIS folder into per-year event and
// confidence rasters inside a fresh working folder.
func Run(files *raster.Files, tdisPath, program string, opts Options) (*Result, error) {
	fs := files.Fs
	res := &Result{}

	work, err := scene.PrepareWorkspace(fs, tdisPath, WorkspaceKind+opts.WorkspaceSuffix(), "", opts.RedoExisting)
	res.Workspace = work
	if errors.Is(err, scene.ErrWorkspaceExists) {
		logger.Info("Already done, skipping %s", tdisPath)
		res.Skipped = true
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	opts.Path = work
	if err := opts.Record(fs, program); err != nil {
		return nil, err
	}

	evtPath, err := scene.EventRaster(fs, tdisPath)
	if err != nil {
		return nil, err
	}
	confPath, err := scene.ConfidenceRaster(fs, tdisPath)
	if err != nil {
		return nil, err
	}

	t := time.Now()
	events, desc, err := files.ReadStack(evtPath)
	if err != nil {
		return nil, err
	}
	conf, _, err := files.ReadStack(confPath)
	if err != nil {
		return nil, err
	}
	if !events.SameShape(conf) {
		return nil, fmt.Errorf("%w: %s and %s", raster.ErrShapeMismatch, filepath.Base(evtPath), filepath.Base(confPath))
	}
	logger.Info("%d event band(s) ingested (%s) in %s", events.Frames,
		humanize.Bytes(events.Bytes()+conf.Bytes()), time.Since(t).Round(time.Millisecond))

	evtM, confM := thresholdConfidence(events, conf, opts.MinConfidence)

	var prepost *raster.Stack
	if opts.Method == MethodMinPP {
		ppPath, err := scene.PrePostRaster(fs, tdisPath, opts.PrePostBand, opts.PrePostStat)
		if err != nil {
			return nil, err
		}
		if prepost, _, err = files.ReadStack(ppPath); err != nil {
			return nil, err
		}
		if !prepost.SameShape(events) {
			return nil, fmt.Errorf("%w: %s", raster.ErrShapeMismatch, filepath.Base(ppPath))
		}
	}

	flags := FlagGrid(conf.Frame(0), conf.Rows, conf.Cols, opts.Flags)

	suffix := opts.FileSuffix()
	write := func(name string, g *raster.Grid, wo raster.WriteOptions) (string, error) {
		path := filepath.Join(work, name)
		written, err := files.WriteGrid(path, g, desc, wo)
		if err != nil {
			return "", err
		}
		if written {
			res.Written++
		}
		return path, nil
	}
	eventOpts := raster.WriteOptions{DataType: raster.Float32, NoData: raster.NoData(EventNoData)}
	confOpts := raster.WriteOptions{DataType: raster.Int16}

	var eventGrids, confGrids []*raster.Grid
	for _, y := range opts.Years() {
		logger.Info("Year %d", y)
		mask := opts.Mask(evtM.Data, y)

		event, confidence, err := reduce(opts.Method, mask, evtM, confM, prepost)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", y, err)
		}
		StampEvents(event, flags, opts.FlagEvent)
		StampFlags(confidence, flags)

		p, err := write(fmt.Sprintf("Event_%d%s%s", y, suffix, opts.Extension), event, eventOpts)
		if err != nil {
			return nil, err
		}
		res.EventFiles = append(res.EventFiles, p)
		eventGrids = append(eventGrids, event)

		p, err = write(fmt.Sprintf("Confidence_%d%s%s", y, suffix, opts.Extension), confidence, confOpts)
		if err != nil {
			return nil, err
		}
		res.ConfidenceFiles = append(res.ConfidenceFiles, p)
		confGrids = append(confGrids, confidence)
	}

	if err := writeOptional(opts, flags, eventGrids, confGrids, write, eventOpts, confOpts); err != nil {
		return nil, err
	}

	if opts.StackOutputs && len(eventGrids) > 0 {
		if err := stackOutputs(files, work, desc, opts, res, eventGrids, confGrids); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// thresholdConfidence zeroes events and confidences of frames whose confidence is
// below minConf.
func thresholdConfidence(events, conf *raster.Stack, minConf float64) (evtM, confM *raster.Stack) {
	evtM = raster.NewStack(events.Frames, events.Rows, events.Cols)
	confM = raster.NewStack(conf.Frames, conf.Rows, conf.Cols)
	for i, c := range conf.Data {
		if c >= minConf {
			evtM.Data[i] = events.Data[i]
			confM.Data[i] = c
		}
	}
	return evtM, confM
}

func reduce(method Method, mask []uint8, evtM, confM, prepost *raster.Stack) (event, confidence *raster.Grid, err error) {
	switch method {
	case MethodLast, "":
		return LastEvent(mask, evtM, confM)
	case MethodMaxConf:
		return MaxConfidence(mask, evtM, confM)
	case MethodMinPP:
		event, minimum, err := MinPrePost(mask, evtM, prepost)
		if err != nil {
			return nil, nil, err
		}
		// pixels with no event inside the year keep the fill value as their minimum
		for i, m := range minimum.Data {
			if m == MinPrePostFill {
				event.Data[i] = 0
			}
		}
		confidence = pairLast(evtM, event, confM, 0)
		return event, confidence, nil
	}
	return nil, nil, fmt.Errorf("unknown flatten method %q", method)
}

type writeFunc func(name string, g *raster.Grid, wo raster.WriteOptions) (string, error)

func writeOptional(opts Options, flags *raster.Grid, eventGrids, confGrids []*raster.Grid,
	write writeFunc, eventOpts, confOpts raster.WriteOptions) error {
	suffix := opts.FileSuffix()

	if (opts.MaxConf || opts.SumConf) && len(confGrids) > 0 {
		stacked, err := raster.StackGrids(confGrids)
		if err != nil {
			return err
		}
		if opts.MaxConf {
			logger.Info("Optional: MaxConf")
			g := stacked.MaxFrames()
			StampFlags(g, flags)
			if _, err := write("MaxConf"+suffix+opts.Extension, g, confOpts); err != nil {
				return err
			}
		}
		if opts.SumConf {
			logger.Info("Optional: SumConf")
			g := stacked.SumFrames()
			StampFlags(g, flags)
			if _, err := write("SumConf"+suffix+opts.Extension, g, confOpts); err != nil {
				return err
			}
		}
	}

	if opts.LastEvent && len(eventGrids) > 0 {
		logger.Info("Optional: Last EV")
		stacked, err := raster.StackGrids(eventGrids)
		if err != nil {
			return err
		}
		if _, err := write("LastEV"+opts.Extension, stacked.MaxFrames(), eventOpts); err != nil {
			return err
		}
	}
	return nil
}

func stackOutputs(files *raster.Files, work string, desc raster.Desc, opts Options, res *Result, eventGrids, confGrids []*raster.Grid) error {
	suffix := opts.FileSuffix()
	bandNames := func(paths []string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
		return out
	}

	logger.Info("Stacking events")
	events, err := raster.StackGrids(eventGrids)
	if err != nil {
		return err
	}
	path := filepath.Join(work, scene.EventPrefix+"_PerYear"+suffix+opts.Extension)
	written, err := files.WriteStack(path, events, desc, raster.WriteOptions{
		DataType: raster.Float32, NoData: raster.NoData(EventNoData), BandNames: bandNames(res.EventFiles),
	})
	if err != nil {
		return err
	}
	if written {
		res.Written++
	}

	logger.Info("Stacking confidence")
	conf, err := raster.StackGrids(confGrids)
	if err != nil {
		return err
	}
	path = filepath.Join(work, scene.ConfidencePrefix+"_PerYear"+suffix+opts.Extension)
	written, err = files.WriteStack(path, conf, desc, raster.WriteOptions{
		DataType: raster.Int16, BandNames: bandNames(res.ConfidenceFiles),
	})
	if err != nil {
		return err
	}
	if written {
		res.Written++
	}
	return nil
}
