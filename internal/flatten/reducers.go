package flatten

import (
	"fmt"

	"github.com/usfs-r5/edart/internal/raster"
)

const (
	// MinPrePostFill replaces pre/post differences outside the year mask.
	MinPrePostFill = 10003
	// MinPrePostEventInit is the event value before any frame matched.
	MinPrePostEventInit = 10004
)

func checkShapes(mask []uint8, stacks ...*raster.Stack) error {
	for _, s := range stacks[1:] {
		if !s.SameShape(stacks[0]) {
			return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", raster.ErrShapeMismatch,
				stacks[0].Frames, stacks[0].Rows, stacks[0].Cols, s.Frames, s.Rows, s.Cols)
		}
	}
	if len(mask) != len(stacks[0].Data) {
		return fmt.Errorf("%w: mask has %d cells, stack %d", raster.ErrShapeMismatch, len(mask), len(stacks[0].Data))
	}
	return nil
}

func applyMask(mask []uint8, s *raster.Stack) *raster.Stack {
	out := raster.NewStack(s.Frames, s.Rows, s.Cols)
	for i, m := range mask {
		if m != 0 {
			out.Data[i] = s.Data[i]
		}
	}
	return out
}

// pairLast walks the frames in order and, wherever cmp[f] equals target, takes from[f].
// The last matching frame wins.
func pairLast(cmp *raster.Stack, target *raster.Grid, from *raster.Stack, init float64) *raster.Grid {
	out := raster.NewGridFilled(target.Rows, target.Cols, init)
	for f := 0; f < cmp.Frames; f++ {
		c, v := cmp.Frame(f), from.Frame(f)
		for i, t := range target.Data {
			if c[i] == t {
				out.Data[i] = v[i]
			}
		}
	}
	return out
}

// LastEvent returns the latest masked event of each pixel and the confidence of the
// frame holding it.
func LastEvent(mask []uint8, events, conf *raster.Stack) (event, confidence *raster.Grid, err error) {
	if err := checkShapes(mask, events, conf); err != nil {
		return nil, nil, err
	}
	event = applyMask(mask, events).MaxFrames()
	confidence = pairLast(events, event, conf, 0)
	return event, confidence, nil
}

// MaxConfidence returns the highest masked confidence of each pixel and the event of
// the frame holding it.
func MaxConfidence(mask []uint8, events, conf *raster.Stack) (event, confidence *raster.Grid, err error) {
	if err := checkShapes(mask, events, conf); err != nil {
		return nil, nil, err
	}
	masked := applyMask(mask, conf)
	confidence = masked.MaxFrames()
	event = pairLast(masked, confidence, events, 0)
	return event, confidence, nil
}

// MinPrePost returns the smallest masked pre/post difference of each pixel and the
// event of the frame holding it. Unmasked cells take MinPrePostFill.
func MinPrePost(mask []uint8, events, prepost *raster.Stack) (event, minimum *raster.Grid, err error) {
	if err := checkShapes(mask, events, prepost); err != nil {
		return nil, nil, err
	}
	filled := raster.NewStack(prepost.Frames, prepost.Rows, prepost.Cols)
	for i, m := range mask {
		if m != 0 {
			filled.Data[i] = prepost.Data[i]
		} else {
			filled.Data[i] = MinPrePostFill
		}
	}
	minimum = filled.MinFrames()
	event = pairLast(filled, minimum, events, MinPrePostEventInit)
	return event, minimum, nil
}

// Stat names a reduction over the frame axis.
type Stat string

const (
	StatSum Stat = "sum"
	StatMax Stat = "max"
)

// StatConfTotal reduces the confidences of all events with yearStart <= event < yearEnd
// and stamps flags back over the result. flags may be nil.
func StatConfTotal(events, conf *raster.Stack, yearStart, yearEnd float64, stat Stat, flags *raster.Grid) (*raster.Grid, error) {
	if !events.SameShape(conf) {
		return nil, fmt.Errorf("%w: event and confidence stacks", raster.ErrShapeMismatch)
	}
	if flags != nil && (flags.Rows != conf.Rows || flags.Cols != conf.Cols) {
		return nil, fmt.Errorf("%w: flags must match one frame", raster.ErrShapeMismatch)
	}
	masked := applyMask(WindowMask(events.Data, yearStart, yearEnd), conf)

	var out *raster.Grid
	switch stat {
	case StatSum:
		out = masked.SumFrames()
	case StatMax:
		out = masked.MaxFrames()
	default:
		return nil, fmt.Errorf("unknown statistic %q", stat)
	}
	if flags != nil {
		StampFlags(out, flags)
	}
	return out, nil
}
