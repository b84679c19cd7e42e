package flatten

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// RunParametersFile is written into every working folder.
const RunParametersFile = "a_RunPARAMETERS.txt"

// Method selects the per-year reduction.
type Method string

const (
	MethodLast    Method = "last"
	MethodMaxConf Method = "maxconf"
	MethodMinPP   Method = "minpp"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	switch m {
	case MethodLast, MethodMaxConf, MethodMinPP:
		return true
	}
	return false
}

// Options controls a flatten run.
type Options struct {
	// Path is the working folder, set once it has been prepared.
	Path string

	YearStart, YearEnd int
	RedoExisting       bool
	MoistureYear       bool
	SumConf            bool
	MaxConf            bool
	LastEvent          bool
	StackOutputs       bool
	Method             Method

	// MinConfidence drops frames whose confidence is below it.
	MinConfidence float64
	Flags         []float64
	FlagEvent     float64
	// Extension of the written rasters, e.g. ".tif" or ".bsq".
	Extension string
	// PrePostBand and PrePostStat pick the PPEVdif raster for MethodMinPP.
	PrePostBand string
	PrePostStat string
}

// Years returns YearStart through YearEnd inclusive.
func (o Options) Years() []int {
	var out []int
	for y := o.YearStart; y <= o.YearEnd; y++ {
		out = append(out, y)
	}
	return out
}

// FileSuffix is appended to per-year output names.
func (o Options) FileSuffix() string {
	if o.MoistureYear {
		return "_Wat"
	}
	return "_Cal"
}

// WorkspaceSuffix distinguishes calendar and moisture year working folders.
func (o Options) WorkspaceSuffix() string {
	if o.MoistureYear {
		return "_WaterYear"
	}
	return "_CalenderYear"
}

// Mask returns the year mask for y according to the calendar setting.
func (o Options) Mask(a []float64, y int) []uint8 {
	if o.MoistureYear {
		return MoistureYearMask(a, y)
	}
	return YearMask(a, y)
}

func (o Options) fields() [][2]string {
	flags := make([]string, len(o.Flags))
	for i, f := range o.Flags {
		flags[i] = fmt.Sprint(f)
	}
	return [][2]string{
		{"path", o.Path},
		{"year_start", fmt.Sprint(o.YearStart)},
		{"year_end", fmt.Sprint(o.YearEnd)},
		{"redo_existing", fmt.Sprint(o.RedoExisting)},
		{"moisture_year", fmt.Sprint(o.MoistureYear)},
		{"sum_conf", fmt.Sprint(o.SumConf)},
		{"max_conf", fmt.Sprint(o.MaxConf)},
		{"last_event", fmt.Sprint(o.LastEvent)},
		{"stack_outputs", fmt.Sprint(o.StackOutputs)},
		{"method", string(o.Method)},
		{"min_confidence", fmt.Sprint(o.MinConfidence)},
		{"confidence_flags", "[" + strings.Join(flags, ", ") + "]"},
		{"flag_event_value", fmt.Sprint(o.FlagEvent)},
		{"extension", o.Extension},
	}
}

// Record writes the options into RunParametersFile inside o.Path.
func (o Options) Record(fs afero.Fs, program string) error {
	var sb strings.Builder
	sb.WriteString(program + "\n")
	sb.WriteString("Run parameters:\n")
	for _, kv := range o.fields() {
		fmt.Fprintf(&sb, "%s: %s\n", kv[0], kv[1])
	}

	path := filepath.Join(o.Path, RunParametersFile)
	tempPath := path + ".tmp"
	if err := afero.WriteFile(fs, tempPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write run parameters: %w", err)
	}
	if err := fs.Rename(tempPath, path); err != nil {
		_ = fs.Remove(tempPath)
		return fmt.Errorf("failed to rename run parameters: %w", err)
	}
	return nil
}
